package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	"github.com/kindredlabs/kindred-backend/internal/data/repos/testutil"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
)

func scorerUnderTest(t *testing.T) (*fakeAI, ScorerService) {
	t.Helper()
	ai := newFakeAI()
	return ai, NewScorerService(testutil.Logger(t), ai)
}

func shortlist(ids ...uuid.UUID) []graph.Candidate {
	out := make([]graph.Candidate, 0, len(ids))
	for i, id := range ids {
		out = append(out, graph.Candidate{MemberID: id, Text: "candidate", Score: 0.9 - float64(i)*0.1})
	}
	return out
}

func TestScorerService_ParsesVerdict(t *testing.T) {
	ai, scorer := scorerUnderTest(t)
	want := uuid.New()
	ai.queue("best_match: " + want.String() + "\nreasoning: 82 shared love of early mornings")

	v, err := scorer.Score(context.Background(), "persona", "preference", shortlist(want, uuid.New()))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.BestMatchID == nil || *v.BestMatchID != want {
		t.Fatalf("BestMatchID = %v, want %s", v.BestMatchID, want)
	}
	if v.Score != 82 {
		t.Fatalf("Score = %d", v.Score)
	}
	if v.Reasoning != "82 shared love of early mornings" {
		t.Fatalf("Reasoning = %q", v.Reasoning)
	}
}

func TestScorerService_MalformedResponseIsParseError(t *testing.T) {
	ai, scorer := scorerUnderTest(t)
	ai.queue("I considered the options and the second one seems lovely.")

	_, err := scorer.Score(context.Background(), "persona", "preference", shortlist(uuid.New()))
	if !engine.IsCode(err, engine.CodeParse) {
		t.Fatalf("want CodeParse, got %v", err)
	}
	if ai.calls() != 1 {
		t.Fatalf("a parse failure must not retry, calls = %d", ai.calls())
	}
}

func TestScorerService_MissingScoreDropsBestMatch(t *testing.T) {
	ai, scorer := scorerUnderTest(t)
	id := uuid.New()
	ai.queue("best_match: " + id.String() + "\nreasoning: an excellent pairing all around")

	v, err := scorer.Score(context.Background(), "persona", "preference", shortlist(id))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.BestMatchID != nil {
		t.Fatal("no leading score means no match, whatever best_match claims")
	}
	if v.Score != 0 {
		t.Fatalf("Score = %d, want 0", v.Score)
	}
}

func TestScorerService_NoneAndUnknownPicksMeanNoMatch(t *testing.T) {
	listed := uuid.New()

	cases := map[string]string{
		"none token":        "best_match: none\nreasoning: 35 nobody quite fits",
		"outside shortlist": "best_match: " + uuid.New().String() + "\nreasoning: 71 decent but hallucinated",
		"not a uuid":        "best_match: the first one\nreasoning: 64 plausible",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ai, scorer := scorerUnderTest(t)
			ai.queue(raw)
			v, err := scorer.Score(context.Background(), "persona", "preference", shortlist(listed))
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if v.BestMatchID != nil {
				t.Fatalf("BestMatchID = %v, want nil", v.BestMatchID)
			}
		})
	}
}

func TestScorerService_ClampsScore(t *testing.T) {
	ai, scorer := scorerUnderTest(t)
	id := uuid.New()
	ai.queue("best_match: " + id.String() + "\nreasoning: 140 off the chart")

	v, err := scorer.Score(context.Background(), "persona", "preference", shortlist(id))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.Score != 100 {
		t.Fatalf("Score = %d, want clamp to 100", v.Score)
	}
}

func TestScorerService_EmptyShortlistSkipsModel(t *testing.T) {
	ai, scorer := scorerUnderTest(t)

	v, err := scorer.Score(context.Background(), "persona", "preference", nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if v.BestMatchID != nil || v.Score != 0 {
		t.Fatalf("verdict = %+v", v)
	}
	if ai.calls() != 0 {
		t.Fatal("empty shortlist must not call the model")
	}
}
