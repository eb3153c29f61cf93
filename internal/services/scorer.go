package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/services/payload"
	"github.com/kindredlabs/kindred-backend/internal/services/prompts"
)

// Verdict is the scorer's judgment over one candidate shortlist. A nil
// BestMatchID means no candidate cleared the bar; Score is 0-100.
type Verdict struct {
	BestMatchID *uuid.UUID
	Score       int
	Reasoning   string
}

// ScorerService judges a shortlist in one batched model call. A malformed
// response is a CodeParse error the caller recovers from with a canned
// message; it is never retried automatically.
type ScorerService interface {
	Score(ctx context.Context, personaText, preferenceText string, candidates []graph.Candidate) (*Verdict, error)
}

type scorerService struct {
	log *logger.Logger
	ai  AIClient
}

func NewScorerService(log *logger.Logger, ai AIClient) ScorerService {
	return &scorerService{
		log: log.With("service", "ScorerService"),
		ai:  ai,
	}
}

func (sc *scorerService) Score(ctx context.Context, personaText, preferenceText string, candidates []graph.Candidate) (*Verdict, error) {
	const op = "scorer.score"

	if len(candidates) == 0 {
		return &Verdict{}, nil
	}

	in := prompts.ScoreInput{
		PersonaText:    personaText,
		PreferenceText: preferenceText,
		Candidates:     make([]prompts.ScoreCandidate, 0, len(candidates)),
	}
	known := make(map[uuid.UUID]struct{}, len(candidates))
	for _, c := range candidates {
		in.Candidates = append(in.Candidates, prompts.ScoreCandidate{ID: c.MemberID, Text: c.Text})
		known[c.MemberID] = struct{}{}
	}
	p := prompts.CompatibilityScore(in)

	raw, err := sc.ai.GenerateText(ctx, p.System, p.User)
	if err != nil {
		return nil, engine.Wrap(engine.CodeBackend, op, err)
	}

	res := payload.Parse(raw, prompts.KeyBestMatch, prompts.KeyReasoning)
	fields, ok := res.Fields()
	if !ok {
		sc.log.Warn("unparseable scorer response", "prompt", p.Name, "fingerprint", p.Fingerprint())
		return nil, engine.NewError(engine.CodeParse, op, "scorer response missing required fields", nil)
	}

	reasoning := fields.Get(prompts.KeyReasoning)
	verdict := &Verdict{Reasoning: reasoning}

	// No leading integer means the score is unusable; a match is never
	// recorded off an unparseable score, whatever best_match claims.
	score, hasScore := payload.LeadingInt(reasoning)
	if !hasScore {
		sc.log.Warn("scorer reasoning carries no score, dropping verdict", "prompt", p.Name)
		return verdict, nil
	}
	verdict.Score = payload.ClampScore(score)

	best := strings.TrimSpace(fields.Get(prompts.KeyBestMatch))
	if best == "" || strings.EqualFold(best, prompts.NoneToken) {
		return verdict, nil
	}
	id, err := uuid.Parse(best)
	if err != nil {
		sc.log.Warn("scorer picked an unknown candidate id", "best_match", best)
		return verdict, nil
	}
	if _, listed := known[id]; !listed {
		sc.log.Warn("scorer picked a candidate outside the shortlist", "best_match", id)
		return verdict, nil
	}

	verdict.BestMatchID = &id
	sc.log.Debug("scored shortlist", "candidates", len(candidates), "best_match", id, "score", verdict.Score)
	return verdict, nil
}
