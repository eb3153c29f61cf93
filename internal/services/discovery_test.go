package services

import (
	"context"
	"strings"
	"testing"

	"github.com/kindredlabs/kindred-backend/internal/data/repos/testutil"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
)

func TestDiscovery_MutualPairScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	b := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)

	// B already went through a refresh: persona in the pool, preference
	// stored.
	h.indexPersona(t, b.ID, "quiet climber who builds synthesizers", []float32{1, 0, 0})
	testutil.SeedPreference(t, ctx, h.gdb, b.ID, "someone analytical", []float32{0, 1, 0})

	aPersona := "analytical builder of modular gear"
	aPref := "someone outdoorsy who tinkers"
	h.ai.setEmbedding(aPersona, []float32{0, 1, 0})
	h.ai.setEmbedding(aPref, []float32{0.8, 0.6, 0})
	h.ai.queue(
		"persona: "+aPersona+"\nlooking_for: "+aPref,
		"best_match: "+b.ID.String()+"\nreasoning: 84 both build instruments and crave quiet",
	)

	res, err := h.discovery.Discover(ctx, a.ID, "a long getting-to-know-you conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryMatched {
		t.Fatalf("outcome = %s (%s)", res.Outcome, res.Message)
	}
	if !res.Created || res.Score != 84 {
		t.Fatalf("result = %+v", res)
	}
	if res.Match == nil || res.Match.MemberID != a.ID || res.Match.CounterpartID != b.ID {
		t.Fatalf("match row = %+v", res.Match)
	}

	rows := h.pairRows(t, a.ID, b.ID)
	if len(rows) != 2 {
		t.Fatalf("want mirrored pair, got %d rows", len(rows))
	}
	for _, row := range rows {
		if row.Status != types.MatchFound || row.InitiatorID != a.ID {
			t.Fatalf("row = %+v", row)
		}
	}

	// Discovery records the match; nobody is held until a proposal goes out.
	if h.memberStatus(t, a.ID) != types.StatusActive || h.memberStatus(t, b.ID) != types.StatusActive {
		t.Fatal("discovery must not change member status")
	}

	// B's own pass excludes the existing counterpart, and with nobody else
	// in the pool comes back empty instead of re-matching the same pair.
	bPersona := "quiet climber"
	bPref := "an analytical tinkerer"
	h.ai.setEmbedding(bPersona, []float32{1, 0, 0})
	h.ai.setEmbedding(bPref, []float32{0, 1, 0})
	h.ai.queue("persona: " + bPersona + "\nlooking_for: " + bPref)

	res2, err := h.discovery.Discover(ctx, b.ID, "catching up with b")
	if err != nil {
		t.Fatalf("B Discover: %v", err)
	}
	if res2.Outcome != DiscoveryPoolEmpty {
		t.Fatalf("B outcome = %s (%s)", res2.Outcome, res2.Message)
	}
	if rows := h.pairRows(t, a.ID, b.ID); len(rows) != 2 {
		t.Fatalf("B's pass must not touch the pair, got %d rows", len(rows))
	}
}

func TestDiscovery_StatusGate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	blocked := testutil.SeedMember(t, ctx, h.gdb, types.StatusMatched)
	res, err := h.discovery.Discover(ctx, blocked.ID, "hello again")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryRejected || res.Message == "" {
		t.Fatalf("matched member: %+v", res)
	}
	if h.ai.calls() != 0 {
		t.Fatal("a rejected pass must not reach the model")
	}

	// Every other status may run discovery; below-tier members simply see
	// whatever the pool holds.
	onboarding := testutil.SeedMember(t, ctx, h.gdb, types.StatusOnboarding)
	h.ai.queue("persona: curious newcomer\nlooking_for: anyone patient")
	res, err = h.discovery.Discover(ctx, onboarding.ID, "first chat")
	if err != nil {
		t.Fatalf("onboarding Discover: %v", err)
	}
	if res.Outcome != DiscoveryPoolEmpty {
		t.Fatalf("onboarding outcome = %s", res.Outcome)
	}
}

func TestDiscovery_UnparseableExtractionStoresNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)

	h.ai.queue("What a lovely chat! I feel like we really got somewhere today.")

	res, err := h.discovery.Discover(ctx, m.ID, "some conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryNeedMoreInfo {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if _, _, err := h.profiles.Get(ctx, m.ID); !engine.IsCode(err, engine.CodeNotFound) {
		t.Fatalf("nothing may be stored after a failed extraction: %v", err)
	}
}

func TestDiscovery_UnparseableScorerRecordsNoMatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	b := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	h.indexPersona(t, b.ID, "b persona", []float32{1, 0, 0})

	h.ai.setEmbedding("a persona", []float32{0, 1, 0})
	h.ai.setEmbedding("a pref", []float32{1, 0, 0})
	h.ai.queue(
		"persona: a persona\nlooking_for: a pref",
		"They all seem nice but I simply cannot decide between them.",
	)

	res, err := h.discovery.Discover(ctx, a.ID, "conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryNeedMoreInfo || res.Message != msgNeedMoreInfo {
		t.Fatalf("result = %+v", res)
	}

	has, err := h.ledger.HasExistingMatch(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("HasExistingMatch: %v", err)
	}
	if has {
		t.Fatal("an unparseable verdict must never record a match")
	}
	// The refresh itself stands: the member's profile was good input.
	if _, _, err := h.profiles.Get(ctx, a.ID); err != nil {
		t.Fatalf("profile should have been stored: %v", err)
	}
}

func TestDiscovery_ScorerDeclinesEveryone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	b := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	h.indexPersona(t, b.ID, "b persona", []float32{1, 0, 0})

	h.ai.setEmbedding("a persona", []float32{0, 1, 0})
	h.ai.setEmbedding("a pref", []float32{1, 0, 0})
	h.ai.queue(
		"persona: a persona\nlooking_for: a pref",
		"best_match: none\nreasoning: 25 pleasant but no real spark anywhere",
	)

	res, err := h.discovery.Discover(ctx, a.ID, "conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryNoMatch {
		t.Fatalf("outcome = %s (%s)", res.Outcome, res.Message)
	}
	if has, _ := h.ledger.HasExistingMatch(ctx, a.ID, b.ID); has {
		t.Fatal("a none verdict must not record a match")
	}
}

func TestDiscovery_PoolFiltersStatusAndFloor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)

	// In the index but below the eligible tier.
	pending := testutil.SeedMember(t, ctx, h.gdb, types.StatusVerificationPending)
	h.indexPersona(t, pending.ID, "pending persona", []float32{0, 1, 0})

	// Eligible but orthogonal to the query, so the similarity floor drops
	// them before the scorer sees anything.
	far := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	h.indexPersona(t, far.ID, "far persona", []float32{1, 0, 0})

	h.ai.setEmbedding("a persona", []float32{1, 0, 0})
	h.ai.setEmbedding("a pref", []float32{0, 1, 0})
	h.ai.queue("persona: a persona\nlooking_for: a pref")

	res, err := h.discovery.Discover(ctx, a.ID, "conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryPoolEmpty {
		t.Fatalf("outcome = %s (%s)", res.Outcome, res.Message)
	}
	if h.ai.calls() != 1 {
		t.Fatalf("scorer must not run on an empty shortlist, calls = %d", h.ai.calls())
	}
}

func TestDiscovery_ExcludesPriorCounterparts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	b := testutil.SeedMember(t, ctx, h.gdb, types.StatusActive)
	h.indexPersona(t, b.ID, "b persona", []float32{0, 1, 0})

	// A declined introduction still keeps the pair off each other's radar.
	testutil.SeedMatchPair(t, ctx, h.gdb, a.ID, b.ID, types.Declined)

	h.ai.setEmbedding("a persona", []float32{1, 0, 0})
	h.ai.setEmbedding("a pref", []float32{0, 1, 0})
	h.ai.queue("persona: a persona\nlooking_for: a pref")

	res, err := h.discovery.Discover(ctx, a.ID, "conversation")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if res.Outcome != DiscoveryPoolEmpty {
		t.Fatalf("outcome = %s (%s)", res.Outcome, res.Message)
	}
}

func TestDiscovery_RequiresConversationText(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedMember(t, context.Background(), h.gdb, types.StatusActive)

	_, err := h.discovery.Discover(context.Background(), m.ID, "   ")
	if !engine.IsCode(err, engine.CodeValidation) {
		t.Fatalf("blank conversation: err = %v", err)
	}
	if !strings.Contains(err.Error(), "conversation") {
		t.Fatalf("error should name the missing input: %v", err)
	}
}
