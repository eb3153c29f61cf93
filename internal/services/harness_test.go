package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	connectionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/connection"
	introductionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/introduction"
	matchrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/match"
	memberrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/member"
	profilerepo "github.com/kindredlabs/kindred-backend/internal/data/repos/profile"
	quotarepo "github.com/kindredlabs/kindred-backend/internal/data/repos/quota"
	"github.com/kindredlabs/kindred-backend/internal/data/repos/testutil"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
)

// harness wires the full service graph onto a private in-memory database
// with fakes for the model, the delivery bus, and the clock.
type harness struct {
	gdb       *gorm.DB
	runner    dbpkg.TxRunner
	now       time.Time
	ai        *fakeAI
	deliverer *fakeDeliverer
	primary   *graph.MemoryIndex

	memberRepo  memberrepo.MemberRepo
	matchRepo   matchrepo.MatchRepo
	profileRepo profilerepo.ProfileRepo
	quotaRepo   quotarepo.QuotaRepo
	introRepo   introductionrepo.IntroductionRepo
	connRepo    connectionrepo.ConnectionRepo

	members     MemberService
	profiles    ProfileService
	similarity  SimilarityService
	scorer      ScorerService
	ledger      LedgerService
	quota       QuotaService
	connections ConnectionService
	intros      IntroductionService
	discovery   DiscoveryService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb := testutil.FreshDB(t)
	log := testutil.Logger(t)

	h := &harness{
		gdb:       gdb,
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ai:        newFakeAI(),
		deliverer: &fakeDeliverer{},
		primary:   graph.NewMemoryIndex("persona_memory"),
	}
	clock := func() time.Time { return h.now }

	h.runner = dbpkg.NewGormTxRunner(gdb)
	h.memberRepo = memberrepo.NewMemberRepo(gdb, log)
	h.matchRepo = matchrepo.NewMatchRepo(gdb, log)
	h.profileRepo = profilerepo.NewProfileRepo(gdb, log)
	h.quotaRepo = quotarepo.NewQuotaRepo(gdb, log)
	h.introRepo = introductionrepo.NewIntroductionRepo(gdb, log)
	h.connRepo = connectionrepo.NewConnectionRepo(gdb, log)

	fallback := graph.NewFallbackIndex(gdb, log)

	h.members = NewMemberService(h.runner, log, h.memberRepo, clock)
	h.profiles = NewProfileService(h.runner, log, h.profileRepo, h.ai,
		[]graph.CandidateIndex{h.primary, fallback}, clock)
	h.similarity = NewSimilarityService(log, h.primary, fallback)
	h.scorer = NewScorerService(log, h.ai)
	h.ledger = NewLedgerService(h.runner, log, h.matchRepo, h.profileRepo, clock)
	h.quota = NewQuotaService(log, h.quotaRepo, DefaultQuotaConfig(), clock)
	h.connections = NewConnectionService(h.runner, log, h.connRepo, h.matchRepo, h.members, clock)
	h.intros = NewIntroductionService(h.runner, log, h.memberRepo, h.matchRepo, h.introRepo,
		h.members, h.ledger, h.quota, h.connections, h.ai, h.deliverer, clock)
	h.discovery = NewDiscoveryService(log, h.memberRepo, h.profileRepo, h.profiles,
		h.similarity, h.scorer, h.ledger, h.ai, DefaultDiscoveryConfig())
	return h
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

// indexPersona seeds a member's persona in both the relational store and the
// primary index, the state a completed profile refresh leaves behind.
func (h *harness) indexPersona(t *testing.T, memberID uuid.UUID, text string, vec []float32) {
	t.Helper()
	ctx := context.Background()
	testutil.SeedPersona(t, ctx, h.gdb, memberID, text, vec)
	if err := h.primary.Upsert(ctx, graph.IndexEntry{
		MemberID:  memberID,
		Text:      text,
		Embedding: vec,
		UpdatedAt: h.now,
	}); err != nil {
		t.Fatalf("index persona: %v", err)
	}
}

func (h *harness) memberStatus(t *testing.T, id uuid.UUID) types.MemberStatus {
	t.Helper()
	m, err := h.memberRepo.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("member status: %v", err)
	}
	return m.Status
}

func (h *harness) pairRows(t *testing.T, a, b uuid.UUID) []*types.MatchRecord {
	t.Helper()
	rows, err := h.matchRepo.GetPairRows(context.Background(), nil, types.PairKey(a, b))
	if err != nil {
		t.Fatalf("pair rows: %v", err)
	}
	return rows
}
