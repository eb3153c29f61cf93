package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	memberrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/member"
	profilerepo "github.com/kindredlabs/kindred-backend/internal/data/repos/profile"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/domain/member"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/services/payload"
	"github.com/kindredlabs/kindred-backend/internal/services/prompts"
)

// DiscoveryConfig tunes the search step of the pipeline.
type DiscoveryConfig struct {
	// CandidateLimit bounds the shortlist handed to the scorer.
	CandidateLimit int
	// MinSimilarity drops near-orthogonal hits before they reach the
	// scorer.
	MinSimilarity float64
}

func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{CandidateLimit: 5, MinSimilarity: 0.05}
}

// DiscoveryOutcome tags the result of one discovery pass.
type DiscoveryOutcome string

const (
	// DiscoveryRejected: the member's status blocks discovery.
	DiscoveryRejected DiscoveryOutcome = "rejected"
	// DiscoveryNeedMoreInfo: a collaborator response was unparseable;
	// nothing was recorded and the member should try again with more.
	DiscoveryNeedMoreInfo DiscoveryOutcome = "need_more_info"
	// DiscoveryPoolEmpty: no eligible candidates yet.
	DiscoveryPoolEmpty DiscoveryOutcome = "pool_empty"
	// DiscoveryNoMatch: candidates were judged, none cleared the bar.
	DiscoveryNoMatch DiscoveryOutcome = "no_match"
	DiscoveryMatched DiscoveryOutcome = "matched"
)

type DiscoveryResult struct {
	Outcome DiscoveryOutcome
	Message string
	Match   *types.MatchRecord
	Score   int
	// Created is false when the matched pair already existed.
	Created bool
}

const (
	msgNeedMoreInfo = "I couldn't quite pin down who you are and who you're hoping to meet; tell me a bit more and I'll look again."
	msgPoolEmpty    = "the pool is still warming up; I don't have a strong candidate for you yet, check back soon."
	msgNoMatch      = "nothing felt like a genuinely good fit this pass; I'll keep watching as new members join."
)

// DiscoveryService runs the full read path: guard, extract, refresh, search,
// score, record. One inbound message triggers at most one pass.
type DiscoveryService interface {
	Discover(ctx context.Context, memberID uuid.UUID, conversation string) (*DiscoveryResult, error)
}

type discoveryService struct {
	log         *logger.Logger
	memberRepo  memberrepo.MemberRepo
	profileRepo profilerepo.ProfileRepo
	profiles    ProfileService
	similarity  SimilarityService
	scorer      ScorerService
	ledger      LedgerService
	ai          AIClient
	cfg         DiscoveryConfig
}

func NewDiscoveryService(
	log *logger.Logger,
	memberRepo memberrepo.MemberRepo,
	profileRepo profilerepo.ProfileRepo,
	profiles ProfileService,
	similarity SimilarityService,
	scorer ScorerService,
	ledger LedgerService,
	ai AIClient,
	cfg DiscoveryConfig,
) DiscoveryService {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultDiscoveryConfig().CandidateLimit
	}
	return &discoveryService{
		log:         log.With("service", "DiscoveryService"),
		memberRepo:  memberRepo,
		profileRepo: profileRepo,
		profiles:    profiles,
		similarity:  similarity,
		scorer:      scorer,
		ledger:      ledger,
		ai:          ai,
		cfg:         cfg,
	}
}

func (ds *discoveryService) Discover(ctx context.Context, memberID uuid.UUID, conversation string) (*DiscoveryResult, error) {
	const op = "discovery.discover"

	conversation = strings.TrimSpace(conversation)
	if conversation == "" {
		return nil, engine.NewError(engine.CodeValidation, op, "conversation text is required", nil)
	}

	m, err := ds.memberRepo.GetByID(ctx, nil, memberID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if guard := member.CanInitiateDiscovery(m.Status); !guard.Allowed {
		return &DiscoveryResult{Outcome: DiscoveryRejected, Message: guard.Reason}, nil
	}

	// Extract who they are and who they want to meet.
	p := prompts.ProfileExtraction(conversation)
	raw, err := ds.ai.GenerateText(ctx, p.System, p.User)
	if err != nil {
		return nil, engine.Wrap(engine.CodeBackend, op, err)
	}
	res := payload.Parse(raw, prompts.KeyPersona, prompts.KeyLookingFor)
	fields, ok := res.Fields()
	if !ok {
		ds.log.Warn("unparseable extraction response", "member_id", memberID, "fingerprint", p.Fingerprint())
		return &DiscoveryResult{Outcome: DiscoveryNeedMoreInfo, Message: msgNeedMoreInfo}, nil
	}
	personaText := fields.Get(prompts.KeyPersona)
	preferenceText := fields.Get(prompts.KeyLookingFor)

	if err := ds.profiles.Refresh(ctx, memberID, personaText, preferenceText); err != nil {
		return nil, err
	}

	// The preference embedding is the query vector; the refresh just wrote
	// it, so read it back rather than embedding twice.
	pref, err := ds.profileRepo.GetPreference(ctx, nil, memberID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	queryVec, err := types.DecodeEmbedding(pref.Embedding)
	if err != nil || len(queryVec) == 0 {
		return nil, engine.NewError(engine.CodeInternal, op, "stored preference embedding is unreadable", err)
	}

	counterparts, err := ds.ledger.CounterpartIDs(ctx, memberID)
	if err != nil {
		return nil, err
	}
	exclude := append([]uuid.UUID{memberID}, counterparts...)

	eligible, err := ds.memberRepo.ListIDsByStatuses(ctx, nil, member.EligibleStatuses())
	if err != nil {
		return nil, db.MapError(op, err)
	}
	eligible = subtract(eligible, exclude)

	cands, err := ds.similarity.FindCandidates(ctx, queryVec, exclude, eligible, ds.cfg.CandidateLimit)
	if err != nil {
		return nil, err
	}
	cands = aboveFloor(cands, ds.cfg.MinSimilarity)
	if len(cands) == 0 {
		return &DiscoveryResult{Outcome: DiscoveryPoolEmpty, Message: msgPoolEmpty}, nil
	}

	verdict, err := ds.scorer.Score(ctx, personaText, preferenceText, cands)
	if err != nil {
		if engine.IsCode(err, engine.CodeParse) {
			return &DiscoveryResult{Outcome: DiscoveryNeedMoreInfo, Message: msgNeedMoreInfo}, nil
		}
		return nil, err
	}
	if verdict.BestMatchID == nil {
		return &DiscoveryResult{Outcome: DiscoveryNoMatch, Message: msgNoMatch}, nil
	}

	rec, created, err := ds.ledger.RecordMatch(ctx, memberID, *verdict.BestMatchID, verdict.Score, verdict.Reasoning, memberID)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("found a promising match, compatibility %d/100; say the word and I'll arrange an introduction.", verdict.Score)
	if !created {
		msg = fmt.Sprintf("you two were already on each other's radar (compatibility %d/100); an introduction is ready whenever you are.", rec.Score)
	}
	ds.log.Info("discovery matched", "member_id", memberID, "pair_key", rec.PairKey, "score", rec.Score, "created", created)
	return &DiscoveryResult{
		Outcome: DiscoveryMatched,
		Message: msg,
		Match:   rec,
		Score:   rec.Score,
		Created: created,
	}, nil
}

func subtract(ids, remove []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 || len(remove) == 0 {
		return ids
	}
	drop := make(map[uuid.UUID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	kept := ids[:0]
	for _, id := range ids {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	return kept
}

func aboveFloor(cands []graph.Candidate, floor float64) []graph.Candidate {
	if floor <= 0 {
		return cands
	}
	kept := cands[:0]
	for _, c := range cands {
		if c.Score >= floor {
			kept = append(kept, c)
		}
	}
	return kept
}
