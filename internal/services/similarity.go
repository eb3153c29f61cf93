package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// SimilarityService fronts the two candidate indexes. Every call tries the
// primary first and falls back on any error; there is no cached health flag,
// so a recovered primary is used again on the very next call.
type SimilarityService interface {
	FindCandidates(ctx context.Context, queryEmbedding []float32, excludeIDs, eligibleIDs []uuid.UUID, limit int) ([]graph.Candidate, error)
}

type similarityService struct {
	log      *logger.Logger
	primary  graph.CandidateIndex
	fallback graph.CandidateIndex
}

func NewSimilarityService(log *logger.Logger, primary, fallback graph.CandidateIndex) SimilarityService {
	return &similarityService{
		log:      log.With("service", "SimilarityService"),
		primary:  primary,
		fallback: fallback,
	}
}

func (ss *similarityService) FindCandidates(ctx context.Context, queryEmbedding []float32, excludeIDs, eligibleIDs []uuid.UUID, limit int) ([]graph.Candidate, error) {
	const op = "similarity.find_candidates"

	if limit <= 0 || len(queryEmbedding) == 0 {
		return nil, nil
	}
	if len(eligibleIDs) == 0 {
		// Nobody to search over; an empty pool is a normal outcome.
		return nil, nil
	}

	var primaryErr error
	if ss.primary != nil {
		cands, err := ss.primary.Query(ctx, queryEmbedding, excludeIDs, eligibleIDs, limit)
		if err == nil {
			return cands, nil
		}
		primaryErr = err
		ss.log.Warn("primary candidate index failed, trying fallback",
			"index", ss.primary.Name(), "error", err)
	}

	if ss.fallback == nil {
		return nil, engine.Wrap(engine.CodeBackend, op, primaryErr)
	}
	cands, err := ss.fallback.Query(ctx, queryEmbedding, excludeIDs, eligibleIDs, limit)
	if err == nil {
		return cands, nil
	}
	ss.log.Error("all candidate indexes failed",
		"fallback", ss.fallback.Name(), "fallback_error", err, "primary_error", primaryErr)
	return nil, engine.NewError(engine.CodeBackend, op, "all candidate indexes failed", err)
}
