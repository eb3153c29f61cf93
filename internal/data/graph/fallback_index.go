package graph

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/domain/profile"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// FallbackIndex scores candidates by cosine over the embeddings stored in
// the relational persona rows. Slower than the graph index but has no extra
// infrastructure dependency, so it doubles as the only backend in minimal
// deployments.
type FallbackIndex struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFallbackIndex(db *gorm.DB, log *logger.Logger) *FallbackIndex {
	return &FallbackIndex{db: db, log: log.With("index", "FallbackIndex")}
}

func (f *FallbackIndex) Name() string { return "persona_sql" }

// Upsert is a no-op: the relational persona row is the source of truth and
// is written by the profile repo before any index sync happens.
func (f *FallbackIndex) Upsert(ctx context.Context, entry IndexEntry) error { return nil }

// Delete is a no-op for the same reason as Upsert.
func (f *FallbackIndex) Delete(ctx context.Context, memberID uuid.UUID) error { return nil }

func (f *FallbackIndex) Query(ctx context.Context, embedding []float32, exclude []uuid.UUID, eligible []uuid.UUID, limit int) ([]Candidate, error) {
	if f == nil || f.db == nil {
		return nil, engine.NewError(engine.CodeBackend, "graph.fallback_query", "fallback index has nil db", nil)
	}
	if len(embedding) == 0 || limit <= 0 || len(eligible) == 0 {
		return nil, nil
	}

	q := f.db.WithContext(ctx).
		Model(&profile.PersonaProfile{}).
		Where("member_id IN ?", eligible)
	if len(exclude) > 0 {
		q = q.Where("member_id NOT IN ?", exclude)
	}

	var rows []*profile.PersonaProfile
	if err := q.Find(&rows).Error; err != nil {
		return nil, engine.Wrap(engine.CodeBackend, "graph.fallback_query", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.MemberID == uuid.Nil {
			continue
		}
		emb, err := profile.DecodeEmbedding(row.Embedding)
		if err != nil || len(emb) == 0 || len(emb) != len(embedding) {
			continue
		}
		cands = append(cands, Candidate{
			MemberID:    row.MemberID,
			Text:        row.Text,
			Score:       cosine(embedding, emb),
			UpdatedAtMs: row.UpdatedAt.UnixMilli(),
		})
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].UpdatedAtMs > cands[j].UpdatedAtMs
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}
