package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IndexEntry is one member's persona as stored in a similarity index.
type IndexEntry struct {
	MemberID  uuid.UUID
	Text      string
	Embedding []float32
	UpdatedAt time.Time
}

// Candidate is one similarity hit. Score is cosine similarity in [-1, 1];
// UpdatedAtMs breaks score ties in favor of the freshest persona.
type Candidate struct {
	MemberID    uuid.UUID
	Text        string
	Score       float64
	UpdatedAtMs int64
}

// CandidateIndex is the similarity store contract. Two implementations are
// wired in production: PersonaIndex (neo4j vector index, primary) and
// FallbackIndex (cosine over relational rows). Query results are ordered by
// score descending, then UpdatedAtMs descending, and never include excluded
// members or members outside the eligible set.
type CandidateIndex interface {
	Name() string
	Upsert(ctx context.Context, entry IndexEntry) error
	Delete(ctx context.Context, memberID uuid.UUID) error
	Query(ctx context.Context, embedding []float32, exclude []uuid.UUID, eligible []uuid.UUID, limit int) ([]Candidate, error)
}
