package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryIndex is an in-memory CandidateIndex used for unit testing pipeline
// logic without a running graph database. It scores with the same cosine
// metric as the real backends and supports forced-failure injection so tests
// can drive the primary/fallback failover path.
type MemoryIndex struct {
	mu         sync.Mutex
	name       string
	entries    map[uuid.UUID]IndexEntry
	err        error
	queryCalls int
}

func NewMemoryIndex(name string) *MemoryIndex {
	return &MemoryIndex{
		name:    name,
		entries: map[uuid.UUID]IndexEntry{},
	}
}

// WithError configures the index to return the provided error from every
// subsequent call.
func (m *MemoryIndex) WithError(err error) *MemoryIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryIndex) Name() string { return m.name }

func (m *MemoryIndex) Upsert(_ context.Context, entry IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if entry.MemberID == uuid.Nil {
		return nil
	}
	m.entries[entry.MemberID] = entry
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.entries, memberID)
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, embedding []float32, exclude []uuid.UUID, eligible []uuid.UUID, limit int) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	if m.err != nil {
		return nil, m.err
	}
	if len(embedding) == 0 || limit <= 0 || len(eligible) == 0 {
		return nil, nil
	}

	excluded := map[uuid.UUID]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	allowed := map[uuid.UUID]bool{}
	for _, id := range eligible {
		allowed[id] = true
	}

	var cands []Candidate
	for id, e := range m.entries {
		if excluded[id] || !allowed[id] {
			continue
		}
		if len(e.Embedding) != len(embedding) {
			continue
		}
		cands = append(cands, Candidate{
			MemberID:    id,
			Text:        e.Text,
			Score:       cosine(embedding, e.Embedding),
			UpdatedAtMs: e.UpdatedAt.UnixMilli(),
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

// QueryCalls reports how many times Query ran, including failed calls.
func (m *MemoryIndex) QueryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls
}

// Contains reports whether the index currently holds an entry for memberID.
func (m *MemoryIndex) Contains(memberID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[memberID]
	return ok
}
