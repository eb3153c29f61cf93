package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/platform/neo4jdb"
)

const personaVectorIndex = "persona_embedding_idx"

// PersonaIndex stores persona embeddings as :Persona nodes behind a neo4j
// vector index. It is the primary similarity backend when a graph store is
// configured.
type PersonaIndex struct {
	client *neo4jdb.Client
	dims   int
	log    *logger.Logger

	schemaOnce sync.Once
}

func NewPersonaIndex(client *neo4jdb.Client, dims int, log *logger.Logger) *PersonaIndex {
	return &PersonaIndex{
		client: client,
		dims:   dims,
		log:    log.With("index", "PersonaIndex"),
	}
}

func (p *PersonaIndex) Name() string { return "persona_graph" }

func (p *PersonaIndex) available() bool {
	return p != nil && p.client != nil && p.client.Driver != nil
}

// ensureSchema runs once per process. Failures are logged and not fatal:
// MERGE writes and vector queries surface their own errors if the store is
// actually unusable.
func (p *PersonaIndex) ensureSchema(ctx context.Context, session neo4j.SessionWithContext) {
	p.schemaOnce.Do(func() {
		stmts := []string{
			`CREATE CONSTRAINT persona_member_id_unique IF NOT EXISTS FOR (p:Persona) REQUIRE p.member_id IS UNIQUE`,
			// Index options cannot be parameterized; dims is config, not user input.
			fmt.Sprintf(`CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (p:Persona) ON (p.embedding)
OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`, personaVectorIndex, p.dims),
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				p.log.Warn("neo4j schema init failed (continuing)", "error", err)
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	})
}

func (p *PersonaIndex) Upsert(ctx context.Context, entry IndexEntry) error {
	if !p.available() {
		return nil
	}
	if entry.MemberID == uuid.Nil || len(entry.Embedding) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := p.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.client.Database,
	})
	defer session.Close(ctx)

	p.ensureSchema(ctx, session)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (p:Persona {member_id: $member_id})
SET p.text = $text,
    p.embedding = $embedding,
    p.updated_at_ms = $updated_at_ms
`, map[string]any{
			"member_id":     entry.MemberID.String(),
			"text":          entry.Text,
			"embedding":     toFloat64(entry.Embedding),
			"updated_at_ms": entry.UpdatedAt.UnixMilli(),
		})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return engine.Wrap(engine.CodeBackend, "graph.persona_upsert", err)
	}
	return nil
}

func (p *PersonaIndex) Delete(ctx context.Context, memberID uuid.UUID) error {
	if !p.available() || memberID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := p.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (p:Persona {member_id: $member_id})
DETACH DELETE p
`, map[string]any{"member_id": memberID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return engine.Wrap(engine.CodeBackend, "graph.persona_delete", err)
	}
	return nil
}

func (p *PersonaIndex) Query(ctx context.Context, embedding []float32, exclude []uuid.UUID, eligible []uuid.UUID, limit int) ([]Candidate, error) {
	if !p.available() {
		return nil, engine.NewError(engine.CodeBackend, "graph.persona_query", "persona index not configured", nil)
	}
	if len(embedding) == 0 || limit <= 0 || len(eligible) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	session := p.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: p.client.Database,
	})
	defer session.Close(ctx)

	// Overfetch so post-filtering the excluded members still fills the page.
	k := limit + len(exclude) + 8

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CALL db.index.vector.queryNodes($index, $k, $embedding)
YIELD node, score
WHERE NOT node.member_id IN $exclude AND node.member_id IN $eligible
RETURN node.member_id AS member_id,
       node.text AS text,
       score,
       coalesce(node.updated_at_ms, 0) AS updated_at_ms
ORDER BY score DESC, updated_at_ms DESC
LIMIT $limit
`, map[string]any{
			"index":     personaVectorIndex,
			"k":         k,
			"embedding": toFloat64(embedding),
			"exclude":   uuidStrings(exclude),
			"eligible":  uuidStrings(eligible),
			"limit":     limit,
		})
		if err != nil {
			return nil, err
		}

		var cands []Candidate
		for res.Next(ctx) {
			rec := res.Record()
			memberRaw, _ := rec.Get("member_id")
			textRaw, _ := rec.Get("text")
			scoreRaw, _ := rec.Get("score")
			updatedRaw, _ := rec.Get("updated_at_ms")

			idStr, _ := memberRaw.(string)
			id, parseErr := uuid.Parse(idStr)
			if parseErr != nil {
				continue
			}
			text, _ := textRaw.(string)
			score, _ := scoreRaw.(float64)
			updated, _ := updatedRaw.(int64)

			cands = append(cands, Candidate{
				MemberID:    id,
				Text:        text,
				Score:       score,
				UpdatedAtMs: updated,
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return cands, nil
	})
	if err != nil {
		return nil, engine.Wrap(engine.CodeBackend, "graph.persona_query", err)
	}
	cands, _ := out.([]Candidate)
	return cands, nil
}

// toFloat64 converts an embedding for the neo4j driver, which only accepts
// 64-bit float lists as parameters.
func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		out = append(out, id.String())
	}
	return out
}
