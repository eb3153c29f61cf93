package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/data/graph"
	profilerepo "github.com/kindredlabs/kindred-backend/internal/data/repos/profile"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// ProfileService keeps a member's persona and preference snapshots current.
// A refresh replaces the previous snapshots; there is never more than one
// persona or preference row per member.
type ProfileService interface {
	Refresh(ctx context.Context, memberID uuid.UUID, personaText, preferenceText string) error
	Get(ctx context.Context, memberID uuid.UUID) (*types.PersonaProfile, *types.ConnectionPreference, error)
}

type profileService struct {
	txRunner    db.TxRunner
	log         *logger.Logger
	profileRepo profilerepo.ProfileRepo
	ai          AIClient
	indexes     []graph.CandidateIndex
	clock       Clock
}

func NewProfileService(txRunner db.TxRunner, log *logger.Logger, profileRepo profilerepo.ProfileRepo, ai AIClient, indexes []graph.CandidateIndex, clock Clock) ProfileService {
	if clock == nil {
		clock = SystemClock
	}
	return &profileService{
		txRunner:    txRunner,
		log:         log.With("service", "ProfileService"),
		profileRepo: profileRepo,
		ai:          ai,
		indexes:     indexes,
		clock:       clock,
	}
}

func (ps *profileService) Refresh(ctx context.Context, memberID uuid.UUID, personaText, preferenceText string) error {
	const op = "profile.refresh"

	personaText = strings.TrimSpace(personaText)
	preferenceText = strings.TrimSpace(preferenceText)
	if personaText == "" || preferenceText == "" {
		return engine.NewError(engine.CodeValidation, op, "persona and preference text are required", nil)
	}

	vectors, err := ps.ai.Embed(ctx, []string{personaText, preferenceText})
	if err != nil {
		return engine.Wrap(engine.CodeBackend, op, err)
	}
	if len(vectors) != 2 || len(vectors[0]) == 0 || len(vectors[1]) == 0 {
		return engine.NewError(engine.CodeBackend, op, "embedding provider returned wrong vector count", nil)
	}

	personaJSON, err := types.EncodeEmbedding(vectors[0])
	if err != nil {
		return engine.Wrap(engine.CodeInternal, op, err)
	}
	prefJSON, err := types.EncodeEmbedding(vectors[1])
	if err != nil {
		return engine.Wrap(engine.CodeInternal, op, err)
	}

	now := ps.clock()
	err = ps.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		persona := &types.PersonaProfile{
			ID:        uuid.New(),
			MemberID:  memberID,
			Text:      personaText,
			Embedding: personaJSON,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := ps.profileRepo.UpsertPersona(ctx, tx, persona); err != nil {
			return db.MapError(op, err)
		}
		pref := &types.ConnectionPreference{
			ID:        uuid.New(),
			MemberID:  memberID,
			Text:      preferenceText,
			Embedding: prefJSON,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := ps.profileRepo.UpsertPreference(ctx, tx, pref); err != nil {
			return db.MapError(op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Index sync runs after the relational commit so the fallback is always
	// at least as fresh as the primary. Failures degrade to Warn: fallback
	// search keeps working off the relational rows.
	entry := graph.IndexEntry{
		MemberID:  memberID,
		Text:      personaText,
		Embedding: vectors[0],
		UpdatedAt: now,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range ps.indexes {
		if idx == nil {
			continue
		}
		index := idx
		g.Go(func() error {
			if err := index.Upsert(gctx, entry); err != nil {
				ps.log.Warn("candidate index upsert failed", "index", index.Name(), "member_id", memberID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	ps.log.Debug("profile refreshed", "member_id", memberID)
	return nil
}

func (ps *profileService) Get(ctx context.Context, memberID uuid.UUID) (*types.PersonaProfile, *types.ConnectionPreference, error) {
	const op = "profile.get"

	persona, err := ps.profileRepo.GetPersona(ctx, nil, memberID)
	if err != nil {
		return nil, nil, db.MapError(op, err)
	}
	pref, err := ps.profileRepo.GetPreference(ctx, nil, memberID)
	if err != nil {
		return nil, nil, db.MapError(op, err)
	}
	return persona, pref, nil
}
