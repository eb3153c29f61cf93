package profile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// ProfileRepo persists the extracted persona and preference snapshots. Both
// upserts replace the previous text and embedding wholesale; profiles are
// rewritten on every refresh, never appended to.
type ProfileRepo interface {
	UpsertPersona(ctx context.Context, tx *gorm.DB, p *types.PersonaProfile) error
	UpsertPreference(ctx context.Context, tx *gorm.DB, p *types.ConnectionPreference) error
	GetPersona(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.PersonaProfile, error)
	GetPreference(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.ConnectionPreference, error)
	ListPersonasByMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.PersonaProfile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	repoLog := baseLog.With("repo", "ProfileRepo")
	return &profileRepo{db: db, log: repoLog}
}

func (pr *profileRepo) UpsertPersona(ctx context.Context, tx *gorm.DB, p *types.PersonaProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"text",
				"embedding",
				"updated_at",
			}),
		}).
		Create(p).Error
}

func (pr *profileRepo) UpsertPreference(ctx context.Context, tx *gorm.DB, p *types.ConnectionPreference) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"text",
				"embedding",
				"updated_at",
			}),
		}).
		Create(p).Error
}

func (pr *profileRepo) GetPersona(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.PersonaProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var p types.PersonaProfile
	if err := transaction.WithContext(ctx).
		Where("member_id = ?", memberID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *profileRepo) GetPreference(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.ConnectionPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var p types.ConnectionPreference
	if err := transaction.WithContext(ctx).
		Where("member_id = ?", memberID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (pr *profileRepo) ListPersonasByMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uuid.UUID) ([]*types.PersonaProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.PersonaProfile
	if len(memberIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("member_id IN ?", memberIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
