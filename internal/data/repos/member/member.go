package member

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type MemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, m *types.Member) error
	// CreateIfAbsent inserts unless a member with the same platform+handle
	// exists. Reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, m *types.Member) (bool, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Member, error)
	GetByPlatformHandle(ctx context.Context, tx *gorm.DB, platform, handle string) (*types.Member, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Member, error)
	ListIDsByStatuses(ctx context.Context, tx *gorm.DB, statuses []types.MemberStatus) ([]uuid.UUID, error)
	// UpdateStatusFrom writes the status only when the current value still
	// matches from, so two racing transitions cannot both win.
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.MemberStatus) (bool, error)
	AppendStatusEvent(ctx context.Context, tx *gorm.DB, ev *types.StatusEvent) error
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	repoLog := baseLog.With("repo", "MemberRepo")
	return &memberRepo{db: db, log: repoLog}
}

func (mr *memberRepo) Create(ctx context.Context, tx *gorm.DB, m *types.Member) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(m).Error
}

func (mr *memberRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, m *types.Member) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "handle"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (mr *memberRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var m types.Member
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (mr *memberRepo) GetByPlatformHandle(ctx context.Context, tx *gorm.DB, platform, handle string) (*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var m types.Member
	if err := transaction.WithContext(ctx).
		Where("platform = ? AND handle = ?", platform, handle).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (mr *memberRepo) ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Member, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var results []*types.Member
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *memberRepo) ListIDsByStatuses(ctx context.Context, tx *gorm.DB, statuses []types.MemberStatus) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var ids []uuid.UUID
	if len(statuses) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("status IN ?", statuses).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (mr *memberRepo) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.MemberStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Member{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (mr *memberRepo) AppendStatusEvent(ctx context.Context, tx *gorm.DB, ev *types.StatusEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(ev).Error
}
