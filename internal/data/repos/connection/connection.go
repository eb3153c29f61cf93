package connection

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

var openStatuses = []types.ConnectionStatus{types.ConnectionPending, types.ConnectionConfirmed}

type ConnectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *types.ConnectionRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ConnectionRecord, error)
	GetByPairKey(ctx context.Context, tx *gorm.DB, pairKey string) (*types.ConnectionRecord, error)
	// GetOpenForMember returns the member's connection that has not yet
	// completed, if any.
	GetOpenForMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.ConnectionRecord, error)
	// MarkConfirmed flips one side's confirmation flag and moves the status,
	// guarded on the connection still being open.
	MarkConfirmed(ctx context.Context, tx *gorm.DB, id uuid.UUID, isA bool, to types.ConnectionStatus) (bool, error)
	// UpdateStatusFrom writes the status only when the current value still
	// matches from.
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.ConnectionStatus) (bool, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	repoLog := baseLog.With("repo", "ConnectionRepo")
	return &connectionRepo{db: db, log: repoLog}
}

func (cr *connectionRepo) Create(ctx context.Context, tx *gorm.DB, c *types.ConnectionRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(c).Error
}

func (cr *connectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ConnectionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var c types.ConnectionRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (cr *connectionRepo) GetByPairKey(ctx context.Context, tx *gorm.DB, pairKey string) (*types.ConnectionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var c types.ConnectionRecord
	if err := transaction.WithContext(ctx).
		Where("pair_key = ?", pairKey).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (cr *connectionRepo) GetOpenForMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*types.ConnectionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var c types.ConnectionRecord
	if err := transaction.WithContext(ctx).
		Where("(member_a_id = ? OR member_b_id = ?) AND status IN ?", memberID, memberID, openStatuses).
		Order("created_at ASC").
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (cr *connectionRepo) MarkConfirmed(ctx context.Context, tx *gorm.DB, id uuid.UUID, isA bool, to types.ConnectionStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	col := "a_confirmed"
	if !isA {
		col = "b_confirmed"
	}
	res := transaction.WithContext(ctx).
		Model(&types.ConnectionRecord{}).
		Where("id = ? AND status IN ?", id, openStatuses).
		Updates(map[string]any{
			col:      true,
			"status": to,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (cr *connectionRepo) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.ConnectionStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.ConnectionRecord{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
