package introduction

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type IntroductionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rec *types.IntroductionRecord) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IntroductionRecord, error)
	// OldestPendingFor returns the oldest proposal awaiting the member's
	// response. Responses are processed in arrival order.
	OldestPendingFor(ctx context.Context, tx *gorm.DB, toMemberID uuid.UUID) (*types.IntroductionRecord, error)
	// UpdateStatusFrom writes the status only when the current value still
	// matches from.
	UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.MatchStatus) (bool, error)
	ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.IntroductionRecord, error)
}

type introductionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIntroductionRepo(db *gorm.DB, baseLog *logger.Logger) IntroductionRepo {
	repoLog := baseLog.With("repo", "IntroductionRepo")
	return &introductionRepo{db: db, log: repoLog}
}

func (ir *introductionRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.IntroductionRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(rec).Error
}

func (ir *introductionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IntroductionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rec types.IntroductionRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (ir *introductionRepo) OldestPendingFor(ctx context.Context, tx *gorm.DB, toMemberID uuid.UUID) (*types.IntroductionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rec types.IntroductionRecord
	if err := transaction.WithContext(ctx).
		Where("to_member_id = ? AND status = ?", toMemberID, types.ProposalPending).
		Order("created_at ASC").
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (ir *introductionRepo) UpdateStatusFrom(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to types.MatchStatus) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.IntroductionRecord{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (ir *introductionRepo) ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.IntroductionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rows []*types.IntroductionRecord
	if err := transaction.WithContext(ctx).
		Where("from_member_id = ? OR to_member_id = ?", memberID, memberID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
