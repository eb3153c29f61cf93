package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// QuotaRepo reads and writes proposal-send usage rows. The window is always
// trailing: callers pass the window start and usage is a live count, so
// there is no fixed reset boundary for a herd of members to pile up on.
type QuotaRepo interface {
	CountSince(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, since time.Time) (int64, error)
	// OldestSince returns the earliest send inside the window, which decides
	// when capacity next frees up.
	OldestSince(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, since time.Time) (*types.ProposalSend, error)
	Insert(ctx context.Context, tx *gorm.DB, send *types.ProposalSend) error
}

type quotaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuotaRepo(db *gorm.DB, baseLog *logger.Logger) QuotaRepo {
	repoLog := baseLog.With("repo", "QuotaRepo")
	return &quotaRepo{db: db, log: repoLog}
}

func (qr *quotaRepo) CountSince(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProposalSend{}).
		Where("member_id = ? AND sent_at > ?", memberID, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (qr *quotaRepo) OldestSince(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, since time.Time) (*types.ProposalSend, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}

	var send types.ProposalSend
	if err := transaction.WithContext(ctx).
		Where("member_id = ? AND sent_at > ?", memberID, since).
		Order("sent_at ASC").
		First(&send).Error; err != nil {
		return nil, err
	}
	return &send, nil
}

func (qr *quotaRepo) Insert(ctx context.Context, tx *gorm.DB, send *types.ProposalSend) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	if send.ID == uuid.Nil {
		send.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(send).Error
}
