package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	quotarepo "github.com/kindredlabs/kindred-backend/internal/data/repos/quota"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// QuotaConfig carries the per-tier caps and the trailing window length.
type QuotaConfig struct {
	UnverifiedCap int
	VerifiedCap   int
	Window        time.Duration
}

// DefaultQuotaConfig mirrors the production defaults: one introduction a day
// until verified, five afterwards.
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{UnverifiedCap: 1, VerifiedCap: 5, Window: 24 * time.Hour}
}

// CapFor resolves the send cap for a tier.
func (c QuotaConfig) CapFor(tier types.QuotaTier) int {
	if tier == types.TierVerified {
		return c.VerifiedCap
	}
	return c.UnverifiedCap
}

// QuotaService enforces the rolling proposal-send window. Usage is a count
// of ProposalSend rows inside the trailing window; there is no counter to
// reset and no calendar boundary, so allowance returns exactly one window
// after each send drops out.
type QuotaService interface {
	CanSend(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, tier types.QuotaTier) (bool, types.Usage, error)
	// Record books one send. Called inside the proposal transaction so the
	// execution-time recheck and the booking commit together.
	Record(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, tier types.QuotaTier) error
}

type quotaService struct {
	log       *logger.Logger
	quotaRepo quotarepo.QuotaRepo
	cfg       QuotaConfig
	clock     Clock
}

func NewQuotaService(log *logger.Logger, quotaRepo quotarepo.QuotaRepo, cfg QuotaConfig, clock Clock) QuotaService {
	if clock == nil {
		clock = SystemClock
	}
	if cfg.Window <= 0 {
		cfg = DefaultQuotaConfig()
	}
	return &quotaService{
		log:       log.With("service", "QuotaService"),
		quotaRepo: quotaRepo,
		cfg:       cfg,
		clock:     clock,
	}
}

func (qs *quotaService) CanSend(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, tier types.QuotaTier) (bool, types.Usage, error) {
	const op = "quota.can_send"

	now := qs.clock()
	since := now.Add(-qs.cfg.Window)

	count, err := qs.quotaRepo.CountSince(ctx, tx, memberID, since)
	if err != nil {
		return false, types.Usage{}, db.MapError(op, err)
	}

	usage := types.Usage{
		Count:   int(count),
		Cap:     qs.cfg.CapFor(tier),
		ResetAt: now,
	}
	if count > 0 {
		oldest, err := qs.quotaRepo.OldestSince(ctx, tx, memberID, since)
		if err != nil {
			return false, types.Usage{}, db.MapError(op, err)
		}
		usage.ResetAt = oldest.SentAt.Add(qs.cfg.Window)
	}
	return usage.Count < usage.Cap, usage, nil
}

func (qs *quotaService) Record(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, tier types.QuotaTier) error {
	const op = "quota.record"

	send := &types.ProposalSend{
		ID:       uuid.New(),
		MemberID: memberID,
		Tier:     tier,
		SentAt:   qs.clock(),
	}
	if err := qs.quotaRepo.Insert(ctx, tx, send); err != nil {
		return db.MapError(op, err)
	}
	qs.log.Debug("proposal send recorded", "member_id", memberID, "tier", tier)
	return nil
}
