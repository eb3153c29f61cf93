package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	memberrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/member"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/domain/member"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// MemberService owns member identity and the status state machine. Every
// transition is an explicit write paired with a StatusEvent audit row in the
// same transaction; nothing infers status from side tables.
type MemberService interface {
	Ensure(ctx context.Context, platform, handle string) (*types.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Member, error)
	Transition(ctx context.Context, memberID uuid.UUID, to types.MemberStatus, reason string) (*types.Member, error)
	// TransitionTx is Transition composed into a caller-owned transaction.
	TransitionTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, to types.MemberStatus, reason string) error
	// HoldTx moves a member into matched when their status allows it and is
	// a no-op otherwise, so proposal flows can hold whichever participants
	// are eligible without special-casing the rest.
	HoldTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, reason string) error
	Release(ctx context.Context, memberID uuid.UUID, reason string) error
	// ReleaseTx releases matched back to active inside a caller-owned
	// transaction; members in any other status are left untouched.
	ReleaseTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, reason string) error
}

type memberService struct {
	txRunner   db.TxRunner
	log        *logger.Logger
	memberRepo memberrepo.MemberRepo
	clock      Clock
}

func NewMemberService(txRunner db.TxRunner, log *logger.Logger, memberRepo memberrepo.MemberRepo, clock Clock) MemberService {
	if clock == nil {
		clock = SystemClock
	}
	return &memberService{
		txRunner:   txRunner,
		log:        log.With("service", "MemberService"),
		memberRepo: memberRepo,
		clock:      clock,
	}
}

func (ms *memberService) Ensure(ctx context.Context, platform, handle string) (*types.Member, error) {
	const op = "member.ensure"

	platform = strings.ToLower(strings.TrimSpace(platform))
	handle = strings.TrimSpace(handle)
	if platform == "" || handle == "" {
		return nil, engine.NewError(engine.CodeValidation, op, "platform and handle are required", nil)
	}

	existing, err := ms.memberRepo.GetByPlatformHandle(ctx, nil, platform, handle)
	if err == nil {
		return existing, nil
	}
	if mapped := db.MapError(op, err); !engine.IsCode(mapped, engine.CodeNotFound) {
		return nil, mapped
	}

	m := &types.Member{
		ID:       uuid.New(),
		Platform: platform,
		Handle:   handle,
		Status:   types.StatusOnboarding,
	}
	created, err := ms.memberRepo.CreateIfAbsent(ctx, nil, m)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if !created {
		// Lost the insert race; the winner's row is authoritative.
		winner, err := ms.memberRepo.GetByPlatformHandle(ctx, nil, platform, handle)
		if err != nil {
			return nil, db.MapError(op, err)
		}
		return winner, nil
	}
	ms.log.Info("member created", "member_id", m.ID, "platform", platform)
	return m, nil
}

func (ms *memberService) Get(ctx context.Context, id uuid.UUID) (*types.Member, error) {
	const op = "member.get"
	m, err := ms.memberRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	return m, nil
}

func (ms *memberService) Transition(ctx context.Context, memberID uuid.UUID, to types.MemberStatus, reason string) (*types.Member, error) {
	var out *types.Member
	err := ms.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		if err := ms.TransitionTx(ctx, tx, memberID, to, reason); err != nil {
			return err
		}
		m, err := ms.memberRepo.GetByID(ctx, tx, memberID)
		if err != nil {
			return db.MapError("member.transition", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ms *memberService) TransitionTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, to types.MemberStatus, reason string) error {
	const op = "member.transition"

	m, err := ms.memberRepo.GetByID(ctx, tx, memberID)
	if err != nil {
		return db.MapError(op, err)
	}
	if !member.CanTransition(m.Status, to) {
		return engine.NewError(engine.CodeState, op,
			fmt.Sprintf("cannot move member from %s to %s", m.Status, to), nil)
	}

	updated, err := ms.memberRepo.UpdateStatusFrom(ctx, tx, memberID, m.Status, to)
	if err != nil {
		return db.MapError(op, err)
	}
	if !updated {
		return engine.NewError(engine.CodeConflict, op, "member status changed concurrently", nil)
	}

	ev := &types.StatusEvent{
		ID:         uuid.New(),
		MemberID:   memberID,
		FromStatus: m.Status,
		ToStatus:   to,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  ms.clock(),
	}
	if err := ms.memberRepo.AppendStatusEvent(ctx, tx, ev); err != nil {
		return db.MapError(op, err)
	}

	ms.log.Info("member transitioned", "member_id", memberID, "from", m.Status, "to", to, "reason", ev.Reason)
	return nil
}

func (ms *memberService) HoldTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, reason string) error {
	m, err := ms.memberRepo.GetByID(ctx, tx, memberID)
	if err != nil {
		return db.MapError("member.hold", err)
	}
	if m.Status == types.StatusMatched {
		return nil
	}
	if !member.CanTransition(m.Status, types.StatusMatched) {
		// Members below the verified tier keep their current status while
		// the introduction is in flight.
		return nil
	}
	return ms.TransitionTx(ctx, tx, memberID, types.StatusMatched, reason)
}

func (ms *memberService) Release(ctx context.Context, memberID uuid.UUID, reason string) error {
	return ms.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		return ms.ReleaseTx(ctx, tx, memberID, reason)
	})
}

func (ms *memberService) ReleaseTx(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, reason string) error {
	m, err := ms.memberRepo.GetByID(ctx, tx, memberID)
	if err != nil {
		return db.MapError("member.release", err)
	}
	if m.Status != types.StatusMatched {
		return nil
	}
	return ms.TransitionTx(ctx, tx, memberID, types.StatusActive, reason)
}
