package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	introductionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/introduction"
	matchrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/match"
	memberrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/member"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/domain/member"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/services/payload"
	"github.com/kindredlabs/kindred-backend/internal/services/prompts"
)

// ProposeOutcome tags the result of a proposal attempt.
type ProposeOutcome string

const (
	// ProposeRejected: status gate or quota said no; nothing persisted.
	ProposeRejected ProposeOutcome = "rejected"
	// ProposeRetry: the drafted message was unparseable; nothing persisted,
	// no quota consumed, the match stays proposable.
	ProposeRetry ProposeOutcome = "retry"
	ProposeSent  ProposeOutcome = "sent"
)

// ProposeResult is the user-facing outcome of Propose. Message carries the
// rejection reason, the retry text, or the sent introduction.
type ProposeResult struct {
	Outcome      ProposeOutcome
	Message      string
	Introduction *types.IntroductionRecord
	Usage        *types.Usage
}

// RespondOutcome tags the result of answering a proposal.
type RespondOutcome string

const (
	RespondNoProposal RespondOutcome = "no_proposal"
	RespondAccepted   RespondOutcome = "accepted"
	RespondDeclined   RespondOutcome = "declined"
)

type RespondResult struct {
	Outcome      RespondOutcome
	Message      string
	Introduction *types.IntroductionRecord
	Connection   *types.ConnectionRecord
}

const retryDraftMessage = "I couldn't put the introduction into words just now; ask me again in a moment and I'll take another pass."

// IntroductionService turns recorded matches into delivered proposals and
// settles the counterpart's answer. Everything that must survive a crash is
// written in one transaction; delivery runs after commit and never rolls
// anything back.
type IntroductionService interface {
	Propose(ctx context.Context, requesterID uuid.UUID) (*ProposeResult, error)
	Respond(ctx context.Context, responderID uuid.UUID, accept bool) (*RespondResult, error)
}

type introductionService struct {
	txRunner    db.TxRunner
	log         *logger.Logger
	memberRepo  memberrepo.MemberRepo
	matchRepo   matchrepo.MatchRepo
	introRepo   introductionrepo.IntroductionRepo
	members     MemberService
	ledger      LedgerService
	quota       QuotaService
	connections ConnectionService
	ai          AIClient
	deliverer   Deliverer
	clock       Clock
}

func NewIntroductionService(
	txRunner db.TxRunner,
	log *logger.Logger,
	memberRepo memberrepo.MemberRepo,
	matchRepo matchrepo.MatchRepo,
	introRepo introductionrepo.IntroductionRepo,
	members MemberService,
	ledger LedgerService,
	quota QuotaService,
	connections ConnectionService,
	ai AIClient,
	deliverer Deliverer,
	clock Clock,
) IntroductionService {
	if clock == nil {
		clock = SystemClock
	}
	return &introductionService{
		txRunner:    txRunner,
		log:         log.With("service", "IntroductionService"),
		memberRepo:  memberRepo,
		matchRepo:   matchRepo,
		introRepo:   introRepo,
		members:     members,
		ledger:      ledger,
		quota:       quota,
		connections: connections,
		ai:          ai,
		deliverer:   deliverer,
		clock:       clock,
	}
}

func (is *introductionService) Propose(ctx context.Context, requesterID uuid.UUID) (*ProposeResult, error) {
	const op = "introduction.propose"

	requester, err := is.memberRepo.GetByID(ctx, nil, requesterID)
	if err != nil {
		return nil, db.MapError(op, err)
	}

	if guard := member.CanPropose(requester.Status); !guard.Allowed {
		return &ProposeResult{Outcome: ProposeRejected, Message: guard.Reason}, nil
	}

	tier := member.TierForStatus(requester.Status)
	allowed, usage, err := is.quota.CanSend(ctx, nil, requesterID, tier)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return &ProposeResult{Outcome: ProposeRejected, Message: quotaMessage(usage), Usage: &usage}, nil
	}

	rec, err := is.ledger.OldestMatchFound(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &ProposeResult{
			Outcome: ProposeRejected,
			Message: "there is no match waiting on an introduction right now; try a discovery pass first",
		}, nil
	}

	// Drafting happens before anything is persisted: a failed draft costs
	// neither quota nor state.
	p := prompts.IntroductionMessage(prompts.IntroInput{
		RecipientPersona:  rec.CounterpartPersona,
		RequesterPersona:  rec.OwnerPersona,
		Reasoning:         rec.Reasoning,
		NeedsVerification: requester.Status == types.StatusVerificationPending,
	})
	raw, err := is.ai.GenerateText(ctx, p.System, p.User)
	if err != nil {
		return nil, engine.Wrap(engine.CodeBackend, op, err)
	}
	res := payload.Parse(raw, prompts.KeyMessage)
	fields, ok := res.Fields()
	if !ok {
		is.log.Warn("unparseable introduction draft", "pair_key", rec.PairKey, "fingerprint", p.Fingerprint())
		return &ProposeResult{Outcome: ProposeRetry, Message: retryDraftMessage}, nil
	}
	message := fields.Get(prompts.KeyMessage)

	var intro *types.IntroductionRecord
	err = is.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		// Execution-time recheck: validation and execution are separated by
		// a model call, long enough for a concurrent send to land.
		stillAllowed, usageNow, err := is.quota.CanSend(ctx, tx, requesterID, tier)
		if err != nil {
			return err
		}
		if !stillAllowed {
			return engine.NewError(engine.CodeQuota, op, quotaMessage(usageNow), nil)
		}

		if err := is.ledger.AdvanceStatusTx(ctx, tx, rec.ID, types.ProposalPending); err != nil {
			return err
		}

		now := is.clock()
		intro = &types.IntroductionRecord{
			ID:            uuid.New(),
			PairKey:       rec.PairKey,
			MatchRecordID: rec.ID,
			FromMemberID:  requesterID,
			ToMemberID:    rec.CounterpartID,
			Message:       message,
			Status:        types.ProposalPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := is.introRepo.Create(ctx, tx, intro); err != nil {
			return db.MapError(op, err)
		}

		if err := is.members.HoldTx(ctx, tx, requesterID, "introduction proposed"); err != nil {
			return err
		}
		if err := is.members.HoldTx(ctx, tx, rec.CounterpartID, "introduction proposed"); err != nil {
			return err
		}

		return is.quota.Record(ctx, tx, requesterID, tier)
	})
	if err != nil {
		if engine.IsCode(err, engine.CodeQuota) {
			msg := "introduction allowance used up; try again later"
			var engErr *engine.Error
			if errors.As(err, &engErr) && engErr.Message != "" {
				msg = engErr.Message
			}
			return &ProposeResult{Outcome: ProposeRejected, Message: msg}, nil
		}
		return nil, err
	}

	// Best-effort push; the proposal stands either way and reaches the
	// counterpart on their next interaction.
	if err := is.deliverer.Deliver(ctx, rec.CounterpartID, message); err != nil {
		is.log.Warn("proposal delivery failed", "to_member_id", rec.CounterpartID, "introduction_id", intro.ID,
			"error", engine.Wrap(engine.CodeDelivery, op, err))
	}

	_, usageAfter, err := is.quota.CanSend(ctx, nil, requesterID, tier)
	if err != nil {
		usageAfter = usage
	}

	is.log.Info("introduction proposed", "introduction_id", intro.ID, "pair_key", rec.PairKey, "to_member_id", rec.CounterpartID)
	return &ProposeResult{
		Outcome:      ProposeSent,
		Message:      message,
		Introduction: intro,
		Usage:        &usageAfter,
	}, nil
}

func (is *introductionService) Respond(ctx context.Context, responderID uuid.UUID, accept bool) (*RespondResult, error) {
	const op = "introduction.respond"

	if _, err := is.memberRepo.GetByID(ctx, nil, responderID); err != nil {
		return nil, db.MapError(op, err)
	}

	intro, err := is.introRepo.OldestPendingFor(ctx, nil, responderID)
	if err != nil {
		if mapped := db.MapError(op, err); engine.IsCode(mapped, engine.CodeNotFound) {
			return &RespondResult{
				Outcome: RespondNoProposal,
				Message: "there is no introduction waiting on your answer",
			}, nil
		}
		return nil, db.MapError(op, err)
	}

	to := types.Declined
	if accept {
		to = types.Accepted
	}

	var (
		conn *types.ConnectionRecord
		pins PinPair
	)
	err = is.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		updated, err := is.introRepo.UpdateStatusFrom(ctx, tx, intro.ID, types.ProposalPending, to)
		if err != nil {
			return db.MapError(op, err)
		}
		if !updated {
			return engine.NewError(engine.CodeConflict, op, "introduction was already answered", nil)
		}

		if err := is.ledger.AdvanceStatusTx(ctx, tx, intro.MatchRecordID, to); err != nil {
			return err
		}

		if accept {
			rec, err := is.matchRepo.GetByID(ctx, tx, intro.MatchRecordID)
			if err != nil {
				return db.MapError(op, err)
			}
			c, p, err := is.connections.OpenTx(ctx, tx, rec)
			if err != nil {
				return err
			}
			conn, pins = c, p
			return nil
		}

		// Declined: both re-enter the candidate pool.
		if err := is.members.ReleaseTx(ctx, tx, intro.FromMemberID, "introduction declined"); err != nil {
			return err
		}
		return is.members.ReleaseTx(ctx, tx, intro.ToMemberID, "introduction declined")
	})
	if err != nil {
		return nil, err
	}
	intro.Status = to

	if accept {
		is.notify(ctx, conn.MemberAID, fmt.Sprintf(
			"Your introduction was accepted. Your meeting PIN is %s; exchange PINs in person to confirm the connection.", pins.A))
		is.notify(ctx, conn.MemberBID, fmt.Sprintf(
			"Introduction accepted. Your meeting PIN is %s; exchange PINs in person to confirm the connection.", pins.B))
		is.log.Info("introduction accepted", "introduction_id", intro.ID, "connection_id", conn.ID)
		return &RespondResult{
			Outcome:      RespondAccepted,
			Message:      "introduction accepted; PINs are on their way to both of you",
			Introduction: intro,
			Connection:   conn,
		}, nil
	}

	is.notify(ctx, intro.FromMemberID, "Your introduction was declined. You're back in the pool and can run discovery again.")
	is.log.Info("introduction declined", "introduction_id", intro.ID)
	return &RespondResult{
		Outcome:      RespondDeclined,
		Message:      "introduction declined; both of you are back in the pool",
		Introduction: intro,
	}, nil
}

func (is *introductionService) notify(ctx context.Context, memberID uuid.UUID, text string) {
	if err := is.deliverer.Deliver(ctx, memberID, text); err != nil {
		is.log.Warn("notification delivery failed", "member_id", memberID,
			"error", engine.Wrap(engine.CodeDelivery, "introduction.notify", err))
	}
}

func quotaMessage(u types.Usage) string {
	return fmt.Sprintf("you have used all %d introductions in the current window; the next one frees up at %s",
		u.Cap, u.ResetAt.UTC().Format("15:04 MST"))
}
