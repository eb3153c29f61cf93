package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	connectionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/connection"
	matchrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/match"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// PinPair carries the two clear PINs exactly once, at open time, for
// delivery. Only hashes are stored; a lost PIN cannot be recovered.
type PinPair struct {
	A string
	B string
}

// ConfirmResult reports a confirmation attempt. Wrong PINs and repeat
// confirmations are validation outcomes, not errors, and persist nothing.
type ConfirmResult struct {
	Confirmed     bool
	BothConfirmed bool
	Message       string
	Connection    *types.ConnectionRecord
}

// ConnectionService tracks an accepted pair through the in-person PIN
// exchange: each side receives its own PIN and confirms the meeting by
// presenting the counterpart's.
type ConnectionService interface {
	Open(ctx context.Context, matchRecordID uuid.UUID) (*types.ConnectionRecord, PinPair, error)
	// OpenTx opens the connection for an already-loaded accepted match row
	// inside a caller-owned transaction.
	OpenTx(ctx context.Context, tx *gorm.DB, rec *types.MatchRecord) (*types.ConnectionRecord, PinPair, error)
	Confirm(ctx context.Context, memberID uuid.UUID, pin string) (*ConfirmResult, error)
	// Complete closes a confirmed connection and releases both members back
	// into the candidate pool. Match rows stay accepted.
	Complete(ctx context.Context, connectionID uuid.UUID) error
}

type connectionService struct {
	txRunner       db.TxRunner
	log            *logger.Logger
	connectionRepo connectionrepo.ConnectionRepo
	matchRepo      matchrepo.MatchRepo
	members        MemberService
	clock          Clock
}

func NewConnectionService(txRunner db.TxRunner, log *logger.Logger, connectionRepo connectionrepo.ConnectionRepo, matchRepo matchrepo.MatchRepo, members MemberService, clock Clock) ConnectionService {
	if clock == nil {
		clock = SystemClock
	}
	return &connectionService{
		txRunner:       txRunner,
		log:            log.With("service", "ConnectionService"),
		connectionRepo: connectionRepo,
		matchRepo:      matchRepo,
		members:        members,
		clock:          clock,
	}
}

func (cs *connectionService) Open(ctx context.Context, matchRecordID uuid.UUID) (*types.ConnectionRecord, PinPair, error) {
	const op = "connection.open"

	var (
		conn *types.ConnectionRecord
		pins PinPair
	)
	err := cs.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		rec, err := cs.matchRepo.GetByID(ctx, tx, matchRecordID)
		if err != nil {
			return db.MapError(op, err)
		}
		c, p, err := cs.OpenTx(ctx, tx, rec)
		if err != nil {
			return err
		}
		conn, pins = c, p
		return nil
	})
	if err != nil {
		return nil, PinPair{}, err
	}
	return conn, pins, nil
}

func (cs *connectionService) OpenTx(ctx context.Context, tx *gorm.DB, rec *types.MatchRecord) (*types.ConnectionRecord, PinPair, error) {
	const op = "connection.open"

	if rec == nil {
		return nil, PinPair{}, engine.NewError(engine.CodeValidation, op, "match record required", nil)
	}
	if rec.Status != types.Accepted {
		return nil, PinPair{}, engine.NewError(engine.CodeState, op,
			fmt.Sprintf("connection opens on an accepted match, not %s", rec.Status), nil)
	}

	// Participant A is the lexically smaller UUID, matching the PairKey
	// ordering, so the row is canonical whichever side accepted.
	a, b := rec.MemberID, rec.CounterpartID
	if b.String() < a.String() {
		a, b = b, a
	}

	pinA, err := generatePin()
	if err != nil {
		return nil, PinPair{}, engine.Wrap(engine.CodeInternal, op, err)
	}
	pinB, err := generatePin()
	if err != nil {
		return nil, PinPair{}, engine.Wrap(engine.CodeInternal, op, err)
	}

	now := cs.clock()
	conn := &types.ConnectionRecord{
		ID:            uuid.New(),
		PairKey:       rec.PairKey,
		MatchRecordID: rec.ID,
		MemberAID:     a,
		MemberBID:     b,
		PinAHash:      HashPin(pinA),
		PinBHash:      HashPin(pinB),
		Status:        types.ConnectionPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := cs.connectionRepo.Create(ctx, tx, conn); err != nil {
		return nil, PinPair{}, db.MapError(op, err)
	}

	cs.log.Info("connection opened", "pair_key", rec.PairKey, "connection_id", conn.ID)
	return conn, PinPair{A: pinA, B: pinB}, nil
}

func (cs *connectionService) Confirm(ctx context.Context, memberID uuid.UUID, pin string) (*ConfirmResult, error) {
	const op = "connection.confirm"

	conn, err := cs.connectionRepo.GetOpenForMember(ctx, nil, memberID)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	isA, ok := conn.Side(memberID)
	if !ok {
		return nil, engine.NewError(engine.CodeInternal, op, "member outside its own connection", nil)
	}

	already := conn.AConfirmed
	counterpartHash := conn.PinBHash
	otherConfirmed := conn.BConfirmed
	if !isA {
		already = conn.BConfirmed
		counterpartHash = conn.PinAHash
		otherConfirmed = conn.AConfirmed
	}
	if already {
		return &ConfirmResult{
			Message:    "you have already confirmed this connection",
			Connection: conn,
		}, nil
	}

	// A confirms with B's PIN and vice versa: presenting the counterpart's
	// PIN proves the two actually met.
	if HashPin(strings.TrimSpace(pin)) != counterpartHash {
		cs.log.Warn("pin mismatch on confirm", "connection_id", conn.ID, "member_id", memberID)
		return &ConfirmResult{
			Message:    "that PIN does not match; ask your match for theirs and try again",
			Connection: conn,
		}, nil
	}

	to := types.ConnectionPending
	if otherConfirmed {
		to = types.ConnectionConfirmed
	}
	updated, err := cs.connectionRepo.MarkConfirmed(ctx, nil, conn.ID, isA, to)
	if err != nil {
		return nil, db.MapError(op, err)
	}
	if !updated {
		return nil, engine.NewError(engine.CodeConflict, op, "connection changed concurrently", nil)
	}

	conn, err = cs.connectionRepo.GetByID(ctx, nil, conn.ID)
	if err != nil {
		return nil, db.MapError(op, err)
	}

	msg := "confirmed; waiting on your match to confirm too"
	if to == types.ConnectionConfirmed {
		msg = "both of you have confirmed; enjoy the connection"
	}
	cs.log.Info("connection confirm", "connection_id", conn.ID, "member_id", memberID, "status", conn.Status)
	return &ConfirmResult{
		Confirmed:     true,
		BothConfirmed: to == types.ConnectionConfirmed,
		Message:       msg,
		Connection:    conn,
	}, nil
}

func (cs *connectionService) Complete(ctx context.Context, connectionID uuid.UUID) error {
	const op = "connection.complete"

	return cs.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		conn, err := cs.connectionRepo.GetByID(ctx, tx, connectionID)
		if err != nil {
			return db.MapError(op, err)
		}
		updated, err := cs.connectionRepo.UpdateStatusFrom(ctx, tx, connectionID, types.ConnectionConfirmed, types.ConnectionCompleted)
		if err != nil {
			return db.MapError(op, err)
		}
		if !updated {
			return engine.NewError(engine.CodeState, op,
				fmt.Sprintf("connection must be confirmed to complete, not %s", conn.Status), nil)
		}

		if err := cs.members.ReleaseTx(ctx, tx, conn.MemberAID, "connection completed"); err != nil {
			return err
		}
		if err := cs.members.ReleaseTx(ctx, tx, conn.MemberBID, "connection completed"); err != nil {
			return err
		}

		cs.log.Info("connection completed", "connection_id", connectionID, "pair_key", conn.PairKey)
		return nil
	})
}

// HashPin returns the SHA-256 hex digest stored in place of a clear PIN.
func HashPin(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}

// generatePin draws a 6-digit numeric PIN from crypto/rand, leading zeros
// included.
func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
