package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	matchrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/match"
	profilerepo "github.com/kindredlabs/kindred-backend/internal/data/repos/profile"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
	"github.com/kindredlabs/kindred-backend/internal/domain/match"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// reconcileBatch bounds one reconciliation sweep so the admin endpoint stays
// responsive on a large backlog; repeated invocations drain the rest.
const reconcileBatch = 500

// LedgerService owns the match ledger. A logical match is two mirrored rows
// sharing a PairKey; the (pair_key, member_id) unique index is the dedup
// authority, and every pair read runs a repair check so a crash between the
// two row writes cannot leave a permanently one-sided match.
type LedgerService interface {
	// RecordMatch is idempotent at the unordered-pair level. The returned
	// record is memberID's row; created is false when a logical match for
	// the pair already existed in either direction.
	RecordMatch(ctx context.Context, memberID, counterpartID uuid.UUID, score int, reasoning string, initiatorID uuid.UUID) (*types.MatchRecord, bool, error)
	AdvanceStatus(ctx context.Context, matchRecordID uuid.UUID, to types.MatchStatus) error
	AdvanceStatusTx(ctx context.Context, tx *gorm.DB, matchRecordID uuid.UUID, to types.MatchStatus) error
	HasExistingMatch(ctx context.Context, u, v uuid.UUID) (bool, error)
	// OldestMatchFound returns memberID's oldest match_found row, or nil
	// when there is nothing to propose.
	OldestMatchFound(ctx context.Context, memberID uuid.UUID) (*types.MatchRecord, error)
	CounterpartIDs(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error)
	// RepairPair completes a one-row pair forward by mirroring the
	// surviving row. Reports whether a repair happened.
	RepairPair(ctx context.Context, tx *gorm.DB, pairKey string) (bool, error)
	// Reconcile sweeps for asymmetric pairs and repairs them.
	Reconcile(ctx context.Context) (int, error)
}

type ledgerService struct {
	txRunner    db.TxRunner
	log         *logger.Logger
	matchRepo   matchrepo.MatchRepo
	profileRepo profilerepo.ProfileRepo
	clock       Clock
}

func NewLedgerService(txRunner db.TxRunner, log *logger.Logger, matchRepo matchrepo.MatchRepo, profileRepo profilerepo.ProfileRepo, clock Clock) LedgerService {
	if clock == nil {
		clock = SystemClock
	}
	return &ledgerService{
		txRunner:    txRunner,
		log:         log.With("service", "LedgerService"),
		matchRepo:   matchRepo,
		profileRepo: profileRepo,
		clock:       clock,
	}
}

func (ls *ledgerService) RecordMatch(ctx context.Context, memberID, counterpartID uuid.UUID, score int, reasoning string, initiatorID uuid.UUID) (*types.MatchRecord, bool, error) {
	const op = "ledger.record_match"

	if memberID == uuid.Nil || counterpartID == uuid.Nil || memberID == counterpartID {
		return nil, false, engine.NewError(engine.CodeValidation, op, "a match needs two distinct members", nil)
	}

	pairKey := types.PairKey(memberID, counterpartID)
	var (
		rec     *types.MatchRecord
		created bool
	)
	err := ls.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		ownPersona, ownPref := ls.profileTexts(ctx, tx, memberID)
		otherPersona, otherPref := ls.profileTexts(ctx, tx, counterpartID)

		now := ls.clock()
		rows := []*types.MatchRecord{
			{
				ID:                 uuid.New(),
				PairKey:            pairKey,
				MemberID:           memberID,
				CounterpartID:      counterpartID,
				InitiatorID:        initiatorID,
				Score:              score,
				Reasoning:          reasoning,
				Status:             types.MatchFound,
				OwnerPersona:       ownPersona,
				OwnerPreference:    ownPref,
				CounterpartPersona: otherPersona,
				CreatedAt:          now,
				UpdatedAt:          now,
			},
			{
				ID:                 uuid.New(),
				PairKey:            pairKey,
				MemberID:           counterpartID,
				CounterpartID:      memberID,
				InitiatorID:        initiatorID,
				Score:              score,
				Reasoning:          reasoning,
				Status:             types.MatchFound,
				OwnerPersona:       otherPersona,
				OwnerPreference:    otherPref,
				CounterpartPersona: ownPersona,
				CreatedAt:          now,
				UpdatedAt:          now,
			},
		}

		affected, err := ls.matchRepo.InsertPairRows(ctx, tx, rows)
		if err != nil {
			return db.MapError(op, err)
		}
		created = affected == 2
		if affected == 1 {
			ls.log.Warn("completed one-sided pair while recording", "pair_key", pairKey)
		}

		existing, err := ls.matchRepo.GetForMember(ctx, tx, pairKey, memberID)
		if err != nil {
			return db.MapError(op, err)
		}
		rec = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		ls.log.Info("match recorded", "pair_key", pairKey, "score", score, "initiator_id", initiatorID)
	}
	return rec, created, nil
}

func (ls *ledgerService) AdvanceStatus(ctx context.Context, matchRecordID uuid.UUID, to types.MatchStatus) error {
	return ls.txRunner.InTx(ctx, func(tx *gorm.DB) error {
		return ls.AdvanceStatusTx(ctx, tx, matchRecordID, to)
	})
}

func (ls *ledgerService) AdvanceStatusTx(ctx context.Context, tx *gorm.DB, matchRecordID uuid.UUID, to types.MatchStatus) error {
	const op = "ledger.advance_status"

	row, err := ls.matchRepo.GetByID(ctx, tx, matchRecordID)
	if err != nil {
		return db.MapError(op, err)
	}
	if !match.CanTransition(row.Status, to) {
		return engine.NewError(engine.CodeState, op,
			fmt.Sprintf("cannot move match from %s to %s", row.Status, to), nil)
	}

	// Complete a one-sided pair before the conditional write so both rows
	// move together.
	if _, err := ls.RepairPair(ctx, tx, row.PairKey); err != nil {
		return err
	}

	n, err := ls.matchRepo.UpdateStatusWhere(ctx, tx, row.PairKey, []types.MatchStatus{row.Status}, to)
	if err != nil {
		return db.MapError(op, err)
	}
	if n != 2 {
		return engine.NewError(engine.CodeConflict, op, "pair status changed concurrently", nil)
	}

	ls.log.Info("match advanced", "pair_key", row.PairKey, "from", row.Status, "to", to)
	return nil
}

func (ls *ledgerService) HasExistingMatch(ctx context.Context, u, v uuid.UUID) (bool, error) {
	has, err := ls.matchRepo.HasPair(ctx, nil, types.PairKey(u, v))
	if err != nil {
		return false, db.MapError("ledger.has_existing_match", err)
	}
	return has, nil
}

func (ls *ledgerService) OldestMatchFound(ctx context.Context, memberID uuid.UUID) (*types.MatchRecord, error) {
	const op = "ledger.oldest_match_found"

	row, err := ls.matchRepo.OldestWithStatus(ctx, nil, memberID, types.MatchFound)
	if err != nil {
		if mapped := db.MapError(op, err); engine.IsCode(mapped, engine.CodeNotFound) {
			return nil, nil
		}
		return nil, db.MapError(op, err)
	}
	if _, err := ls.RepairPair(ctx, nil, row.PairKey); err != nil {
		return nil, err
	}
	return row, nil
}

func (ls *ledgerService) CounterpartIDs(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := ls.matchRepo.CounterpartIDs(ctx, nil, memberID)
	if err != nil {
		return nil, db.MapError("ledger.counterpart_ids", err)
	}
	return ids, nil
}

func (ls *ledgerService) RepairPair(ctx context.Context, tx *gorm.DB, pairKey string) (bool, error) {
	const op = "ledger.repair_pair"

	rows, err := ls.matchRepo.GetPairRows(ctx, tx, pairKey)
	if err != nil {
		return false, db.MapError(op, err)
	}
	if len(rows) != 1 {
		return false, nil
	}

	survivor := rows[0]
	// The survivor's row does not carry the counterpart's preference text;
	// pull it from the profile store, tolerating absence.
	ownPref := ""
	if pref, err := ls.profileRepo.GetPreference(ctx, tx, survivor.CounterpartID); err == nil {
		ownPref = pref.Text
	}

	mirror := survivor.Mirror(ownPref)
	mirror.CreatedAt = survivor.CreatedAt
	mirror.UpdatedAt = ls.clock()

	created, err := ls.matchRepo.CreateRow(ctx, tx, mirror)
	if err != nil {
		return false, db.MapError(op, err)
	}
	if created {
		ls.log.Warn("repaired one-sided pair", "pair_key", pairKey, "member_id", mirror.MemberID)
	}
	return created, nil
}

func (ls *ledgerService) Reconcile(ctx context.Context) (int, error) {
	const op = "ledger.reconcile"

	keys, err := ls.matchRepo.ListAsymmetricPairKeys(ctx, nil, reconcileBatch)
	if err != nil {
		return 0, db.MapError(op, err)
	}

	repaired := 0
	for _, key := range keys {
		ok, err := ls.RepairPair(ctx, nil, key)
		if err != nil {
			ls.log.Warn("reconcile skipped pair", "pair_key", key, "error", err)
			continue
		}
		if ok {
			repaired++
		}
	}
	if repaired > 0 {
		ls.log.Info("reconciled asymmetric pairs", "repaired", repaired, "scanned", len(keys))
	}
	return repaired, nil
}

func (ls *ledgerService) profileTexts(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (persona, preference string) {
	if p, err := ls.profileRepo.GetPersona(ctx, tx, memberID); err == nil {
		persona = p.Text
	}
	if p, err := ls.profileRepo.GetPreference(ctx, tx, memberID); err == nil {
		preference = p.Text
	}
	return persona, preference
}
