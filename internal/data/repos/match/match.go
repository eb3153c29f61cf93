package match

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// MatchRepo persists the two-row pair model. The (pair_key, member_id)
// unique index is the dedup authority: InsertPairRows is the conditional
// insert-if-absent write that settles races between two members discovering
// each other simultaneously.
type MatchRepo interface {
	// InsertPairRows inserts whatever subset of rows does not exist yet and
	// reports how many were written. 0 means the pair fully existed, len(rows)
	// means this writer won the race outright, anything between means an
	// earlier partial write was just healed.
	InsertPairRows(ctx context.Context, tx *gorm.DB, rows []*types.MatchRecord) (int64, error)
	CreateRow(ctx context.Context, tx *gorm.DB, row *types.MatchRecord) (bool, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchRecord, error)
	GetPairRows(ctx context.Context, tx *gorm.DB, pairKey string) ([]*types.MatchRecord, error)
	GetForMember(ctx context.Context, tx *gorm.DB, pairKey string, memberID uuid.UUID) (*types.MatchRecord, error)
	HasPair(ctx context.Context, tx *gorm.DB, pairKey string) (bool, error)
	// UpdateStatusWhere moves every row of the pair whose status is in from
	// to the new status, in one statement, and reports how many rows moved.
	UpdateStatusWhere(ctx context.Context, tx *gorm.DB, pairKey string, from []types.MatchStatus, to types.MatchStatus) (int64, error)
	// OldestWithStatus returns the member's oldest row at the given status,
	// by creation time. Proposal selection is FIFO, not best-score-first.
	OldestWithStatus(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, status types.MatchStatus) (*types.MatchRecord, error)
	// CounterpartIDs lists every member the given member has ever been
	// paired with, regardless of match status.
	CounterpartIDs(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]uuid.UUID, error)
	// ListAsymmetricPairKeys finds pairs with only one surviving row.
	ListAsymmetricPairKeys(ctx context.Context, tx *gorm.DB, limit int) ([]string, error)
	ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.MatchRecord, error)
}

type matchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) MatchRepo {
	repoLog := baseLog.With("repo", "MatchRepo")
	return &matchRepo{db: db, log: repoLog}
}

func (mr *matchRepo) InsertPairRows(ctx context.Context, tx *gorm.DB, rows []*types.MatchRecord) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}, {Name: "member_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (mr *matchRepo) CreateRow(ctx context.Context, tx *gorm.DB, row *types.MatchRecord) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}, {Name: "member_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (mr *matchRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.MatchRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var row types.MatchRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (mr *matchRepo) GetPairRows(ctx context.Context, tx *gorm.DB, pairKey string) ([]*types.MatchRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var rows []*types.MatchRecord
	if err := transaction.WithContext(ctx).
		Where("pair_key = ?", pairKey).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (mr *matchRepo) GetForMember(ctx context.Context, tx *gorm.DB, pairKey string, memberID uuid.UUID) (*types.MatchRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var row types.MatchRecord
	if err := transaction.WithContext(ctx).
		Where("pair_key = ? AND member_id = ?", pairKey, memberID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (mr *matchRepo) HasPair(ctx context.Context, tx *gorm.DB, pairKey string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.MatchRecord{}).
		Where("pair_key = ?", pairKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (mr *matchRepo) UpdateStatusWhere(ctx context.Context, tx *gorm.DB, pairKey string, from []types.MatchStatus, to types.MatchStatus) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(from) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.MatchRecord{}).
		Where("pair_key = ? AND status IN ?", pairKey, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (mr *matchRepo) OldestWithStatus(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, status types.MatchStatus) (*types.MatchRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var row types.MatchRecord
	if err := transaction.WithContext(ctx).
		Where("member_id = ? AND status = ?", memberID, status).
		Order("created_at ASC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (mr *matchRepo) CounterpartIDs(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.MatchRecord{}).
		Where("member_id = ?", memberID).
		Pluck("counterpart_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (mr *matchRepo) ListAsymmetricPairKeys(ctx context.Context, tx *gorm.DB, limit int) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if limit <= 0 {
		limit = 100
	}

	var keys []string
	if err := transaction.WithContext(ctx).
		Model(&types.MatchRecord{}).
		Select("pair_key").
		Group("pair_key").
		Having("COUNT(*) = 1").
		Limit(limit).
		Pluck("pair_key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (mr *matchRepo) ListByMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) ([]*types.MatchRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var rows []*types.MatchRecord
	if err := transaction.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
