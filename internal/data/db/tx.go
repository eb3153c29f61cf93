package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
)

// TxRunner is how services open a transaction spanning several repos.
// Services own the boundary; repos accept the tx handle and never begin
// transactions themselves.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return engine.NewError(engine.CodeInternal, "db.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(fn)
}
