package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
)

// MapError maps storage-layer failures into engine error codes. Errors that
// already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*engine.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return engine.Wrap(engine.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return engine.Wrap(engine.CodeConflict, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return engine.Wrap(engine.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return engine.Wrap(engine.CodeConflict, op, err)
		case "23503": // foreign_key_violation
			return engine.Wrap(engine.CodeState, op, err)
		case "40001", "40P01", "55P03": // serialization, deadlock, lock_not_available
			return engine.Wrap(engine.CodeRetryable, op, err)
		}
	}

	// The sqlite driver used in tests reports constraint failures as plain
	// strings, so fall back to message sniffing.
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "duplicate key", "unique constraint", "already exists"):
		return engine.Wrap(engine.CodeConflict, op, err)
	case containsAny(msg, "deadlock", "serialization", "timeout", "temporar"):
		return engine.Wrap(engine.CodeRetryable, op, err)
	}
	return engine.Wrap(engine.CodeInternal, op, err)
}

func containsAny(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
