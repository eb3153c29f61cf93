// Package testutil provides the shared database and logger plumbing for
// data-layer tests.
package testutil

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

var testLogger = sync.OnceValues(func() (*logger.Logger, error) {
	return logger.New("test")
})

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := testLogger()
	if err != nil {
		tb.Fatalf("test logger: %v", err)
	}
	return log
}

var sharedDB = sync.OnceValues(openShared)

// DB returns the shared test database: Postgres when TEST_POSTGRES_DSN is
// set, otherwise in-memory sqlite. Models keep code-generated UUIDs and
// tag-driven indexes only, so the same schema migrates on both.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	conn, err := sharedDB()
	if err != nil {
		tb.Fatalf("shared test db: %v", err)
	}
	return conn
}

func openShared() (*gorm.DB, error) {
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		conn, err := gorm.Open(postgres.Open(dsn), quietConfig())
		if err != nil {
			return nil, err
		}
		return conn, db.AutoMigrateAll(conn)
	}

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), quietConfig())
	if err != nil {
		return nil, err
	}
	// A single connection keeps every query on the same in-memory database.
	if sqlDB, dbErr := conn.DB(); dbErr == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return conn, db.AutoMigrateAll(conn)
}

func quietConfig() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}
}

// Tx begins a transaction that Cleanup rolls back, keeping repo tests
// isolated on the shared database.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin test tx: %v", tx.Error)
	}
	tb.Cleanup(func() { _ = tx.Rollback().Error })
	return tx
}

var freshSeq int64

// FreshDB opens a private in-memory sqlite database for one test and closes
// it in Cleanup. Service-level tests use it instead of DB+Tx because services
// own their transaction boundaries and commit.
func FreshDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", atomic.AddInt64(&freshSeq, 1))
	conn, err := gorm.Open(sqlite.Open(dsn), quietConfig())
	if err != nil {
		tb.Fatalf("open fresh test db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("fresh test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate fresh test db: %v", err)
	}
	return conn
}
