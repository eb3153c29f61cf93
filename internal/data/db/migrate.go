package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/kindredlabs/kindred-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity + lifecycle
		// =========================
		&types.Member{},
		&types.StatusEvent{},

		// =========================
		// Extracted profiles
		// =========================
		&types.PersonaProfile{},
		&types.ConnectionPreference{},

		// =========================
		// Matching + introductions
		// =========================
		&types.MatchRecord{},
		&types.IntroductionRecord{},
		&types.ProposalSend{},

		// =========================
		// Accepted-pair meetings
		// =========================
		&types.ConnectionRecord{},
	)
}

// EnsureMatchIndexes adds the Postgres-only composite indexes the hot read
// paths lean on. Called from the production bootstrap; the tag-driven indexes
// from AutoMigrateAll are enough everywhere else.
func EnsureMatchIndexes(db *gorm.DB) error {
	// FIFO proposal selection scans (member_id, status, created_at).
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_match_record_member_status_created
		ON match_record (member_id, status, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_match_record_member_status_created: %w", err)
	}

	// Inbound-proposal lookup for respond().
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_introduction_to_status_created
		ON introduction_record (to_member_id, status, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_introduction_to_status_created: %w", err)
	}

	return nil
}
