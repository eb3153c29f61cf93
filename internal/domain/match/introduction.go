package match

import (
	"time"

	"github.com/google/uuid"
)

// IntroductionRecord is the outbound proposal artifact: one row per proposal
// attempt, immutable except for status, which mirrors the pair's MatchRecord
// status as the counterpart responds.
type IntroductionRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PairKey       string    `gorm:"not null;index" json:"pair_key"`
	MatchRecordID uuid.UUID `gorm:"type:uuid;not null;index" json:"match_record_id"`
	FromMemberID  uuid.UUID `gorm:"type:uuid;not null;index" json:"from_member_id"`
	ToMemberID    uuid.UUID `gorm:"type:uuid;not null;index" json:"to_member_id"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	Status        Status    `gorm:"not null;index" json:"status"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (IntroductionRecord) TableName() string { return "introduction_record" }
