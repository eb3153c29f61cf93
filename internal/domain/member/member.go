package member

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status tracks a member's progress through onboarding, verification, and
// matching. It is the single source of truth: callers never infer it from the
// presence or absence of other records.
type Status string

const (
	StatusOnboarding          Status = "onboarding"
	StatusUnverifiedMember    Status = "unverified_member"
	StatusVerificationPending Status = "verification_pending"
	StatusGroupMember         Status = "group_member"
	StatusActive              Status = "active"
	// StatusMatched is a temporary hold while an introduction is in flight
	// or a connection is underway. Released back to active when the match
	// reaches a terminal non-success state.
	StatusMatched Status = "matched"
)

// ParseStatus maps a wire string onto a known status. ok is false for
// anything outside the state machine.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusOnboarding, StatusUnverifiedMember, StatusVerificationPending,
		StatusGroupMember, StatusActive, StatusMatched:
		return Status(raw), true
	default:
		return "", false
	}
}

// Member identity is platform-scoped: the same handle on two chat platforms
// is two different members.
type Member struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Platform string    `gorm:"not null;uniqueIndex:idx_member_platform_handle,priority:1" json:"platform"`
	Handle   string    `gorm:"not null;uniqueIndex:idx_member_platform_handle,priority:2" json:"handle"`
	Status   Status    `gorm:"not null;index" json:"status"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Member) TableName() string { return "member" }

// StatusEvent is the audit trail row written alongside every status
// transition, in the same transaction as the member update.
type StatusEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID   uuid.UUID `gorm:"type:uuid;not null;index" json:"member_id"`
	FromStatus Status    `gorm:"not null" json:"from_status"`
	ToStatus   Status    `gorm:"not null" json:"to_status"`
	Reason     string    `gorm:"type:text" json:"reason"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}

func (StatusEvent) TableName() string { return "member_status_event" }
