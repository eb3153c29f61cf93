package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/kindredlabs/kindred-backend/internal/domain/member"
)

// ProposalSend records one successful proposal send for quota accounting.
// Usage within the rolling window is derived by counting rows with sent_at
// inside the trailing window; there is no mutable counter to reset.
type ProposalSend struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	MemberID uuid.UUID        `gorm:"type:uuid;not null;index:idx_proposal_send_member_sent,priority:1" json:"member_id"`
	Tier     member.QuotaTier `gorm:"not null" json:"tier"`
	SentAt   time.Time        `gorm:"not null;index:idx_proposal_send_member_sent,priority:2" json:"sent_at"`
}

func (ProposalSend) TableName() string { return "proposal_send" }

// Usage is the computed view of a member's quota window.
type Usage struct {
	Count   int       `json:"count"`
	Cap     int       `json:"cap"`
	ResetAt time.Time `json:"reset_at"`
}

// Remaining reports how many sends are left in the current window.
func (u Usage) Remaining() int {
	if r := u.Cap - u.Count; r > 0 {
		return r
	}
	return 0
}
