package match

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus tracks an accepted pair's real-world meeting exchange.
type ConnectionStatus string

const (
	// ConnectionPending: PINs issued, waiting for both sides to confirm.
	ConnectionPending ConnectionStatus = "pending"
	// ConnectionConfirmed: both participants presented the counterpart's PIN.
	ConnectionConfirmed ConnectionStatus = "confirmed"
	// ConnectionCompleted: the pair closed out the connection; both members
	// are released back into the candidate pool.
	ConnectionCompleted ConnectionStatus = "completed"
)

// ConnectionRecord is opened when a proposal is accepted. Each participant
// receives a PIN to hand to the other in person; only SHA-256 hex digests
// are stored. Member A is always the lexically smaller UUID so the row is
// canonical regardless of who accepted.
type ConnectionRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PairKey       string    `gorm:"not null;uniqueIndex" json:"pair_key"`
	MatchRecordID uuid.UUID `gorm:"type:uuid;not null" json:"match_record_id"`
	MemberAID     uuid.UUID `gorm:"type:uuid;not null;index" json:"member_a_id"`
	MemberBID     uuid.UUID `gorm:"type:uuid;not null;index" json:"member_b_id"`

	PinAHash   string `gorm:"not null" json:"-"`
	PinBHash   string `gorm:"not null" json:"-"`
	AConfirmed bool   `gorm:"not null" json:"a_confirmed"`
	BConfirmed bool   `gorm:"not null" json:"b_confirmed"`

	Status    ConnectionStatus `gorm:"not null;index" json:"status"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
}

func (ConnectionRecord) TableName() string { return "connection_record" }

// Side reports whether memberID is participant A or B of the connection.
// ok is false for members outside the pair.
func (c *ConnectionRecord) Side(memberID uuid.UUID) (isA bool, ok bool) {
	switch memberID {
	case c.MemberAID:
		return true, true
	case c.MemberBID:
		return false, true
	default:
		return false, false
	}
}
