package match

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a match through its lifecycle. match_found and
// proposal_pending are live; accepted, declined, and cancelled are terminal.
type Status string

const (
	StatusMatchFound      Status = "match_found"
	StatusProposalPending Status = "proposal_pending"
	StatusAccepted        Status = "accepted"
	StatusDeclined        Status = "declined"
	StatusCancelled       Status = "cancelled"
)

// CanTransition reports whether a match status change is allowed. Terminal
// states accept nothing, including themselves.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusMatchFound:
		return to == StatusProposalPending || to == StatusCancelled
	case StatusProposalPending:
		return to == StatusAccepted || to == StatusDeclined || to == StatusCancelled
	default:
		return false
	}
}

// Terminal reports whether a status ends the match lifecycle.
func Terminal(s Status) bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusCancelled
}

// PairKey canonicalizes an unordered member pair into a deterministic string
// key. Both orderings of the same two IDs produce the same key, which makes
// the (pair_key, member_id) unique index the dedup authority for the pair.
func PairKey(a, b uuid.UUID) string {
	s1, s2 := a.String(), b.String()
	if s2 < s1 {
		s1, s2 = s2, s1
	}
	return s1 + ":" + s2
}

// MatchRecord is one member's directed view of a logical match. Every match
// is stored as two rows sharing a PairKey, one owned by each participant,
// kept at identical status and initiator. Rows are never physically deleted.
type MatchRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PairKey       string    `gorm:"not null;uniqueIndex:idx_match_pair_member,priority:1;index" json:"pair_key"`
	MemberID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_match_pair_member,priority:2;index" json:"member_id"`
	CounterpartID uuid.UUID `gorm:"type:uuid;not null;index" json:"counterpart_id"`
	InitiatorID   uuid.UUID `gorm:"type:uuid;not null" json:"initiator_id"`
	Score         int       `gorm:"not null" json:"score"`
	Reasoning     string    `gorm:"type:text" json:"reasoning"`
	Status        Status    `gorm:"not null;index" json:"status"`

	// Profile snapshots taken at match time, from the row owner's point of
	// view. They survive later profile refreshes so the proposal message is
	// generated from what the scorer actually saw.
	OwnerPersona       string `gorm:"type:text" json:"owner_persona"`
	OwnerPreference    string `gorm:"type:text" json:"owner_preference"`
	CounterpartPersona string `gorm:"type:text" json:"counterpart_persona"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MatchRecord) TableName() string { return "match_record" }

// Mirror builds the counterpart's row for the same logical match. The owner
// and counterpart views swap; ownPreference is the counterpart's preference
// text, which the source row does not carry.
func (m *MatchRecord) Mirror(ownPreference string) *MatchRecord {
	return &MatchRecord{
		ID:                 uuid.New(),
		PairKey:            m.PairKey,
		MemberID:           m.CounterpartID,
		CounterpartID:      m.MemberID,
		InitiatorID:        m.InitiatorID,
		Score:              m.Score,
		Reasoning:          m.Reasoning,
		Status:             m.Status,
		OwnerPersona:       m.CounterpartPersona,
		OwnerPreference:    ownPreference,
		CounterpartPersona: m.OwnerPersona,
	}
}
