package domain

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kindredlabs/kindred-backend/internal/domain/match"
	"github.com/kindredlabs/kindred-backend/internal/domain/member"
	"github.com/kindredlabs/kindred-backend/internal/domain/profile"
)

const (
	StatusOnboarding          = member.StatusOnboarding
	StatusUnverifiedMember    = member.StatusUnverifiedMember
	StatusVerificationPending = member.StatusVerificationPending
	StatusGroupMember         = member.StatusGroupMember
	StatusActive              = member.StatusActive
	StatusMatched             = member.StatusMatched

	MatchFound      = match.StatusMatchFound
	ProposalPending = match.StatusProposalPending
	Accepted        = match.StatusAccepted
	Declined        = match.StatusDeclined
	Cancelled       = match.StatusCancelled

	TierUnverified = member.TierUnverified
	TierVerified   = member.TierVerified

	ConnectionPending   = match.ConnectionPending
	ConnectionConfirmed = match.ConnectionConfirmed
	ConnectionCompleted = match.ConnectionCompleted
)

type Member = member.Member
type MemberStatus = member.Status
type StatusEvent = member.StatusEvent
type GuardResult = member.GuardResult
type QuotaTier = member.QuotaTier

type PersonaProfile = profile.PersonaProfile
type ConnectionPreference = profile.ConnectionPreference

type MatchRecord = match.MatchRecord
type MatchStatus = match.Status
type IntroductionRecord = match.IntroductionRecord
type ProposalSend = match.ProposalSend
type Usage = match.Usage
type ConnectionRecord = match.ConnectionRecord
type ConnectionStatus = match.ConnectionStatus

func PairKey(a, b uuid.UUID) string { return match.PairKey(a, b) }

func EncodeEmbedding(vec []float32) (datatypes.JSON, error) {
	return profile.EncodeEmbedding(vec)
}

func DecodeEmbedding(raw datatypes.JSON) ([]float32, error) {
	return profile.DecodeEmbedding(raw)
}
