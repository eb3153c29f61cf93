package member

// CanTransition reports whether a status change is allowed. The progression
// is linear up to group_member; from there members move between active and
// matched as introductions open and close. Everything not listed is rejected,
// including same-to-same.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusOnboarding:
		return to == StatusUnverifiedMember
	case StatusUnverifiedMember:
		return to == StatusVerificationPending
	case StatusVerificationPending:
		return to == StatusGroupMember
	case StatusGroupMember:
		return to == StatusActive || to == StatusMatched
	case StatusActive:
		return to == StatusMatched
	case StatusMatched:
		return to == StatusActive
	default:
		return false
	}
}

// GuardResult carries an allow/deny decision plus a human-readable reason
// suitable for rendering back to the member.
type GuardResult struct {
	Allowed bool
	Reason  string
}

func allow() GuardResult { return GuardResult{Allowed: true} }

// CanInitiateDiscovery gates the search flow. Only a matched member is
// blocked; earlier statuses may browse candidates even though they cannot
// yet send a proposal.
func CanInitiateDiscovery(s Status) GuardResult {
	if s == StatusMatched {
		return GuardResult{Reason: "you already have a match in progress; complete or close it before searching again"}
	}
	return allow()
}

// CanPropose gates sending an introduction.
func CanPropose(s Status) GuardResult {
	switch s {
	case StatusVerificationPending, StatusGroupMember:
		return allow()
	case StatusMatched:
		return GuardResult{Reason: "you already have a match in progress"}
	case StatusActive:
		return GuardResult{Reason: "introductions come to you at this stage; keep an eye out for proposals from new members"}
	default:
		return GuardResult{Reason: "finish onboarding before sending introductions"}
	}
}

// DiscoveryEligible reports whether a member may appear as a candidate in
// someone else's search results.
func DiscoveryEligible(s Status) bool {
	return s == StatusGroupMember || s == StatusActive
}

// EligibleStatuses lists the statuses DiscoveryEligible accepts, for queries
// that filter candidate pools in bulk.
func EligibleStatuses() []Status {
	return []Status{StatusGroupMember, StatusActive}
}

// QuotaTier buckets members into proposal allowances. Verified members get a
// larger daily budget than members still working through verification.
type QuotaTier string

const (
	TierUnverified QuotaTier = "unverified"
	TierVerified   QuotaTier = "verified"
)

// TierForStatus maps a member status onto its quota tier.
func TierForStatus(s Status) QuotaTier {
	switch s {
	case StatusGroupMember, StatusActive, StatusMatched:
		return TierVerified
	default:
		return TierUnverified
	}
}
