package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Name identifies a prompt template. Names are stable across versions and
// show up in logs next to the model response, so keep them short.
type Name string

const (
	ProfileExtractionName   Name = "profile_extraction"
	CompatibilityScoreName  Name = "compatibility_score"
	IntroductionMessageName Name = "introduction_message"
)

// Prompt is a rendered system/user pair ready for one GenerateText call.
type Prompt struct {
	Name    Name
	Version int
	System  string
	User    string
}

// Fingerprint is a stable digest of the rendered prompt, logged alongside
// model responses so regressions can be traced back to wording changes.
func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(string(p.Name)) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.System) + "|" +
			strings.TrimSpace(p.User),
	))
	return hex.EncodeToString(h[:])
}

// Response field keys. Every prompt instructs the model to answer in
// line-oriented `key: value` form; these constants are the contract shared
// with services/payload callers.
const (
	KeyPersona    = "persona"
	KeyLookingFor = "looking_for"
	KeyBestMatch  = "best_match"
	KeyReasoning  = "reasoning"
	KeyMessage    = "message"
)

// NoneToken is the value the scorer returns in best_match when no candidate
// clears the bar.
const NoneToken = "none"

const extractionSystem = `You are the intake analyst for a members-only introduction service.
Given a conversation transcript, distill who the member is and who they hope to meet.

Answer with exactly two lines and nothing else:
persona: <2-4 sentences describing the member: interests, work, temperament>
looking_for: <2-4 sentences describing the kind of person they want to be introduced to>

Write in third person. Do not invent facts absent from the transcript.
If the transcript is too thin to describe the member, still emit both lines with your best reading.`

// ProfileExtraction asks the model to distill a persona and a preference
// description from raw conversation text.
func ProfileExtraction(conversation string) Prompt {
	return Prompt{
		Name:    ProfileExtractionName,
		Version: 2,
		System:  extractionSystem,
		User:    strings.TrimSpace(conversation),
	}
}

// ScoreCandidate is one entry in the scoring shortlist. ID is echoed back by
// the model in best_match, so it must round-trip verbatim.
type ScoreCandidate struct {
	ID   uuid.UUID
	Text string
}

// ScoreInput carries the requester's profile and the shortlist to judge.
type ScoreInput struct {
	PersonaText    string
	PreferenceText string
	Candidates     []ScoreCandidate
}

const scoreSystem = `You are the compatibility judge for a members-only introduction service.
You receive one seeker profile and a numbered list of candidates. Pick the single
best candidate for the seeker, or none if no candidate is a genuinely good fit.

Answer with exactly two lines and nothing else:
best_match: <the candidate id copied verbatim, or the word none>
reasoning: <score> <one or two sentences explaining the fit>

<score> is an integer from 0 to 100 and must be the first token of the reasoning line.
Score 0 means no fit. Never pick a candidate you would score below 40.`

// CompatibilityScore builds the batched scoring prompt over the shortlist.
func CompatibilityScore(in ScoreInput) Prompt {
	var b strings.Builder
	b.WriteString("seeker persona:\n")
	b.WriteString(strings.TrimSpace(in.PersonaText))
	b.WriteString("\n\nseeker is looking for:\n")
	b.WriteString(strings.TrimSpace(in.PreferenceText))
	b.WriteString("\n\ncandidates:\n")
	for i, c := range in.Candidates {
		fmt.Fprintf(&b, "%d. id: %s\n   persona: %s\n", i+1, c.ID, strings.TrimSpace(c.Text))
	}
	return Prompt{
		Name:    CompatibilityScoreName,
		Version: 3,
		System:  scoreSystem,
		User:    b.String(),
	}
}

// IntroInput carries both sides of a pending introduction. The message is
// always addressed to the matched counterpart; NeedsVerification selects the
// wording used when the requester has not finished verification yet.
type IntroInput struct {
	RecipientPersona  string
	RequesterPersona  string
	Reasoning         string
	NeedsVerification bool
}

const introPeerSystem = `You write short, warm introduction messages for a members-only introduction service.
The recipient is a verified member being offered an introduction to another member.
Describe why the two seem compatible, without revealing names or contact details.
Close by asking whether they would like to accept the introduction.

Answer with exactly one line and nothing else:
message: <the introduction message, 2-4 sentences>`

const introVerifySystem = `You write short, warm introduction messages for a members-only introduction service.
The recipient is being offered an introduction to a promising member who is still
completing member verification; the introduction goes ahead once verification finishes.
Describe why the two seem compatible, without revealing names or contact details, mention
the pending verification, and close by asking whether they would like to accept.

Answer with exactly one line and nothing else:
message: <the introduction message, 2-4 sentences>`

// IntroductionMessage builds the proposal-message prompt. Template choice is
// a pure function of NeedsVerification.
func IntroductionMessage(in IntroInput) Prompt {
	system := introPeerSystem
	if in.NeedsVerification {
		system = introVerifySystem
	}
	var b strings.Builder
	b.WriteString("recipient persona:\n")
	b.WriteString(strings.TrimSpace(in.RecipientPersona))
	b.WriteString("\n\nmatched member persona:\n")
	b.WriteString(strings.TrimSpace(in.RequesterPersona))
	if r := strings.TrimSpace(in.Reasoning); r != "" {
		b.WriteString("\n\nwhy they matched:\n")
		b.WriteString(r)
	}
	return Prompt{
		Name:    IntroductionMessageName,
		Version: 2,
		System:  system,
		User:    b.String(),
	}
}
