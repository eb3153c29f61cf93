package prompts

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestProfileExtractionMentionsBothKeys(t *testing.T) {
	p := ProfileExtraction("  I spend weekends restoring synths.  ")
	if p.Name != ProfileExtractionName {
		t.Fatalf("name = %q", p.Name)
	}
	if !strings.Contains(p.System, KeyPersona+":") || !strings.Contains(p.System, KeyLookingFor+":") {
		t.Fatalf("system prompt missing required keys:\n%s", p.System)
	}
	if p.User != "I spend weekends restoring synths." {
		t.Fatalf("user = %q", p.User)
	}
}

func TestCompatibilityScoreNumbersCandidates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := CompatibilityScore(ScoreInput{
		PersonaText:    "quiet builder",
		PreferenceText: "someone outdoorsy",
		Candidates: []ScoreCandidate{
			{ID: a, Text: "hiker"},
			{ID: b, Text: "climber"},
		},
	})
	if !strings.Contains(p.User, "1. id: "+a.String()) {
		t.Fatalf("first candidate not numbered:\n%s", p.User)
	}
	if !strings.Contains(p.User, "2. id: "+b.String()) {
		t.Fatalf("second candidate not numbered:\n%s", p.User)
	}
	if !strings.Contains(p.System, KeyBestMatch+":") || !strings.Contains(p.System, KeyReasoning+":") {
		t.Fatalf("system prompt missing required keys:\n%s", p.System)
	}
	if !strings.Contains(p.System, NoneToken) {
		t.Fatalf("system prompt never mentions the none token:\n%s", p.System)
	}
}

func TestIntroductionMessageTemplateSelection(t *testing.T) {
	in := IntroInput{
		RecipientPersona: "jazz bassist",
		RequesterPersona: "vinyl collector",
		Reasoning:        "82 both obsess over analog sound",
	}

	peer := IntroductionMessage(in)
	if strings.Contains(peer.System, "verification") {
		t.Fatalf("peer template mentions verification:\n%s", peer.System)
	}

	in.NeedsVerification = true
	verify := IntroductionMessage(in)
	if !strings.Contains(verify.System, "verification") {
		t.Fatalf("verification template missing verification wording:\n%s", verify.System)
	}
	if peer.System == verify.System {
		t.Fatal("template selection had no effect")
	}
	for _, p := range []Prompt{peer, verify} {
		if !strings.Contains(p.User, "jazz bassist") || !strings.Contains(p.User, "vinyl collector") {
			t.Fatalf("user prompt missing personas:\n%s", p.User)
		}
		if !strings.Contains(p.User, "analog sound") {
			t.Fatalf("user prompt missing reasoning:\n%s", p.User)
		}
	}
}

func TestFingerprintStableAndVersionSensitive(t *testing.T) {
	p1 := ProfileExtraction("hello")
	p2 := ProfileExtraction("hello")
	if p1.Fingerprint() != p2.Fingerprint() {
		t.Fatal("same prompt produced different fingerprints")
	}
	p2.Version++
	if p1.Fingerprint() == p2.Fingerprint() {
		t.Fatal("version bump did not change fingerprint")
	}
}
