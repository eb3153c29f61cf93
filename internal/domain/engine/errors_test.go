package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCode(t *testing.T) {
	err := NewError(CodeQuota, "quota.cansend", "window exhausted", nil)
	if !IsCode(err, CodeQuota) {
		t.Fatalf("expected quota code, got %q", CodeOf(err))
	}
	if IsCode(err, CodeParse) {
		t.Fatalf("quota error must not match parse code")
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	inner := NewError(CodeState, "ledger.advance", "illegal transition", nil)
	outer := fmt.Errorf("propose: %w", inner)
	if !IsCode(outer, CodeState) {
		t.Fatalf("expected state code through wrapping, got %q", CodeOf(outer))
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if code := CodeOf(errors.New("boom")); code != "" {
		t.Fatalf("expected empty code for plain error, got %q", code)
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap(CodeInternal, "op", nil); err != nil {
		t.Fatalf("wrapping nil must return nil, got %v", err)
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(CodeParse, "scorer.parse", "missing best_match", nil)
	want := "[parse] scorer.parse: missing best_match"
	if err.Error() != want {
		t.Fatalf("unexpected error string: got %q want %q", err.Error(), want)
	}
}

func TestError_MessageOmitsEmptyParts(t *testing.T) {
	err := NewError(CodeQuota, "", "window exhausted", nil)
	if got := err.Error(); got != "[quota] window exhausted" {
		t.Fatalf("unexpected error string: %q", got)
	}
	bare := NewError(CodeInternal, "", "", nil)
	if got := bare.Error(); got != "[internal]" {
		t.Fatalf("unexpected bare error string: %q", got)
	}
}
