// Package payload parses the line-oriented key/value responses the engine
// asks the reasoning model to produce. Every prompt instructs the model to
// answer with lines of the form "key: value"; this package turns that text
// into a tagged Result that is either Parsed (fields available) or a
// ParseFailure (raw text preserved for logging). Call sites must handle both
// variants; there is no way to read fields out of a failed parse.
package payload

import (
	"strings"
	"unicode"
)

// Fields holds the parsed key/value lines, keys lowercased.
type Fields map[string]string

// Get returns the trimmed value for key (case-insensitive).
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f[strings.ToLower(strings.TrimSpace(key))])
}

// Has reports whether key is present with a non-empty value.
func (f Fields) Has(key string) bool {
	return f.Get(key) != ""
}

// Result is the tagged outcome of a parse: either Parsed (fields non-nil) or
// a ParseFailure carrying the raw text. The zero value is a failure with no
// raw text.
type Result struct {
	fields Fields
	raw    string
}

// Parsed wraps successfully extracted fields.
func Parsed(fields Fields) Result {
	if fields == nil {
		fields = Fields{}
	}
	return Result{fields: fields}
}

// ParseFailure wraps a response that could not be parsed.
func ParseFailure(raw string) Result {
	return Result{raw: raw}
}

// Fields returns the parsed fields and whether the parse succeeded.
func (r Result) Fields() (Fields, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields, true
}

// OK reports whether the result is a successful parse.
func (r Result) OK() bool { return r.fields != nil }

// Raw returns the original response text for failed parses; empty for
// successful ones.
func (r Result) Raw() string { return r.raw }

// Parse extracts "key: value" lines from raw. Lines without a colon are
// treated as continuations of the previous value, which tolerates models
// wrapping long reasoning across lines. The result is a ParseFailure when no
// key/value line is found or when any of the required keys is missing or
// empty.
func Parse(raw string, required ...string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParseFailure(raw)
	}

	// Models occasionally wrap key/value output in a code fence.
	text = stripFence(text)

	fields := Fields{}
	lastKey := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lastKey = ""
			continue
		}
		key, value, ok := splitKeyValue(trimmed)
		if !ok {
			if lastKey != "" {
				fields[lastKey] = strings.TrimSpace(fields[lastKey] + " " + trimmed)
			}
			continue
		}
		fields[key] = value
		lastKey = key
	}

	if len(fields) == 0 {
		return ParseFailure(raw)
	}
	for _, key := range required {
		if !fields.Has(key) {
			return ParseFailure(raw)
		}
	}
	return Parsed(fields)
}

// splitKeyValue accepts "key: value" where key is a short identifier-like
// token. A colon inside prose ("note: we think...") still parses; that is
// fine because prompts only ask for known keys and unknown ones are ignored.
func splitKeyValue(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(strings.Trim(line[:idx], "*-# \t")))
	if key == "" || len(key) > 40 {
		return "", "", false
	}
	for _, r := range key {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '_' && r != ' ' {
			return "", "", false
		}
	}
	key = strings.ReplaceAll(key, " ", "_")
	return key, strings.TrimSpace(line[idx+1:]), true
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// LeadingInt extracts the integer a string begins with, skipping leading
// whitespace. Used for compatibility scores, which prompts require to be the
// first token of the reasoning field. Returns ok=false when the string does
// not begin with a digit.
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	// Guard absurd lengths; scores are 0-100.
	if end > 9 {
		return 0, false
	}
	n := 0
	for i := 0; i < end; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// ClampScore bounds a parsed score to the 0-100 scale.
func ClampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
