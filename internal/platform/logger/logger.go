// Package logger wraps zap's sugared logger and scrubs sensitive fields
// before they reach a sink.
package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
)

// Logger is the logging handle passed through the app. Every write path runs
// its key/value pairs through the redactor first.
type Logger struct {
	sl *zap.SugaredLogger
}

// New builds a logger for the given mode. Anything other than prod or
// production gets the human-readable development encoder.
func New(mode string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if m := strings.ToLower(mode); m == "prod" || m == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sl: zl.Sugar()}, nil
}

func (l *Logger) Sync() { _ = l.sl.Sync() }

func (l *Logger) Debug(msg string, kvs ...any) { l.sl.Debugw(msg, redact(kvs)...) }
func (l *Logger) Info(msg string, kvs ...any)  { l.sl.Infow(msg, redact(kvs)...) }
func (l *Logger) Warn(msg string, kvs ...any)  { l.sl.Warnw(msg, redact(kvs)...) }
func (l *Logger) Error(msg string, kvs ...any) { l.sl.Errorw(msg, redact(kvs)...) }
func (l *Logger) Fatal(msg string, kvs ...any) { l.sl.Fatalw(msg, redact(kvs)...) }

// With returns a child logger carrying the given fields.
func (l *Logger) With(kvs ...any) *Logger {
	return &Logger{sl: l.sl.With(redact(kvs)...)}
}

var (
	redactorOnce   sync.Once
	sharedRedactor *redactor
)

// activeRedactor is built once from the environment. Nil means scrubbing is
// off and pairs pass through untouched.
func activeRedactor() *redactor {
	redactorOnce.Do(func() {
		if envutil.Bool("LOG_REDACTION_ENABLED", false) {
			sharedRedactor = &redactor{salt: envutil.String("LOG_HASH_SALT", "")}
		}
	})
	return sharedRedactor
}

func redact(kvs []any) []any {
	return redactWith(activeRedactor(), kvs)
}

func redactWith(r *redactor, kvs []any) []any {
	if r == nil || len(kvs) == 0 {
		return kvs
	}
	out := make([]any, 0, len(kvs))
	for i := 0; i+1 < len(kvs); i += 2 {
		key := strings.TrimSpace(strings.ToLower(stringify(kvs[i])))
		out = append(out, stringify(kvs[i]), r.value(key, kvs[i+1]))
	}
	if len(kvs)%2 == 1 {
		out = append(out, kvs[len(kvs)-1])
	}
	return out
}

type redactor struct {
	salt string
}

func (r *redactor) value(key string, v any) any {
	if key != "" {
		if sensitiveKey(key) {
			return "[REDACTED]"
		}
		if fingerprintKey(key) {
			return r.fingerprint(v)
		}
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, nested := range t {
			out[k] = r.value(strings.TrimSpace(strings.ToLower(k)), nested)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, nested := range t {
			out[i] = r.value("", nested)
		}
		return out
	default:
		return v
	}
}

// Meeting PINs are shared secrets and profile text is member-authored PII;
// neither belongs in log output.
var sensitiveKeyParts = []string{
	"pin", "token", "authorization", "password", "secret",
	"api_key", "apikey", "persona_text", "preference_text",
}

func sensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

// Member ids and handles stay correlatable across log lines without being
// readable.
func fingerprintKey(key string) bool {
	return strings.Contains(key, "member_id") || strings.Contains(key, "handle")
}

func (r *redactor) fingerprint(v any) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
