package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KINDRED_CONFIG_FILE", "KINDRED_SERVICE_NAME", "KINDRED_ENV",
		"KINDRED_HTTP_ADDR", "PORT", "KINDRED_CORS_ORIGINS", "OTEL_ENABLED",
		"KINDRED_EMBED_DIMS", "KINDRED_RECONCILE_SECONDS",
		"KINDRED_QUOTA_UNVERIFIED_CAP", "KINDRED_QUOTA_VERIFIED_CAP",
		"KINDRED_QUOTA_WINDOW_SECONDS", "KINDRED_CANDIDATE_LIMIT",
		"KINDRED_MIN_SIMILARITY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := LoadConfig(newTestLogger(t))

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr: got=%q want=%q", cfg.HTTPAddr, ":8080")
	}
	if cfg.Quota.UnverifiedCap != 1 || cfg.Quota.VerifiedCap != 5 {
		t.Fatalf("quota caps: got=%d/%d want=1/5", cfg.Quota.UnverifiedCap, cfg.Quota.VerifiedCap)
	}
	if cfg.Quota.Window != 24*time.Hour {
		t.Fatalf("quota window: got=%v want=%v", cfg.Quota.Window, 24*time.Hour)
	}
	if cfg.Discovery.CandidateLimit != 5 {
		t.Fatalf("candidate limit: got=%d want=5", cfg.Discovery.CandidateLimit)
	}
	if cfg.TracingEnabled {
		t.Fatal("tracing should default off")
	}
	if cfg.ReconcileInterval != 0 {
		t.Fatalf("reconcile interval should default off, got %v", cfg.ReconcileInterval)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "kindred.yaml")
	body := `
service_name: kindred-staging
http_addr: ":9090"
allow_origins:
  - https://staging.kindred.example
quota:
  verified_cap: 8
  window_seconds: 3600
discovery:
  candidate_limit: 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("KINDRED_CONFIG_FILE", path)

	cfg := LoadConfig(newTestLogger(t))

	if cfg.ServiceName != "kindred-staging" {
		t.Fatalf("service name: got=%q", cfg.ServiceName)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http addr: got=%q", cfg.HTTPAddr)
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "https://staging.kindred.example" {
		t.Fatalf("allow origins: got=%v", cfg.AllowOrigins)
	}
	if cfg.Quota.VerifiedCap != 8 {
		t.Fatalf("verified cap: got=%d want=8", cfg.Quota.VerifiedCap)
	}
	if cfg.Quota.UnverifiedCap != 1 {
		t.Fatalf("unverified cap should keep its default, got=%d", cfg.Quota.UnverifiedCap)
	}
	if cfg.Quota.Window != time.Hour {
		t.Fatalf("quota window: got=%v want=%v", cfg.Quota.Window, time.Hour)
	}
	if cfg.Discovery.CandidateLimit != 10 {
		t.Fatalf("candidate limit: got=%d want=10", cfg.Discovery.CandidateLimit)
	}
}

func TestLoadConfigEnvWinsOverFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "kindred.yaml")
	if err := os.WriteFile(path, []byte("http_addr: \":9090\"\nquota:\n  verified_cap: 8\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("KINDRED_CONFIG_FILE", path)
	t.Setenv("PORT", "7001")
	t.Setenv("KINDRED_QUOTA_VERIFIED_CAP", "3")
	t.Setenv("KINDRED_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := LoadConfig(newTestLogger(t))

	if cfg.HTTPAddr != ":7001" {
		t.Fatalf("http addr: got=%q want=%q", cfg.HTTPAddr, ":7001")
	}
	if cfg.Quota.VerifiedCap != 3 {
		t.Fatalf("verified cap: got=%d want=3", cfg.Quota.VerifiedCap)
	}
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "https://b.example" {
		t.Fatalf("allow origins: got=%v", cfg.AllowOrigins)
	}
	if !cfg.TracingEnabled {
		t.Fatal("tracing should be enabled via env")
	}
}

func TestLoadConfigIgnoresBrokenFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "kindred.yaml")
	if err := os.WriteFile(path, []byte(": not yaml"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("KINDRED_CONFIG_FILE", path)

	cfg := LoadConfig(newTestLogger(t))
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("broken file should leave defaults, got http addr %q", cfg.HTTPAddr)
	}
}
