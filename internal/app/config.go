package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	HTTPAddr    string

	AllowOrigins   []string
	TracingEnabled bool

	// EmbeddingDims must match the embedding model; the neo4j vector index
	// is created with this dimensionality.
	EmbeddingDims int

	// ReconcileInterval > 0 enables the background ledger sweep.
	ReconcileInterval time.Duration

	Quota     services.QuotaConfig
	Discovery services.DiscoveryConfig
}

// fileConfig is the optional KINDRED_CONFIG_FILE yaml shape. Environment
// variables win over file values, file values win over defaults.
type fileConfig struct {
	ServiceName  string   `yaml:"service_name"`
	Environment  string   `yaml:"environment"`
	HTTPAddr     string   `yaml:"http_addr"`
	AllowOrigins []string `yaml:"allow_origins"`

	EmbeddingDims    int `yaml:"embedding_dims"`
	ReconcileSeconds int `yaml:"reconcile_seconds"`

	Quota struct {
		UnverifiedCap int `yaml:"unverified_cap"`
		VerifiedCap   int `yaml:"verified_cap"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"quota"`

	Discovery struct {
		CandidateLimit int     `yaml:"candidate_limit"`
		MinSimilarity  float64 `yaml:"min_similarity"`
	} `yaml:"discovery"`
}

func defaultConfig() Config {
	return Config{
		ServiceName:   "kindred-backend",
		Environment:   "development",
		HTTPAddr:      ":8080",
		EmbeddingDims: 1536,
		Quota:         services.DefaultQuotaConfig(),
		Discovery:     services.DefaultDiscoveryConfig(),
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := defaultConfig()

	if path := strings.TrimSpace(os.Getenv("KINDRED_CONFIG_FILE")); path != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			log.Warn("config file ignored", "path", path, "error", err)
		} else {
			log.Info("config file applied", "path", path)
		}
	}

	cfg.ServiceName = envutil.String("KINDRED_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("KINDRED_ENV", cfg.Environment)
	cfg.Version = envutil.String("KINDRED_VERSION", cfg.Version)
	cfg.HTTPAddr = envutil.String("KINDRED_HTTP_ADDR", cfg.HTTPAddr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if raw := strings.TrimSpace(os.Getenv("KINDRED_CORS_ORIGINS")); raw != "" {
		cfg.AllowOrigins = splitOrigins(raw)
	}
	cfg.TracingEnabled = envutil.Bool("OTEL_ENABLED", cfg.TracingEnabled)

	cfg.EmbeddingDims = envutil.Int("KINDRED_EMBED_DIMS", cfg.EmbeddingDims)
	cfg.ReconcileInterval = envutil.Duration("KINDRED_RECONCILE_SECONDS", cfg.ReconcileInterval)

	cfg.Quota.UnverifiedCap = envutil.Int("KINDRED_QUOTA_UNVERIFIED_CAP", cfg.Quota.UnverifiedCap)
	cfg.Quota.VerifiedCap = envutil.Int("KINDRED_QUOTA_VERIFIED_CAP", cfg.Quota.VerifiedCap)
	cfg.Quota.Window = envutil.Duration("KINDRED_QUOTA_WINDOW_SECONDS", cfg.Quota.Window)

	cfg.Discovery.CandidateLimit = envutil.Int("KINDRED_CANDIDATE_LIMIT", cfg.Discovery.CandidateLimit)
	cfg.Discovery.MinSimilarity = envutil.Float64("KINDRED_MIN_SIMILARITY", cfg.Discovery.MinSimilarity)

	return cfg
}

func applyConfigFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.ServiceName != "" {
		cfg.ServiceName = fc.ServiceName
	}
	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if len(fc.AllowOrigins) > 0 {
		cfg.AllowOrigins = fc.AllowOrigins
	}
	if fc.EmbeddingDims > 0 {
		cfg.EmbeddingDims = fc.EmbeddingDims
	}
	if fc.ReconcileSeconds > 0 {
		cfg.ReconcileInterval = time.Duration(fc.ReconcileSeconds) * time.Second
	}
	if fc.Quota.UnverifiedCap > 0 {
		cfg.Quota.UnverifiedCap = fc.Quota.UnverifiedCap
	}
	if fc.Quota.VerifiedCap > 0 {
		cfg.Quota.VerifiedCap = fc.Quota.VerifiedCap
	}
	if fc.Quota.WindowSeconds > 0 {
		cfg.Quota.Window = time.Duration(fc.Quota.WindowSeconds) * time.Second
	}
	if fc.Discovery.CandidateLimit > 0 {
		cfg.Discovery.CandidateLimit = fc.Discovery.CandidateLimit
	}
	if fc.Discovery.MinSimilarity > 0 {
		cfg.Discovery.MinSimilarity = fc.Discovery.MinSimilarity
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
