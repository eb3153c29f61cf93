package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// Client wraps the neo4j driver for the persona similarity index. The index
// is an optional backend: a nil client means "not configured" and callers
// fall back to the relational scan.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

type config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

func loadConfig() config {
	return config{
		URI:      envutil.String("NEO4J_URI", ""),
		User:     envutil.String("NEO4J_USER", "neo4j"),
		Password: envutil.String("NEO4J_PASSWORD", ""),
		Database: envutil.String("NEO4J_DATABASE", ""),
		Timeout:  envutil.Duration("NEO4J_TIMEOUT_SECONDS", 10*time.Second),
		MaxPool:  envutil.Int("NEO4J_MAX_POOL_SIZE", 50),
	}
}

// NewFromEnv builds a client from NEO4J_* variables. Returns (nil, nil) when
// NEO4J_URI is unset so deployments without a graph store keep working; a set
// URI that fails connectivity is an error, not a silent fallback.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: nil logger")
	}

	cfg := loadConfig()
	if cfg.URI == "" {
		return nil, nil
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPool
			c.SocketConnectTimeout = cfg.Timeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: open driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: connectivity check: %w", err)
	}

	clog := log.With("client", "neo4j")
	clog.Debug("connected", "database", cfg.Database)

	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		log:      clog,
	}, nil
}

// Close is safe on a nil client; the persona index treats a closed client the
// same as an unconfigured one.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d := c.Driver
	c.Driver = nil
	return d.Close(ctx)
}
