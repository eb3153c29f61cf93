package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/observability"
	"github.com/kindredlabs/kindred-backend/internal/platform/envutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	log.Info("loading configuration")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	gdb := pg.DB()
	if err := db.AutoMigrateAll(gdb); err != nil {
		log.Sync()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := db.EnsureMatchIndexes(gdb); err != nil {
		log.Sync()
		return nil, fmt.Errorf("ensure match indexes: %w", err)
	}

	clients, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(gdb, log)
	serviceset := wireServices(gdb, log, cfg, clients, reposet)
	handlerset := wireHandlers(log, cfg, serviceset)
	router := wireRouter(log, cfg, handlerset)

	return &App{
		Log:          log,
		DB:           gdb,
		Router:       router,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the periodic ledger sweep when an
// interval is configured. Safe to call once; later calls are no-ops.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Cfg.ReconcileInterval > 0 {
		go a.runReconcileLoop(ctx, a.Cfg.ReconcileInterval)
	}
}

func (a *App) runReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.Log.Info("ledger reconcile loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := a.Services.Ledger.Reconcile(ctx)
			if err != nil {
				a.Log.Warn("ledger reconcile sweep failed", "error", err)
				continue
			}
			if repaired > 0 {
				a.Log.Info("ledger reconcile sweep repaired pairs", "repaired", repaired)
			}
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("router not built")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil && a.Log != nil {
			a.Log.Warn("closing postgres pool", "error", err)
		}
		a.pg = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
