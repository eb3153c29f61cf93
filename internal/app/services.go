package app

import (
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/db"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
	"github.com/kindredlabs/kindred-backend/internal/services"
)

type Services struct {
	TxRunner db.TxRunner

	Member       services.MemberService
	Profile      services.ProfileService
	Quota        services.QuotaService
	Ledger       services.LedgerService
	Similarity   services.SimilarityService
	Scorer       services.ScorerService
	Discovery    services.DiscoveryService
	Introduction services.IntroductionService
	Connection   services.ConnectionService

	Deliverer services.Deliverer
}

func wireServices(theDB *gorm.DB, log *logger.Logger, cfg Config, clients Clients, repos Repos) Services {
	log.Info("wiring services")

	txRunner := db.NewGormTxRunner(theDB)

	primary, fallback, writable := wireIndexes(theDB, log, clients.Neo4j, cfg.EmbeddingDims)

	// Deliveries go out on the redis bus when one is configured; local runs
	// fall back to the log so outbound traffic stays visible.
	var deliverer services.Deliverer
	if clients.Bus != nil {
		deliverer = clients.Bus
	} else {
		deliverer = services.NewLogDeliverer(log)
	}

	members := services.NewMemberService(txRunner, log, repos.Member, nil)
	quota := services.NewQuotaService(log, repos.Quota, cfg.Quota, nil)
	ledger := services.NewLedgerService(txRunner, log, repos.Match, repos.Profile, nil)
	profiles := services.NewProfileService(txRunner, log, repos.Profile, clients.OpenAI, writable, nil)
	similarity := services.NewSimilarityService(log, primary, fallback)
	scorer := services.NewScorerService(log, clients.OpenAI)

	discovery := services.NewDiscoveryService(
		log,
		repos.Member,
		repos.Profile,
		profiles,
		similarity,
		scorer,
		ledger,
		clients.OpenAI,
		cfg.Discovery,
	)

	connections := services.NewConnectionService(txRunner, log, repos.Connection, repos.Match, members, nil)

	introductions := services.NewIntroductionService(
		txRunner,
		log,
		repos.Member,
		repos.Match,
		repos.Introduction,
		members,
		ledger,
		quota,
		connections,
		clients.OpenAI,
		deliverer,
		nil,
	)

	return Services{
		TxRunner:     txRunner,
		Member:       members,
		Profile:      profiles,
		Quota:        quota,
		Ledger:       ledger,
		Similarity:   similarity,
		Scorer:       scorer,
		Discovery:    discovery,
		Introduction: introductions,
		Connection:   connections,
		Deliverer:    deliverer,
	}
}
