package app

import (
	httpH "github.com/kindredlabs/kindred-backend/internal/http/handlers"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	Member       *httpH.MemberHandler
	Discovery    *httpH.DiscoveryHandler
	Introduction *httpH.IntroductionHandler
	Connection   *httpH.ConnectionHandler
	Admin        *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("wiring handlers")
	return Handlers{
		Health:       httpH.NewHealthHandler(cfg.Version),
		Member:       httpH.NewMemberHandler(services.Member, services.Quota),
		Discovery:    httpH.NewDiscoveryHandler(services.Discovery),
		Introduction: httpH.NewIntroductionHandler(services.Introduction),
		Connection:   httpH.NewConnectionHandler(services.Connection),
		Admin:        httpH.NewAdminHandler(services.Ledger),
	}
}
