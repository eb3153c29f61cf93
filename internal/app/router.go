package app

import (
	"github.com/gin-gonic/gin"

	kindredhttp "github.com/kindredlabs/kindred-backend/internal/http"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	return kindredhttp.NewRouter(kindredhttp.RouterConfig{
		Log:            log,
		AllowOrigins:   cfg.AllowOrigins,
		TracingEnabled: cfg.TracingEnabled,
		ServiceName:    cfg.ServiceName,

		HealthHandler:       handlers.Health,
		MemberHandler:       handlers.Member,
		DiscoveryHandler:    handlers.Discovery,
		IntroductionHandler: handlers.Introduction,
		ConnectionHandler:   handlers.Connection,
		AdminHandler:        handlers.Admin,
	})
}
