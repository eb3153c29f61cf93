package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/kindredlabs/kindred-backend/internal/http/handlers"
	httpMW "github.com/kindredlabs/kindred-backend/internal/http/middleware"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AllowOrigins   []string
	TracingEnabled bool
	ServiceName    string

	HealthHandler       *httpH.HealthHandler
	MemberHandler       *httpH.MemberHandler
	DiscoveryHandler    *httpH.DiscoveryHandler
	IntroductionHandler *httpH.IntroductionHandler
	ConnectionHandler   *httpH.ConnectionHandler
	AdminHandler        *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "kindred-backend"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowOrigins))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		// Members
		if cfg.MemberHandler != nil {
			api.POST("/members", cfg.MemberHandler.Ensure)
			api.GET("/members/:id", cfg.MemberHandler.Get)
			api.POST("/members/:id/status", cfg.MemberHandler.Transition)
			api.GET("/members/:id/quota", cfg.MemberHandler.Quota)
		}

		// Discovery
		if cfg.DiscoveryHandler != nil {
			api.POST("/discovery", cfg.DiscoveryHandler.Discover)
		}

		// Introductions
		if cfg.IntroductionHandler != nil {
			api.POST("/introductions", cfg.IntroductionHandler.Propose)
			api.POST("/introductions/respond", cfg.IntroductionHandler.Respond)
		}

		// Connections
		if cfg.ConnectionHandler != nil {
			api.POST("/connections/confirm", cfg.ConnectionHandler.Confirm)
			api.POST("/connections/:id/complete", cfg.ConnectionHandler.Complete)
		}

		// Admin
		if cfg.AdminHandler != nil {
			api.POST("/admin/reconcile", cfg.AdminHandler.Reconcile)
		}
	}

	return r
}
