package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/config"
	"realtime-chat/internal/handlers"
	"realtime-chat/internal/logging"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/telemetry"
	"realtime-chat/internal/ws"
)

// RouterDeps is everything the HTTP surface is assembled from.
type RouterDeps struct {
	Service     *chat.Service
	Verifier    *middleware.Verifier
	Hub         *ws.Hub
	Audit       *telemetry.AuditEmitter
	Logger      zerolog.Logger
	RateLimit   config.RateConfig
	DebugRoutes bool
	ServiceName string
	Ping        func(context.Context) error
	// Done stops background middleware goroutines.
	Done <-chan struct{}
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(deps.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestID())
	router.Use(logging.GinMiddleware(deps.Logger))
	router.Use(middleware.Identity(deps.Verifier))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if deps.Ping != nil {
			if err := deps.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", ws.NewHandler(deps.Hub, deps.Service).Handle)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(deps.RateLimit.RPS, deps.RateLimit.Burst, deps.Done))
	handlers.NewUserHandler(deps.Service).Register(api)
	handlers.NewConversationHandler(deps.Service, deps.Audit).Register(api)
	handlers.NewMessageHandler(deps.Service, deps.Audit).Register(api)
	handlers.NewPresenceHandler(deps.Service).Register(api)
	handlers.NewBlockHandler(deps.Service, deps.Audit).Register(api)

	handlers.RegisterDebugRoutes(router, deps.Audit, deps.DebugRoutes)
	return router
}
