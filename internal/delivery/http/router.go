package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/delivery/http/middleware"
	"github.com/C021025/DSASimulator-OJ/internal/usecase"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds everything the router needs.
type RouterDeps struct {
	Sessions        *usecase.SessionRegistry
	Actions         ActionQueue
	Logger          *zap.Logger
	RateLimitPerMin int
	HealthChecks    map[string]HealthCheck
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(deps.Logger))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		healthHandler := NewHealthHandler(deps.HealthChecks, deps.Logger)
		v1.GET("/health", healthHandler.Health)

		langHandler := NewLanguageHandler()
		v1.GET("/languages", langHandler.List)

		sessions := v1.Group("/sessions")
		sessions.Use(middleware.RateLimiter(deps.RateLimitPerMin))
		sessions.Use(middleware.BodySizeLimit(maxBodyBytes))

		sh := NewSessionHandler(deps.Sessions, deps.Actions, deps.Logger)
		sessions.POST("", sh.Create)
		sessions.GET("/:id", sh.Get)
		sessions.DELETE("/:id", sh.Delete)
		sessions.POST("/:id/navigate", sh.Navigate)
		sessions.POST("/:id/back", sh.Back)
		sessions.POST("/:id/forward", sh.Forward)
		sessions.POST("/:id/tab", sh.SetTab)
		sessions.POST("/:id/inspect", sh.Inspect)
		sessions.POST("/:id/close-inspection", sh.CloseInspection)
		sessions.POST("/:id/console/toggle", sh.ToggleConsole)
		sessions.POST("/:id/console/tab", sh.SelectConsoleTab)
		sessions.PUT("/:id/console/input", sh.SetConsoleInput)
		sessions.PUT("/:id/code", sh.EditCode)
		sessions.PUT("/:id/language", sh.SetLanguage)
		sessions.POST("/:id/log/page", sh.SetLogPage)
		sessions.POST("/:id/run", sh.Run)
		sessions.POST("/:id/submit", sh.Submit)

		// The stream is long-lived and skips the rate limiter.
		wsHandler := NewWebSocketHandler(deps.Sessions, deps.Logger)
		v1.GET("/sessions/:id/stream", wsHandler.Stream)
	}

	return router
}
