package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.QuizSessionHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderSessionToken}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.Brotli())

	// ─── 0. Operations (No Auth) ───────────────────────────────────────
	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	// ─── 1. Quiz Group (JWT) ───────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireUserJWT(authService),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		api.POST("/quizzes/:quiz_id/sessions", handlers.Session.StartSession)
	}

	// ─── 2. Session Group (JWT + Session Token) ─────────────────────────
	sessions := api.Group("/sessions")
	sessions.Use(middleware.RequireSessionToken())
	{
		sessions.GET("/state", handlers.Session.GetState)
		sessions.GET("/result", handlers.Session.GetResult)
		sessions.POST("/heartbeat", handlers.Session.Heartbeat)
		sessions.PUT("/answers", handlers.Session.SaveAnswers)
		sessions.PUT("/answers/:question_id", handlers.Session.SaveAnswer)
		sessions.POST("/navigate", handlers.Session.Navigate)
		sessions.PUT("/flags/:question_id", handlers.Session.Flag)
		sessions.POST("/pause", handlers.Session.Pause)
		sessions.POST("/resume", handlers.Session.Resume)
		sessions.POST("/submit", handlers.Session.Submit)
		sessions.POST("/abandon", handlers.Session.Abandon)
	}

	// ─── 3. WebSocket Group (WS Auth) ──────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.RequireSessionToken(),
	)
	{
		ws.GET("/sessions/stream", handlers.WS.SessionStream)
	}

	return router
}
