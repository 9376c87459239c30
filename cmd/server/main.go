package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/handler"
	"github.com/stemsi/exstem-quiz/internal/lock"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/router"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
	"github.com/stemsi/exstem-quiz/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("lock_backend", cfg.LockBackend).
		Msg("Starting quiz session server")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Session Lock ──────────────────────────────────────────────────
	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockBackendMemory:
		log.Warn().Msg("Using in-process session lock; run a single instance only")
		locker = lock.NewKeyedMutex(cfg.SessionLockTimeout)
	default:
		locker = lock.NewRedisLocker(rdb, cfg.SessionLockTTL, cfg.SessionLockTimeout, log)
	}

	// ─── Initialize Repositories & Services ────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	eventBus := worker.NewRedisEventBus(rdb)

	authService := service.NewAuthService(cfg)
	catalogService := service.NewQuizCatalogService(quizRepo, rdb, cfg.QuizCacheTTL, log)
	sessionService := service.NewQuizSessionService(sessionRepo, catalogService, locker, eventBus, engine.SystemClock{}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewQuizSessionHandler(sessionService, log),
		WS:      handler.NewWSHandler(sessionService, eventBus, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(map[string]database.Pinger{
			"postgres": database.PoolPinger{Pool: pool},
			"redis":    database.RedisPinger{Client: rdb},
		}, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	// Workers get their own context so they keep draining after the HTTP
	// server stops accepting requests.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	answerLogWorker := worker.NewAnswerLogWorker(pool, rdb, log)
	resultWorker := worker.NewResultWorker(pool, rdb, log)

	workers.Add(2)
	go func() { defer workers.Done(); answerLogWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); resultWorker.Start(workerCtx) }()

	// ─── Setup Router ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	r := router.SetupRouter(authService, handlers, limiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}
