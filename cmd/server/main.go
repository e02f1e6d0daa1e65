package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/assessio/assessio-backend/internal/clock"
	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/database"
	"github.com/assessio/assessio-backend/internal/handler"
	"github.com/assessio/assessio-backend/internal/logger"
	"github.com/assessio/assessio-backend/internal/repository"
	"github.com/assessio/assessio-backend/internal/router"
	"github.com/assessio/assessio-backend/internal/service"
	"github.com/assessio/assessio-backend/internal/validator"
	"github.com/assessio/assessio-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("session_store", string(cfg.SessionStoreDriver)).
		Msg("Starting Assessio Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

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

	// ─── Select the Session Store ──────────────────────────────────────
	var store service.SessionStore
	switch cfg.SessionStoreDriver {
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open SQLite session store")
		}
		defer db.Close()
		store = repository.NewSQLiteSessionStore(db)
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory session store; sessions do not survive restarts")
		store = repository.NewMemorySessionStore()
	default:
		store = repository.NewRedisSessionStore(rdb)
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	ledger := repository.NewPostgresAttemptLedger(pool)
	bank := repository.NewPostgresQuestionBank(pool)
	sink := repository.NewRedisAuditSink(rdb)
	archive := repository.NewPostgresAuditArchive(pool)

	// ─── Initialize the Session Manager ────────────────────────────────
	manager := service.NewSessionManager(cfg, store, ledger, bank, sink, clock.System(), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(manager),
		Attempt: handler.NewAttemptHandler(manager, archive),
		WS:      handler.NewWSHandler(manager, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	auditWorker := worker.NewAuditWorker(pool, rdb, log)
	go auditWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// 2. Stop session timers. Sessions stay persisted; deadlines are
	//    recomputed from stored timestamps on the next start.
	manager.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
