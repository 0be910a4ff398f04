package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/bundle"
	"github.com/stemsi/exstem-quizgen/internal/cache"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/database"
	"github.com/stemsi/exstem-quizgen/internal/handler"
	"github.com/stemsi/exstem-quizgen/internal/logger"
	"github.com/stemsi/exstem-quizgen/internal/middleware"
	"github.com/stemsi/exstem-quizgen/internal/repository"
	"github.com/stemsi/exstem-quizgen/internal/router"
	"github.com/stemsi/exstem-quizgen/internal/service"
	"github.com/stemsi/exstem-quizgen/internal/storage"
	"github.com/stemsi/exstem-quizgen/internal/validator"
	"github.com/stemsi/exstem-quizgen/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting quiz generator")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	labels, err := config.LoadLabels(cfg.LabelsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LabelsFile).Msg("Failed to load labels")
	}

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

	// ─── Output Storage ────────────────────────────────────────────────
	store, err := storage.New(cfg.OutputDir, cfg.WorkDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare output storage")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	operatorRepo := repository.NewOperatorRepository(pool)
	generationRepo := repository.NewGenerationRepository(pool)
	artifacts := cache.NewArtifactIndex(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, operatorRepo)
	assembler := bundle.NewAssembler(store, labels, log)
	generationService := service.NewGenerationService(cfg, assembler, store, generationRepo, artifacts, authService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Generation: handler.NewGenerationHandler(generationService, cfg.MaxVersions, log),
		Download:   handler.NewDownloadHandler(generationService, log),
	}
	generateLimiter := middleware.NewRateLimiter(cache.NewWindowCounter(rdb),
		cfg.GenerateRateLimit, time.Minute, config.CacheKey.GenerateRateLimitKey, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	janitor := worker.NewJanitorWorker(store, artifacts, cfg.OutputTTL, cfg.JanitorInterval, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		janitor.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, generateLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 1. Stop accepting new requests. Generations in flight get 30s to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the janitor.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
