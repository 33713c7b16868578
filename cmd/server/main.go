// Command server starts the resume evaluator HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/resumehq/resume-evaluator/internal/adapter/ai"
	"github.com/resumehq/resume-evaluator/internal/adapter/ai/gemini"
	"github.com/resumehq/resume-evaluator/internal/adapter/ai/ollama"
	"github.com/resumehq/resume-evaluator/internal/adapter/ai/openai"
	httpserver "github.com/resumehq/resume-evaluator/internal/adapter/httpserver"
	"github.com/resumehq/resume-evaluator/internal/adapter/observability"
	"github.com/resumehq/resume-evaluator/internal/adapter/repo/postgres"
	"github.com/resumehq/resume-evaluator/internal/adapter/textextractor/pdfx"
	"github.com/resumehq/resume-evaluator/internal/app"
	"github.com/resumehq/resume-evaluator/internal/config"
	"github.com/resumehq/resume-evaluator/internal/service/ratelimiter"
	"github.com/resumehq/resume-evaluator/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.JWTSecret == "" {
		panic("JWT_SECRET must be set")
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, AI, and evaluation instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Redis backs the per-provider AI call budget. Optional: without it the
	// limiter allows everything.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
	} else {
		slog.Warn("REDIS_URL not set, AI call budgets disabled")
	}

	// Repositories
	userRepo := postgres.NewUserRepo(pool)
	evalRepo := postgres.NewEvaluationRepo(pool)
	chatRepo := postgres.NewChatRepo(pool)

	// Providers. Ollama is always registered; hosted providers only when
	// their API keys are present.
	registry := ai.NewRegistry(cfg.DefaultProvider)
	registry.Register(ollama.New(cfg))
	if gem, err := gemini.New(ctx, cfg); err != nil {
		slog.Info("gemini provider not registered", slog.Any("reason", err))
	} else {
		registry.Register(gem)
	}
	if oai, err := openai.New(cfg); err != nil {
		slog.Info("openai provider not registered", slog.Any("reason", err))
	} else {
		registry.Register(oai)
	}
	slog.Info("AI providers registered", slog.Any("tags", registry.Tags()), slog.String("default", cfg.DefaultProvider))

	buckets := make(map[string]ratelimiter.BucketConfig, len(registry.Tags()))
	for _, tag := range registry.Tags() {
		buckets["ai:"+tag] = ratelimiter.PerMinute(cfg.AICallsPerMin)
	}
	limiter := ratelimiter.NewRedisLua(rdb, buckets)

	// Usecases
	authSvc := usecase.NewAuthService(cfg, userRepo)
	userSvc := usecase.NewUserService(userRepo, registry)
	evalSvc := usecase.NewEvaluateService(cfg, registry, userRepo, limiter)
	chatSvc := usecase.NewChatService(cfg, registry, userRepo, evalRepo, chatRepo, limiter)

	// Readiness checks
	dbCheck, redisCheck := app.BuildReadinessChecks(pool, rdb)

	// HTTP server
	srv := httpserver.NewServer(cfg, authSvc, userSvc, evalSvc, chatSvc, evalRepo, pdfx.New(), dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
