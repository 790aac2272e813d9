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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/geocoder89/eduai/internal/ai"
	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/config"
	"github.com/geocoder89/eduai/internal/db"
	httpx "github.com/geocoder89/eduai/internal/http"
	"github.com/geocoder89/eduai/internal/http/handlers"
	"github.com/geocoder89/eduai/internal/observability"
	"github.com/geocoder89/eduai/internal/ratelimit"
	"github.com/geocoder89/eduai/internal/redisclient"
	"github.com/geocoder89/eduai/internal/repo/memory"
	"github.com/geocoder89/eduai/internal/repo/postgres"
	"github.com/geocoder89/eduai/internal/security"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	if cfg.Env != "dev" && cfg.JWTSecret == "dev-only-jwt-secret-change-me" {
		return errors.New("JWT_SECRET must be set outside dev")
	}

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTELServiceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Check{}

	// users live in postgres when DB_URL is set, in memory otherwise
	var users auth.UserRepository
	if cfg.DBURL != "" {
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}

		users = postgres.NewUsersRepo(pool, prom)
		checks["postgres"] = pool.Ping
		log.Info("user store: postgres")
	} else {
		users = memory.NewUsersRepo()
		log.Warn("user store: in-memory, accounts are lost on restart")
	}

	if cfg.SeedDemoUsers {
		n, err := db.SeedUsers(ctx, users, db.DemoUsers, security.PasswordCost)
		if err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
		log.Info("demo users seeded", "created", n)
	}

	var limits ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable, rate limits stay per process", "addr", cfg.RedisAddr, "err", err)
		} else {
			limits = ratelimit.NewRedisStore(rc.Raw(), "")
		}
		checks["redis"] = rc.Ping
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg.AI)
	if err != nil {
		return err
	}
	defer closeCompleter()

	gate := auth.NewGate(users, auth.NewManager(cfg.JWTSecret, cfg.JWTTTL))

	bridge := ai.NewBridge(completer, ai.BridgeConfig{
		ChatModel:     cfg.AI.DefaultChatModel,
		ImageModel:    cfg.AI.DefaultImageModel,
		Temperature:   cfg.AI.Temperature,
		MaxTokens:     cfg.AI.MaxTokens,
		ExamMaxTokens: cfg.AI.ExamMaxTokens,
		Timeout:       cfg.AI.Timeout,
	}, ai.WithLogger(log), ai.WithRecorder(prom))

	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Log:      log,
		Gate:     gate,
		Bridge:   bridge,
		Prom:     prom,
		Gatherer: reg,
		Limits:   limits,
		Checks:   checks,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// completions may take up to the AI timeout
		WriteTimeout: cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "ai_provider", cfg.AI.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

func newCompleter(ctx context.Context, cfg config.AIConfig) (ai.Completer, func(), error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		gc, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		return gc, func() { _ = gc.Close() }, nil
	case config.ProviderHTTP, "":
		return ai.NewHTTPClient(ai.HTTPClientConfig{
			Endpoint:      cfg.Endpoint,
			CustomerID:    cfg.CustomerID,
			Authorization: cfg.Authorization,
		}), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
	}
}
