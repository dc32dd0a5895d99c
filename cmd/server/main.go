package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/p-n-ai/pai-content/internal/generation"
	"github.com/p-n-ai/pai-content/internal/normalize"
	"github.com/p-n-ai/pai-content/internal/platform/cache"
	"github.com/p-n-ai/pai-content/internal/platform/config"
	"github.com/p-n-ai/pai-content/internal/platform/database"
	"github.com/p-n-ai/pai-content/internal/saga"
	"github.com/p-n-ai/pai-content/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	rules := normalize.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := normalize.LoadRules(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("loading content rules: %w", err)
		}
		rules = loaded
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}()

	checks := map[string]healthChecker{"store": s}

	var claims generation.Claimer = generation.NewMemoryClaimer(cfg.Claim.TTL)
	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting cache: %w", err)
		}
		defer c.Close()
		checks["cache"] = c
		claims = generation.NewRedisClaimer(c, cfg.Claim.Prefix, cfg.Claim.TTL)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &api{
		store:    s,
		decoder:  normalize.NewDecoder(rules),
		saga:     saga.NewOrchestrator(s, saga.NewMetrics(registry)),
		claims:   claims,
		registry: registry,
		checks:   checks,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newMux(a),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Backend, "cache", cfg.HasCache())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listening: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// openStore builds the configured backend, migrating it first when asked.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if cfg.Store.Migrate {
			if err := store.MigratePostgres(ctx, cfg.Database.URL); err != nil {
				return nil, fmt.Errorf("migrating database: %w", err)
			}
		}
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		return store.NewPostgresStore(db.Pool)
	case config.BackendSQLite:
		return store.OpenSQLite(ctx, cfg.Store.SQLitePath)
	default:
		slog.Warn("using in-memory store, content is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
