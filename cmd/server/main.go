// Package main is the entry point for the cubesql HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"cubesql/internal/api"
	"cubesql/internal/config"
	"cubesql/internal/engine"
	"cubesql/internal/middleware"
	"cubesql/internal/service/query"
	"cubesql/internal/sqlgen"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn("config warning", "warning", w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	kind, err := engine.ParseKind(cfg.Backend)
	if err != nil {
		return err
	}
	backend, err := engine.Open(ctx, engine.Options{
		Kind: kind,
		Path: cfg.DatabasePath(),
		Seed: cfg.SeedDemo,
	}, logger)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", kind, err)
	}
	defer func() { _ = backend.Close() }()

	svc, err := query.NewService(query.ServiceDeps{
		Backend: backend,
		Dialect: cfg.Dialect(),
		Timeout: cfg.QueryTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("query service: %w", err)
	}
	if sqlgen.GetDialect(cfg.Dialect()) != sqlgen.GetDialect(kind.DefaultDialect()) {
		logger.Warn("default dialect differs from the backend; run requests will be rejected",
			"dialect", svc.Dialect(), "backend", kind)
	}

	router := api.NewRouter(ctx, api.RouterDeps{
		Handler: api.NewHandler(svc, backend),
		Logger:  logger,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP API listening",
			"addr", cfg.ListenAddr,
			"backend", kind,
			"dialect", svc.Dialect(),
			"try", fmt.Sprintf("curl http://%s/api/v1/dialects", curlHostForListenAddr(cfg.ListenAddr)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// curlHostForListenAddr turns a listen address into a host:port a local
// client can dial.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
