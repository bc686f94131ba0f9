package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cubesql/internal/middleware"
)

// RouterDeps holds what NewRouter wires together.
type RouterDeps struct {
	Handler *Handler
	Logger  *slog.Logger
	// RateLimit disables per-client limiting when RequestsPerSecond is zero.
	RateLimit middleware.RateLimitConfig
	// CORSAllowedOrigins defaults to "*" when empty.
	CORSAllowedOrigins []string
}

// NewRouter builds the HTTP routes. ctx bounds the rate limiter's background
// sweep.
func NewRouter(ctx context.Context, deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := deps.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", deps.Handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(ctx, deps.RateLimit))
		}
		r.Get("/dialects", deps.Handler.Dialects)
		r.Post("/query/explain", deps.Handler.Explain)
		r.Post("/query/run", deps.Handler.Run)
		r.Post("/query/batch", deps.Handler.RunBatch)
	})
	return r
}
