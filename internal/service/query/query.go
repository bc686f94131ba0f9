// Package query validates, compiles, and executes multidimensional queries.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cubesql/internal/domain"
	"cubesql/internal/middleware"
	"cubesql/internal/sqlgen"
)

const (
	defaultTimeout   = 30 * time.Second
	batchConcurrency = 4
)

// Plan is a compiled query.
type Plan struct {
	SQL          string   `json:"sql"`
	Dialect      string   `json:"dialect"`
	DrillColumns []string `json:"drill_columns"`
	ValueColumns []string `json:"value_columns"`
}

// Result is an executed plan and its rows.
type Result struct {
	Plan  Plan              `json:"plan"`
	Frame *domain.DataFrame `json:"frame"`
}

// Service compiles queries for a default dialect and runs them on a backend.
type Service struct {
	backend  domain.Backend
	compiler *sqlgen.Compiler
	timeout  time.Duration
	logger   *slog.Logger
}

// ServiceDeps holds dependencies for Service.
type ServiceDeps struct {
	// Backend runs compiled SQL. Nil disables Run.
	Backend domain.Backend
	// Dialect is the default target; it must be one the backend accepts.
	Dialect string
	// Timeout bounds a single Run; zero means 30s.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewService resolves the default dialect and builds the service.
func NewService(deps ServiceDeps) (*Service, error) {
	d := sqlgen.GetDialect(deps.Dialect)
	if d == nil {
		return nil, domain.ErrNotFound("unknown dialect %q", deps.Dialect)
	}
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		backend:  deps.Backend,
		compiler: sqlgen.New(d),
		timeout:  deps.Timeout,
		logger:   deps.Logger,
	}, nil
}

// Dialect returns the default dialect name.
func (s *Service) Dialect() string { return string(s.compiler.Dialect().Type) }

// Explain validates and compiles q. A non-empty dialect overrides the
// default.
func (s *Service) Explain(ctx context.Context, q *domain.Query, dialect string) (*Plan, error) {
	compiler := s.compiler
	if dialect != "" {
		d := sqlgen.GetDialect(dialect)
		if d == nil {
			return nil, domain.ErrNotFound("unknown dialect %q", dialect)
		}
		compiler = sqlgen.New(d)
	}

	if err := s.Validate(q); err != nil {
		return nil, err
	}

	rel := compiler.Compile(q)
	if err := checkOptionColumns(q, rel); err != nil {
		return nil, err
	}

	plan := &Plan{
		SQL:          rel.SQL,
		Dialect:      string(compiler.Dialect().Type),
		DrillColumns: nonNil(rel.Drills),
		ValueColumns: nonNil(rel.Values),
	}
	s.log(ctx).Debug("query compiled",
		"dialect", plan.Dialect,
		"table", q.Table.Name,
		"drills", len(plan.DrillColumns),
		"values", len(plan.ValueColumns),
	)
	return plan, nil
}

// Run compiles q for the default dialect and executes it. A dialect other
// than the default is rejected since the backend could not parse it.
func (s *Service) Run(ctx context.Context, q *domain.Query, dialect string) (*Result, error) {
	if s.backend == nil {
		return nil, domain.ErrValidation("no backend configured")
	}
	if dialect != "" {
		d := sqlgen.GetDialect(dialect)
		if d == nil {
			return nil, domain.ErrNotFound("unknown dialect %q", dialect)
		}
		if d != s.compiler.Dialect() {
			return nil, domain.ErrValidation("dialect %q cannot run on the %s backend (use %q)", dialect, s.backend.Name(), s.Dialect())
		}
	}

	plan, err := s.Explain(ctx, q, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	frame, err := s.backend.Exec(ctx, plan.SQL)
	if err != nil {
		s.log(ctx).Error("query failed", "backend", s.backend.Name(), "error", err)
		return nil, err
	}

	s.log(ctx).Info("query executed",
		"backend", s.backend.Name(),
		"table", q.Table.Name,
		"rows", frame.Len(),
		"duration", time.Since(start),
	)
	return &Result{Plan: *plan, Frame: frame}, nil
}

// RunBatch runs several queries with bounded parallelism. Results keep the
// input order; the first failure cancels the rest.
func (s *Service) RunBatch(ctx context.Context, qs []*domain.Query) ([]*Result, error) {
	results := make([]*Result, len(qs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, q := range qs {
		i, q := i, q
		g.Go(func() error {
			res, err := s.Run(gctx, q, "")
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

// Dialects lists the supported dialect names.
func Dialects() []string { return sqlgen.DialectNames() }

func nonNil(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}

func quoteList(cols []string) string {
	return "[" + strings.Join(cols, ", ") + "]"
}
