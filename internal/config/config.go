// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted in BACKEND.
const (
	BackendDuckDB = "duckdb"
	BackendSQLite = "sqlite"
)

const (
	defaultListenAddr     = ":8080"
	defaultLogLevel       = "info"
	defaultSQLitePath     = "cubesql.sqlite"
	defaultQueryTimeout   = 30 * time.Second
	defaultRateLimitRPS   = 100
	defaultRateLimitBurst = 200
)

// Config holds the configuration of the query server.
type Config struct {
	ListenAddr string // LISTEN_ADDR
	LogLevel   string // LOG_LEVEL: debug, info, warn or error
	Env        string // ENV: "production" enables strict checks

	// Backend selects the execution engine, BackendDuckDB or BackendSQLite.
	Backend    string
	DuckDBPath string // empty runs DuckDB in memory
	SQLitePath string
	// SQLDialect overrides the compile target. Empty means the backend's
	// native dialect.
	SQLDialect string
	SeedDemo   bool

	QueryTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	// Warnings are non-fatal problems found while loading. The caller logs
	// them once a logger exists.
	Warnings []string
}

// SlogLevel maps LogLevel to an slog.Level. Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	name := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if name == "warning" {
		name = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DatabasePath returns the file of the selected backend.
func (c *Config) DatabasePath() string {
	if c.Backend == BackendSQLite {
		return c.SQLitePath
	}
	return c.DuckDBPath
}

// Dialect returns the effective default dialect.
func (c *Config) Dialect() string {
	if c.SQLDialect != "" {
		return c.SQLDialect
	}
	return c.Backend
}

// envReader reads typed values from the environment. Malformed optional
// values become warnings instead of errors.
type envReader struct {
	warnings []string
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f == 0 {
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("ignoring invalid %s %q", key, v))
		}
		return def
	}
	return f
}

func (r *envReader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n == 0 {
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("ignoring invalid %s %q", key, v))
		}
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	switch strings.ToLower(r.str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// list splits a comma separated variable, dropping blank entries.
func (r *envReader) list(key string, def []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		ListenAddr:         env.str("LISTEN_ADDR", defaultListenAddr),
		LogLevel:           env.str("LOG_LEVEL", defaultLogLevel),
		Env:                env.str("ENV", ""),
		Backend:            strings.ToLower(env.str("BACKEND", BackendDuckDB)),
		DuckDBPath:         env.str("DUCKDB_PATH", ""),
		SQLitePath:         env.str("SQLITE_PATH", defaultSQLitePath),
		SQLDialect:         env.str("SQL_DIALECT", ""),
		SeedDemo:           env.boolean("SEED_DEMO", true),
		QueryTimeout:       defaultQueryTimeout,
		RateLimitRPS:       env.float("RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst:     env.integer("RATE_LIMIT_BURST", defaultRateLimitBurst),
		CORSAllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if raw := env.str("QUERY_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid QUERY_TIMEOUT %q: want a positive duration such as 30s", raw)
		}
		cfg.QueryTimeout = d
	}

	switch cfg.Backend {
	case BackendDuckDB:
		if cfg.DuckDBPath == "" {
			env.warnings = append(env.warnings, "DUCKDB_PATH not set, using an in-memory database")
		}
	case BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid BACKEND %q: want %s or %s", cfg.Backend, BackendDuckDB, BackendSQLite)
	}

	if cfg.IsProduction() {
		for _, origin := range cfg.CORSAllowedOrigins {
			if origin == "*" {
				return nil, errors.New("CORS wildcard origin is refused when ENV=production; set CORS_ALLOWED_ORIGINS")
			}
		}
		if cfg.SeedDemo {
			env.warnings = append(env.warnings, "SEED_DEMO is enabled in production")
		}
	}

	cfg.Warnings = env.warnings
	return cfg, nil
}

// LoadDotEnv exports the KEY=VALUE pairs of a .env file without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	pairs, err := parseDotEnv(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, kv := range pairs {
		if _, exists := os.LookupEnv(kv[0]); exists {
			continue
		}
		if err := os.Setenv(kv[0], kv[1]); err != nil {
			return fmt.Errorf("setenv %s: %w", kv[0], err)
		}
	}
	return nil
}

// parseDotEnv returns key/value pairs in file order. Blank lines, # comments
// and lines without '=' are skipped. An "export " prefix is accepted.
func parseDotEnv(r io.Reader) ([][2]string, error) {
	var pairs [][2]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		pairs = append(pairs, [2]string{key, val})
	}
	return pairs, sc.Err()
}

func unquote(s string) string {
	if n := len(s); n >= 2 && (s[0] == '"' || s[0] == '\'') && s[n-1] == s[0] {
		return s[1 : n-1]
	}
	return s
}
