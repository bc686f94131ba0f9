package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubesql/internal/api"
	internaldb "cubesql/internal/db"
	"cubesql/internal/engine"
	"cubesql/internal/middleware"
	"cubesql/internal/service/query"
)

const byYear = `{
  "table": {"name": "sales", "primary_key": "product_id"},
  "drilldowns": [{"table": "sales", "levels": [{"key": "year"}]}],
  "measures": [{"aggregator": "sum", "column": "quantity"}],
  "sort": {}
}`

const byGroupYAML = `
table:
  name: sales
drilldowns:
  - table: dim_products
    foreign_key: product_id
    primary_key: product_id
    levels:
      - key: product_group_id
        name: product_group_label
measures:
  - aggregator: sum
    column: quantity
`

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is closed") }

func newServer(t *testing.T, deps api.RouterDeps) *httptest.Server {
	t.Helper()

	backend := engine.NewSQLBackend(engine.KindDuckDB, internaldb.OpenTestDuckDB(t), nil)
	svc, err := query.NewService(query.ServiceDeps{Backend: backend, Dialect: "duckdb"})
	require.NoError(t, err)

	if deps.Handler == nil {
		deps.Handler = api.NewHandler(svc, backend)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(api.NewRouter(ctx, deps))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, contentType, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestExplain(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	resp, body := post(t, srv, "/api/v1/query/explain", "application/json", byYear)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duckdb", body["dialect"])
	assert.Equal(t, []any{"year"}, body["drill_columns"])
	assert.Equal(t, []any{"final_m0"}, body["value_columns"])
	assert.Contains(t, body["sql"], "sum(quantity)")
}

func TestExplain_DialectOverride(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	doc := strings.Replace(byYear, `"table": {`, `"dialect": "clickhouse", "table": {`, 1)
	resp, body := post(t, srv, "/api/v1/query/explain", "application/json", doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "clickhouse", body["dialect"])
}

func TestExplain_YAMLBody(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	resp, body := post(t, srv, "/api/v1/query/explain", "application/yaml; charset=utf-8", byGroupYAML)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"product_group_id", "product_group_label"}, body["drill_columns"])
}

func TestRun(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	resp, body := post(t, srv, "/api/v1/query/run", "application/json", byYear)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []any{"year", "final_m0"}, body["columns"])
	assert.EqualValues(t, 3, body["row_count"])
	rows, ok := body["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 3)
	for i, want := range [][]float64{{2019, 25}, {2020, 28}, {2021, 28}} {
		row := rows[i].([]any)
		assert.InDelta(t, want[0], row[0], 0)
		assert.InDelta(t, want[1], row[1], 0)
	}

	plan, ok := body["plan"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "duckdb", plan["dialect"])
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
	}{
		{
			name:       "missing measures",
			path:       "/api/v1/query/run",
			body:       `{"table": {"name": "sales"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_query",
		},
		{
			name:       "unknown field",
			path:       "/api/v1/query/explain",
			body:       `{"table": {"name": "sales"}, "measurez": []}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_query",
		},
		{
			name:       "empty body",
			path:       "/api/v1/query/explain",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_query",
		},
		{
			name:       "unknown dialect",
			path:       "/api/v1/query/explain",
			body:       strings.Replace(byYear, `"table": {`, `"dialect": "oracle", "table": {`, 1),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "foreign dialect cannot run",
			path:       "/api/v1/query/run",
			body:       strings.Replace(byYear, `"table": {`, `"dialect": "clickhouse", "table": {`, 1),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_query",
		},
		{
			name:       "missing table fails in the engine",
			path:       "/api/v1/query/run",
			body:       strings.ReplaceAll(byYear, `"sales"`, `"no_such_table"`),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "execution_failed",
		},
		{
			name:        "oversized body",
			path:        "/api/v1/query/explain",
			body:        `{"table": {"name": "` + strings.Repeat("x", 1<<20) + `"}}`,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    "body_too_large",
			contentType: "application/json",
		},
	}

	srv := newServer(t, api.RouterDeps{})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ct := tc.contentType
			if ct == "" {
				ct = "application/json"
			}
			resp, body := post(t, srv, tc.path, ct, tc.body)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCode, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestRunBatch(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	countries := `{
	  "table": {"name": "sales"},
	  "drilldowns": [{"table": "dim_geo", "foreign_key": "geo_id", "primary_key": "id", "levels": [{"key": "country"}]}],
	  "measures": [{"aggregator": "sum", "column": "quantity"}],
	  "sort": {}
	}`
	resp, body := post(t, srv, "/api/v1/query/batch", "application/json",
		`{"queries": [`+byYear+`, `+countries+`]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)

	first := results[0].(map[string]any)
	assert.EqualValues(t, 3, first["row_count"])

	second := results[1].(map[string]any)
	assert.Equal(t, []any{"country", "final_m0"}, second["columns"])
	rows := second["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "France", rows[0].([]any)[0])
	assert.InDelta(t, 47, rows[0].([]any)[1], 0)
	assert.Equal(t, "Japan", rows[1].([]any)[0])
	assert.InDelta(t, 34, rows[1].([]any)[1], 0)
}

func TestRunBatch_Errors(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `queries: []`, "invalid batch body"},
		{"empty", `{"queries": []}`, "must not be empty"},
		{"bad item", `{"queries": [` + byYear + `, {"table": {}}]}`, "queries[1]"},
		{"dialect override", `{"queries": [` + strings.Replace(byYear, `"table": {`, `"dialect": "clickhouse", "table": {`, 1) + `]}`, "queries[0]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := post(t, srv, "/api/v1/query/batch", "application/json", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["message"], tc.want)
		})
	}
}

func TestDialects(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})

	resp, body := get(t, srv, "/api/v1/dialects")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duckdb", body["default"])
	assert.Equal(t, []any{"clickhouse", "duckdb", "postgres"}, body["dialects"])
}

func TestHealth(t *testing.T) {
	srv := newServer(t, api.RouterDeps{})
	resp, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	svc, err := query.NewService(query.ServiceDeps{Dialect: "duckdb"})
	require.NoError(t, err)
	down := newServer(t, api.RouterDeps{Handler: api.NewHandler(svc, failingPinger{})})
	resp, body = get(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", body["code"])
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	srv := newServer(t, api.RouterDeps{CORSAllowedOrigins: []string{"https://app.example.com"}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/dialects", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "trace-42")
	req.Header.Set("Origin", "https://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "trace-42", resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	preflight, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/query/run", nil)
	require.NoError(t, err)
	preflight.Header.Set("Origin", "https://evil.example.com")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err = http.DefaultClient.Do(preflight)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	srv := newServer(t, api.RouterDeps{RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})

	resp, _ := get(t, srv, "/api/v1/dialects")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, srv, "/api/v1/dialects")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// health checks bypass the limiter
	resp, _ = get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
