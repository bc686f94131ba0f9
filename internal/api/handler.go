// Package api exposes the query service over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"cubesql/internal/domain"
	"cubesql/internal/querydoc"
	"cubesql/internal/service/query"
	"cubesql/internal/sqlgen"
)

const (
	maxBodyBytes  = 1 << 20
	maxBatchItems = 32
)

// QueryService is the subset of *query.Service the handler depends on.
type QueryService interface {
	Dialect() string
	Explain(ctx context.Context, q *domain.Query, dialect string) (*query.Plan, error)
	Run(ctx context.Context, q *domain.Query, dialect string) (*query.Result, error)
	RunBatch(ctx context.Context, qs []*domain.Query) ([]*query.Result, error)
}

// Pinger reports backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the query endpoints.
type Handler struct {
	svc    QueryService
	health Pinger
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(svc QueryService, health Pinger) *Handler {
	return &Handler{svc: svc, health: health}
}

type runResponse struct {
	Plan     query.Plan `json:"plan"`
	Columns  []string   `json:"columns"`
	Rows     [][]any    `json:"rows"`
	RowCount int        `json:"row_count"`
}

type batchRequest struct {
	Queries []json.RawMessage `json:"queries"`
}

type batchResponse struct {
	Results []runResponse `json:"results"`
}

type dialectsResponse struct {
	Default  string   `json:"default"`
	Dialects []string `json:"dialects"`
}

// Explain compiles a query document without executing it.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	doc, q, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := h.svc.Explain(r.Context(), q, doc.Dialect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Run compiles and executes a query document.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	doc, q, err := decodeQuery(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Run(r.Context(), q, doc.Dialect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(res))
}

// RunBatch executes several JSON query documents concurrently on the default
// dialect.
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, err)
			return
		}
		writeError(w, domain.ErrValidation("invalid batch body: %v", err))
		return
	}
	if len(req.Queries) == 0 {
		writeError(w, domain.ErrValidation("queries must not be empty"))
		return
	}
	if len(req.Queries) > maxBatchItems {
		writeError(w, domain.ErrValidation("at most %d queries per batch", maxBatchItems))
		return
	}

	qs := make([]*domain.Query, len(req.Queries))
	for i, raw := range req.Queries {
		doc, err := querydoc.Decode(bytes.NewReader(raw), querydoc.FormatJSON)
		if err != nil {
			writeError(w, domain.ErrValidation("queries[%d]: %v", i, err))
			return
		}
		if doc.Dialect != "" && sqlgen.GetDialect(doc.Dialect) != sqlgen.GetDialect(h.svc.Dialect()) {
			writeError(w, domain.ErrValidation("queries[%d]: batch queries run on the %q dialect", i, h.svc.Dialect()))
			return
		}
		q, err := doc.ToQuery()
		if err != nil {
			writeError(w, domain.ErrValidation("queries[%d]: %v", i, err))
			return
		}
		qs[i] = q
	}

	results, err := h.svc.RunBatch(r.Context(), qs)
	if err != nil {
		writeError(w, err)
		return
	}
	out := batchResponse{Results: make([]runResponse, len(results))}
	for i, res := range results {
		out.Results[i] = toRunResponse(res)
	}
	writeJSON(w, http.StatusOK, out)
}

// Dialects lists the SQL dialects the compiler can target.
func (h *Handler) Dialects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dialectsResponse{Default: h.svc.Dialect(), Dialects: query.Dialects()})
}

// Health reports ok when the backend answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "unavailable", Message: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeQuery reads a JSON or YAML document, chosen by Content-Type.
func decodeQuery(w http.ResponseWriter, r *http.Request) (*querydoc.Document, *domain.Query, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	doc, err := querydoc.Decode(bytes.NewReader(body), requestFormat(r))
	if err != nil {
		return nil, nil, err
	}
	q, err := doc.ToQuery()
	if err != nil {
		return nil, nil, err
	}
	return doc, q, nil
}

func requestFormat(r *http.Request) querydoc.Format {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return querydoc.FormatJSON
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml":
		return querydoc.FormatYAML
	default:
		return querydoc.FormatJSON
	}
}

func toRunResponse(res *query.Result) runResponse {
	out := runResponse{Plan: res.Plan, Columns: []string{}, Rows: [][]any{}}
	if res.Frame != nil {
		if res.Frame.Columns != nil {
			out.Columns = res.Frame.Columns
		}
		if res.Frame.Rows != nil {
			out.Rows = res.Frame.Rows
		}
	}
	out.RowCount = len(out.Rows)
	return out
}
