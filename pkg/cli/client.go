package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cubesql/internal/domain"
	"cubesql/internal/querydoc"
	"cubesql/internal/service/query"
)

// APIError is a non-2xx response from a cubesql server.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.HTTPStatus, e.Code, e.Message)
}

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// run posts doc to the server's run endpoint.
func (c *client) run(ctx context.Context, doc *querydoc.Document) (*query.Result, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query/run", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return nil, apiErr
	}

	var out struct {
		Plan    query.Plan `json:"plan"`
		Columns []string   `json:"columns"`
		Rows    [][]any    `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &query.Result{Plan: out.Plan, Frame: &domain.DataFrame{Columns: out.Columns, Rows: out.Rows}}, nil
}
