package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cubesql/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) (int, string) {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var execution *domain.ExecutionError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "invalid_query"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.As(err, &execution):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "timeout"
		}
		return http.StatusUnprocessableEntity, "execution_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := httpStatusFromDomainError(err)
	writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}
