package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	// Orphan names the store left holding data after a partial delete.
	Orphan string `json:"orphan,omitempty"`
	Key    string `json:"key,omitempty"`
}

// mapDomainError converts domain errors to an HTTP status and body.
func mapDomainError(err error) (int, ErrorResponse) {
	if pde, ok := domain.AsPartialDelete(err); ok {
		return http.StatusInternalServerError, ErrorResponse{
			Error:  pde.Error(),
			Orphan: string(pde.Kind),
			Key:    pde.Key,
		}
	}

	switch {
	case domain.IsEnumerationFailure(err):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "asset listing unavailable", Retryable: true}

	case errors.Is(err, domain.ErrEmptyName):
		return http.StatusBadRequest, ErrorResponse{Error: "asset name cannot be empty"}

	case errors.Is(err, domain.ErrInvalidPatch):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}

	case errors.Is(err, domain.ErrAssetNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "asset not found"}

	case errors.Is(err, domain.ErrAssetDeleteFailed):
		return http.StatusBadGateway, ErrorResponse{Error: "asset delete failed, nothing was changed", Retryable: true}

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "request timed out", Retryable: true}

	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
