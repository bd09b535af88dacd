package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/backend"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/catalog"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/pos"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/reporting"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/session"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts service and backend errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found or expired")
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, domain.ErrInvalidSelection):
		respondError(w, http.StatusBadRequest, "invalid_selection", err.Error())
	case errors.Is(err, pos.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
	case errors.Is(err, reporting.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.As(err, &apiErr):
		respondJSON(w, backendStatus(apiErr.Status), ErrorResponse{
			Error:   "backend rejected the request",
			Code:    "backend_error",
			Details: apiErr.Detail,
		})
	case errors.Is(err, backend.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "backend_unavailable", "backend is unavailable, try again")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zap.L().Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// backendStatus keeps the class of backend client errors and reports everything
// else as a bad gateway.
func backendStatus(status int) int {
	switch {
	case status == http.StatusNotFound, status == http.StatusConflict:
		return status
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
