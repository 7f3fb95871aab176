package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors to HTTP statuses. Anything unrecognised is a
// server error.
func statusFor(err error) int {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, entity.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInsufficientStock),
		errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrActiveVerificationExists),
		errors.Is(err, entity.ErrConcurrentModification),
		errors.Is(err, entity.ErrEmailTaken),
		errors.Is(err, entity.ErrIdempotencyKeyConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body.Error = "internal server error"
	}
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		body.Error = verr.Error()
		body.Field = verr.Field
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}
