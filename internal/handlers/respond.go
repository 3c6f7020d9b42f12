package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scmmishra/linkpulse/internal/models"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps a service error onto an HTTP status and a client-safe
// message. Anything unrecognised is a 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidURL),
		errors.Is(err, models.ErrInvalidAlias),
		errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrDuplicateCode):
		return http.StatusConflict, "short code already taken"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrExpired):
		return http.StatusGone, "This link has expired."
	case errors.Is(err, models.ErrInactive):
		return http.StatusGone, "This link is no longer active."
	case errors.Is(err, models.ErrPasswordRequired):
		return http.StatusUnauthorized, "password required"
	case errors.Is(err, models.ErrWrongPassword):
		return http.StatusForbidden, "wrong password"
	case errors.Is(err, models.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable, "could not allocate a short code, try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
