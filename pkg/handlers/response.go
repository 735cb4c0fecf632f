// Package handlers exposes the HTTP surface: health, content resolution,
// bulk generation control and the admin agent.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shiksha-ai/study-engine/pkg/access"
	"github.com/shiksha-ai/study-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps domain errors onto HTTP status codes so handlers never
// hand-roll the mapping.
func WriteError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		return ErrorResponse(w, http.StatusTooManyRequests, "quota_exceeded", err.Error())
	case errors.Is(err, apperrors.ErrServiceBusy):
		return ErrorResponse(w, http.StatusServiceUnavailable, "service_busy", err.Error())
	case errors.Is(err, apperrors.ErrRunActive):
		return ErrorResponse(w, http.StatusConflict, "run_active", err.Error())
	case errors.Is(err, apperrors.ErrSafetyLock):
		return ErrorResponse(w, http.StatusLocked, "safety_lock", err.Error())
	case errors.Is(err, apperrors.ErrInsufficientCredits):
		return ErrorResponse(w, http.StatusPaymentRequired, "insufficient_credits", err.Error())
	case errors.Is(err, access.ErrConfirmationRequired):
		return ErrorResponse(w, http.StatusPaymentRequired, "confirmation_required", err.Error())
	}
	// Unclassified errors can carry backend detail (store failures,
	// wrapped transport errors); clients get a generic message.
	return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
}
