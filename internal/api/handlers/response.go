package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/clinicfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusFor maps an application error to an HTTP status code.
func statusFor(err error) int {
	typ, ok := apperrors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch typ {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError logs server-side failures and writes the mapped status.
// Client errors echo the validation message; everything else uses message.
func respondWithAppError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg(message)
	}
	if status == http.StatusBadRequest {
		message = apperrors.MessageOf(err, message)
	}
	respondWithError(w, status, message)
}
