// Package apierr renders the JSON error body shared by every HTTP handler and
// maps domain errors onto status codes.
package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"modelgate/internal/ingest"
	"modelgate/internal/middleware"
	"modelgate/internal/router"
	"modelgate/internal/storage"
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnsupportedArtifact = "UNSUPPORTED_ARTIFACT"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeBackendError        = "BACKEND_ERROR"
	CodeStorage             = "STORAGE_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeClientClosed        = "CLIENT_CLOSED_REQUEST"
)

// StatusClientClosedRequest is the non-standard status for requests the
// client abandoned before a response was ready.
const StatusClientClosedRequest = 499

// Classify returns the status and code for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, router.ErrEmptyQuestion), ingest.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, router.ErrUnsupportedArtifact):
		return http.StatusUnprocessableEntity, CodeUnsupportedArtifact
	case errors.Is(err, router.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, CodeBackendUnavailable
	case errors.Is(err, router.ErrBackendProcessing):
		return http.StatusBadGateway, CodeBackendError
	case errors.Is(err, storage.ErrStorageCollision), errors.Is(err, storage.ErrStorageWrite):
		return http.StatusInternalServerError, CodeStorage
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, CodeClientClosed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Write sends the error body with the given code and status.
func Write(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.WarnContext(ctx, "failed to encode error response", "error", err)
	}
}

// FromError classifies err and writes it. Internal failures are logged and
// reported with a generic message.
func FromError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := err.Error()

	switch {
	case status == StatusClientClosedRequest:
		slog.InfoContext(ctx, "client closed request", "error", err)
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(ctx, "request failed", "code", code, "error", err)
		if code == CodeInternal || code == CodeStorage {
			msg = http.StatusText(status)
		}
	default:
		slog.WarnContext(ctx, "request rejected", "code", code, "error", err)
	}

	Write(ctx, w, code, msg, status)
}

// WriteJSON sends v as the response body.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(ctx, "failed to encode response", "error", err)
	}
}

// WriteData sends {"data": v}.
func WriteData(ctx context.Context, w http.ResponseWriter, status int, v any) {
	WriteJSON(ctx, w, status, map[string]any{"data": v})
}
