package apierr_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/apierr"
	"modelgate/internal/ingest"
	"modelgate/internal/middleware"
	"modelgate/internal/router"
	"modelgate/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"empty question", router.ErrEmptyQuestion, http.StatusBadRequest, apierr.CodeValidation},
		{"validation", &ingest.ValidationError{Filename: "a.exe", Err: ingest.ErrUnsupportedExtension}, http.StatusBadRequest, apierr.CodeValidation},
		{"unsupported artifact", router.ErrUnsupportedArtifact, http.StatusUnprocessableEntity, apierr.CodeUnsupportedArtifact},
		{"unavailable", fmt.Errorf("%w: 429", router.ErrBackendUnavailable), http.StatusServiceUnavailable, apierr.CodeBackendUnavailable},
		{"processing", fmt.Errorf("%w: blocked", router.ErrBackendProcessing), http.StatusBadGateway, apierr.CodeBackendError},
		{"collision", storage.ErrStorageCollision, http.StatusInternalServerError, apierr.CodeStorage},
		{"write", fmt.Errorf("%w: disk full", storage.ErrStorageWrite), http.StatusInternalServerError, apierr.CodeStorage},
		{"canceled", context.Canceled, apierr.StatusClientClosedRequest, apierr.CodeClientClosed},
		{"internal", fmt.Errorf("%w: nil pointer", router.ErrInternal), http.StatusInternalServerError, apierr.CodeInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := apierr.Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFromError_Body(t *testing.T) {
	ctx := middleware.WithCorrelationID(context.Background(), "corr-1")

	t.Run("client error keeps message", func(t *testing.T) {
		w := httptest.NewRecorder()
		apierr.FromError(ctx, w, router.ErrEmptyQuestion)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		errBody := body["error"].(map[string]any)
		assert.Equal(t, apierr.CodeValidation, errBody["code"])
		assert.Equal(t, router.ErrEmptyQuestion.Error(), errBody["message"])
		assert.Equal(t, "corr-1", body["correlationId"])
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		apierr.FromError(ctx, w, errors.New("secret path /var/x"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		errBody := body["error"].(map[string]any)
		assert.Equal(t, "Internal Server Error", errBody["message"])
	})
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	apierr.WriteJSON(context.Background(), w, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestWriteData(t *testing.T) {
	w := httptest.NewRecorder()
	apierr.WriteData(context.Background(), w, http.StatusOK, map[string]int{"n": 1})

	assert.JSONEq(t, `{"data":{"n":1}}`, w.Body.String())
}
