package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"modelgate/internal/artifact"
	"modelgate/internal/ingest"
	"modelgate/internal/router"
	"modelgate/internal/storage"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) RouteDocument(ctx context.Context, a *artifact.Artifact, query string) (*router.ModelResponse, error) {
	args := m.Called(ctx, a, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*router.ModelResponse), args.Error(1)
}

func (m *MockRouter) RouteMedia(ctx context.Context, a *artifact.Artifact) (*router.ModelResponse, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*router.ModelResponse), args.Error(1)
}

func newHandler(t *testing.T, r Router, maxBytes int64) (*Handler, string) {
	t.Helper()
	root := t.TempDir()
	w := storage.NewWriter(storage.NewAllocator(root), storage.WithMaxBytes(maxBytes))
	return NewHandler(ingest.NewPipeline(w), r, maxBytes), root
}

func multipartRequest(t *testing.T, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func files(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"].(map[string]any)["code"].(string)
}

func TestDocument_Success(t *testing.T) {
	m := new(MockRouter)
	h, root := newHandler(t, m, 1<<20)

	m.On("RouteDocument", mock.Anything, mock.MatchedBy(func(a *artifact.Artifact) bool {
		return a.Category == artifact.CategoryDocument && a.Extension == ".pdf" && a.Size == 9
	}), "list the totals").Return(&router.ModelResponse{Response: "summary", ModelType: router.ModelDocument}, nil)

	req := multipartRequest(t, "/upload/document", "report.pdf", []byte("%PDF-1.4\n"), map[string]string{"query": "list the totals"})
	w := httptest.NewRecorder()
	h.Document(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"summary","model_type":"DOCUMENT"}`, w.Body.String())

	names := files(t, root)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "document_"))
	assert.Equal(t, ".pdf", filepath.Ext(names[0]))
	m.AssertExpectations(t)
}

func TestDocument_UnsupportedExtension(t *testing.T) {
	m := new(MockRouter)
	h, root := newHandler(t, m, 1<<20)

	req := multipartRequest(t, "/upload/document", "tool.exe", []byte("MZ"), nil)
	w := httptest.NewRecorder()
	h.Document(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	assert.Empty(t, files(t, root))
	m.AssertNotCalled(t, "RouteDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocument_MissingFile(t *testing.T) {
	h, _ := newHandler(t, new(MockRouter), 1<<20)

	req := multipartRequest(t, "/upload/document", "", nil, map[string]string{"query": "x"})
	w := httptest.NewRecorder()
	h.Document(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestDocument_TooLarge(t *testing.T) {
	h, root := newHandler(t, new(MockRouter), 16)

	req := multipartRequest(t, "/upload/document", "notes.txt", bytes.Repeat([]byte("a"), 64), nil)
	w := httptest.NewRecorder()
	h.Document(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	assert.Empty(t, files(t, root))
}

func TestMedia_Video(t *testing.T) {
	m := new(MockRouter)
	h, root := newHandler(t, m, 1<<20)

	m.On("RouteMedia", mock.Anything, mock.MatchedBy(func(a *artifact.Artifact) bool {
		return a.Category == artifact.CategoryVideo && a.Extension == ".mp4"
	})).Return(&router.ModelResponse{Response: "a cat", ModelType: router.ModelVideo}, nil)

	req := multipartRequest(t, "/upload/media", "clip.mp4", []byte("0000ftyp"), map[string]string{"media_type": "Video"})
	w := httptest.NewRecorder()
	h.Media(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"a cat","model_type":"VIDEO"}`, w.Body.String())
	names := files(t, root)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "video_"))
}

func TestMedia_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		mediaType string
	}{
		{"modality mismatch", "clip.mp4", "audio"},
		{"missing modality", "clip.mp4", ""},
		{"unknown modality", "clip.mp4", "image"},
		{"document on media route", "report.pdf", "video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockRouter)
			h, root := newHandler(t, m, 1<<20)

			req := multipartRequest(t, "/upload/media", tt.filename, []byte("data"), map[string]string{"media_type": tt.mediaType})
			w := httptest.NewRecorder()
			h.Media(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
			assert.Empty(t, files(t, root))
			m.AssertNotCalled(t, "RouteMedia", mock.Anything, mock.Anything)
		})
	}
}

func TestMedia_BackendUnavailable(t *testing.T) {
	m := new(MockRouter)
	h, root := newHandler(t, m, 1<<20)
	m.On("RouteMedia", mock.Anything, mock.Anything).Return(nil, router.ErrBackendUnavailable)

	req := multipartRequest(t, "/upload/media", "voice.mp3", []byte("ID3"), map[string]string{"media_type": "audio"})
	w := httptest.NewRecorder()
	h.Media(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "BACKEND_UNAVAILABLE", errorCode(t, w))
	// The artifact stays persisted even when routing fails.
	assert.Len(t, files(t, root), 1)
}
