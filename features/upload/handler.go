package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"modelgate/internal/apierr"
	"modelgate/internal/artifact"
	"modelgate/internal/router"
)

// multipartOverhead is the slack allowed on top of the file limit for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

const formMemory = 32 << 20

type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, filename string, declared artifact.MediaType) (*artifact.Artifact, error)
	IngestMedia(ctx context.Context, r io.Reader, filename string, declared artifact.MediaType) (*artifact.Artifact, error)
}

type Router interface {
	RouteDocument(ctx context.Context, a *artifact.Artifact, query string) (*router.ModelResponse, error)
	RouteMedia(ctx context.Context, a *artifact.Artifact) (*router.ModelResponse, error)
}

type Handler struct {
	ingester Ingester
	router   Router
	maxBytes int64
}

func NewHandler(i Ingester, r Router, maxBytes int64) *Handler {
	return &Handler{ingester: i, router: r, maxBytes: maxBytes}
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, filename, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	a, err := h.ingester.Ingest(ctx, file, filename, artifact.MediaNone)
	if err != nil {
		apierr.FromError(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "document ingested", "ingestion_id", a.ID, "path", a.Path, "size", a.Size)

	resp, err := h.router.RouteDocument(ctx, a, r.FormValue("query"))
	if err != nil {
		apierr.FromError(ctx, w, err)
		return
	}
	apierr.WriteJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, filename, ok := h.readFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	declared := artifact.ParseMediaType(r.FormValue("media_type"))
	a, err := h.ingester.IngestMedia(ctx, file, filename, declared)
	if err != nil {
		apierr.FromError(ctx, w, err)
		return
	}
	slog.InfoContext(ctx, "media ingested", "ingestion_id", a.ID, "category", a.Category, "path", a.Path, "size", a.Size)

	resp, err := h.router.RouteMedia(ctx, a)
	if err != nil {
		apierr.FromError(ctx, w, err)
		return
	}
	apierr.WriteJSON(ctx, w, http.StatusOK, resp)
}

// readFile parses the multipart form and opens its "file" part. On failure
// the error response has already been written.
func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	ctx := r.Context()

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := fmt.Sprintf("upload exceeds %d MB", h.maxBytes>>20)
			apierr.Write(ctx, w, apierr.CodeValidation, msg, http.StatusBadRequest)
			return nil, "", false
		}
		apierr.Write(ctx, w, apierr.CodeValidation, "invalid multipart form", http.StatusBadRequest)
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierr.Write(ctx, w, apierr.CodeValidation, "file is required", http.StatusBadRequest)
		return nil, "", false
	}
	return file, header.Filename, true
}
