package stats

import (
	"context"
	"log/slog"
	"net/http"

	"modelgate/internal/apierr"
	"modelgate/internal/middleware"
	"modelgate/internal/storage"
)

type Scanner interface {
	Scan(ctx context.Context) (*storage.Stats, error)
}

type Handler struct {
	scanner Scanner
	root    string
}

func NewHandler(s Scanner, root string) *Handler {
	return &Handler{scanner: s, root: root}
}

type StatsResponse struct {
	StorageRoot string `json:"storage_root"`
	*storage.Stats
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	st, err := h.scanner.Scan(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to scan storage", "error", err, "correlationId", correlationID)
		apierr.Write(ctx, w, apierr.CodeInternal, "failed to scan storage", http.StatusInternalServerError)
		return
	}

	apierr.WriteData(ctx, w, http.StatusOK, StatsResponse{StorageRoot: h.root, Stats: st})
}
