package question

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"modelgate/internal/apierr"
	"modelgate/internal/router"
)

type Router interface {
	RouteQuestion(ctx context.Context, question, contextText string) (*router.ModelResponse, error)
}

type Request struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type Handler struct {
	router Router
}

func NewHandler(r Router) *Handler {
	return &Handler{router: r}
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.Write(ctx, w, apierr.CodeValidation, "invalid request body", http.StatusBadRequest)
		return
	}

	slog.InfoContext(ctx, "question received", "question_length", len(req.Question), "has_context", req.Context != "")

	resp, err := h.router.RouteQuestion(ctx, req.Question, req.Context)
	if err != nil {
		apierr.FromError(ctx, w, err)
		return
	}
	apierr.WriteJSON(ctx, w, http.StatusOK, resp)
}
