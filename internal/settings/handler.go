package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"modelgate/internal/apierr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		apierr.FromError(r.Context(), w, err)
		return
	}
	apierr.WriteData(r.Context(), w, http.StatusOK, s.View())
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		apierr.Write(r.Context(), w, apierr.CodeValidation, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Validate(); err != nil {
		apierr.Write(r.Context(), w, apierr.CodeValidation, err.Error(), http.StatusBadRequest)
		return
	}

	// GET never returns keys, so an omitted key means unchanged.
	current, err := h.svc.Get(r.Context())
	if err != nil {
		apierr.FromError(r.Context(), w, err)
		return
	}
	s.keepKeys(current)

	if err := h.svc.Update(r.Context(), &s); err != nil {
		if errors.Is(err, ErrInvalid) {
			apierr.Write(r.Context(), w, apierr.CodeValidation, err.Error(), http.StatusBadRequest)
			return
		}
		apierr.FromError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
