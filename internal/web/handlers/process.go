package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ranker/internal/album"
)

// ProcessHandler triggers the album pipeline and reports its status.
type ProcessHandler struct {
	svc *album.Service
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(svc *album.Service) *ProcessHandler {
	return &ProcessHandler{svc: svc}
}

// Start handles POST /api/albums/{id}/process. Returns 409 when a pipeline
// for the album is already running.
func (h *ProcessHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Trigger(chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": string(album.StatusProcessing)})
}

// Status handles GET /api/albums/{id}/status.
func (h *ProcessHandler) Status(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	body := map[string]string{"status": string(info.Status)}
	if info.Error != "" {
		body["error"] = info.Error
	}
	respondJSON(w, http.StatusOK, body)
}
