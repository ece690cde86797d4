package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ranker/internal/album"
)

// AlbumsHandler handles album CRUD operations.
type AlbumsHandler struct {
	svc *album.Service
}

// NewAlbumsHandler creates a new albums handler.
func NewAlbumsHandler(svc *album.Service) *AlbumsHandler {
	return &AlbumsHandler{svc: svc}
}

type albumRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/albums.
func (h *AlbumsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	info, err := h.svc.Store().Create(req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	log.Printf("web: created album %s (%s)", info.ID, sanitizeForLog(info.Name))
	respondJSON(w, http.StatusCreated, info)
}

// List handles GET /api/albums.
func (h *AlbumsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Store().List()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"albums": infos})
}

// Get handles GET /api/albums/{id}.
func (h *AlbumsHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Store().Get(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Rename handles PATCH /api/albums/{id}.
func (h *AlbumsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	albumID := chi.URLParam(r, "id")
	if err := h.svc.Store().Rename(albumID, req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	info, err := h.svc.Store().Get(albumID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/albums/{id}.
func (h *AlbumsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	if err := h.svc.Store().Delete(albumID); err != nil {
		respondServiceError(w, err)
		return
	}
	log.Printf("web: deleted album %s", sanitizeForLog(albumID))
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
