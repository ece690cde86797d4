package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ranker/internal/album"
	"github.com/kozaktomas/photo-ranker/internal/identity"
)

// PeopleHandler handles album people, ranking and the global person registry.
type PeopleHandler struct {
	svc *album.Service
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(svc *album.Service) *PeopleHandler {
	return &PeopleHandler{svc: svc}
}

// personIndex parses the {idx} URL parameter.
func personIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// List handles GET /api/albums/{id}/people.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.svc.People(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"people": people})
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename handles PUT /api/albums/{id}/people/{idx}/name. Naming an unlinked
// person creates or reuses a global person; the response carries it.
func (h *PeopleHandler) Rename(w http.ResponseWriter, r *http.Request) {
	idx, ok := personIndex(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person index")
		return
	}
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	person, err := h.svc.RenamePerson(chi.URLParam(r, "id"), idx, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// Hide handles DELETE /api/albums/{id}/people/{idx}.
func (h *PeopleHandler) Hide(w http.ResponseWriter, r *http.Request) {
	idx, ok := personIndex(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person index")
		return
	}
	if err := h.svc.DeletePerson(chi.URLParam(r, "id"), idx); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "hidden"})
}

// Ranked handles GET /api/albums/{id}/people/{idx}/photos with optional
// ?top_k=N and ?nocache=1.
func (h *PeopleHandler) Ranked(w http.ResponseWriter, r *http.Request) {
	idx, ok := personIndex(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid person index")
		return
	}
	topK := 0
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid top_k")
			return
		}
		topK = n
	}
	noCache := r.URL.Query().Get("nocache") == "1" || r.URL.Query().Get("nocache") == "true"

	ranked, err := h.svc.RankedPhotos(r.Context(), chi.URLParam(r, "id"), idx, topK, noCache)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": ranked})
}

// Crop handles GET /api/albums/{id}/faces/{crop}.
func (h *PeopleHandler) Crop(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.Store().CropPath(chi.URLParam(r, "id"), chi.URLParam(r, "crop"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

// ListGlobal handles GET /api/people.
func (h *PeopleHandler) ListGlobal(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"people": h.svc.Registry().List()})
}

// ResolveGlobal handles GET /api/people/{id}: the person expanded to every
// album and photo it appears in.
func (h *PeopleHandler) ResolveGlobal(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.svc.ResolvePerson(identity.GlobalRef(chi.URLParam(r, "id")))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resolved)
}

// DeleteGlobal handles DELETE /api/people/{id}.
func (h *PeopleHandler) DeleteGlobal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGlobalPerson(chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GlobalCrop handles GET /api/people/{id}/crop.
func (h *PeopleHandler) GlobalCrop(w http.ResponseWriter, r *http.Request) {
	person := h.svc.Registry().Get(chi.URLParam(r, "id"))
	if person == nil || person.CropRef == "" {
		respondError(w, http.StatusNotFound, "person crop not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.svc.Store().PeopleCropDir(), filepath.Base(person.CropRef)))
}
