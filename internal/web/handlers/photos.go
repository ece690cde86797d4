package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-ranker/internal/album"
	"github.com/kozaktomas/photo-ranker/internal/constants"
)

// PhotosHandler handles photo upload, listing, serving and removal.
type PhotosHandler struct {
	svc *album.Service
}

// NewPhotosHandler creates a new photos handler.
func NewPhotosHandler(svc *album.Service) *PhotosHandler {
	return &PhotosHandler{svc: svc}
}

// Upload handles POST /api/albums/{id}/photos (multipart, field "photos",
// one or more files).
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files in field 'photos'")
		return
	}

	var stored []string
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "opening upload: "+err.Error())
			return
		}
		name, err := h.svc.Store().SaveUpload(albumID, header.Filename, f)
		f.Close()
		if err != nil {
			respondServiceError(w, err)
			return
		}
		stored = append(stored, name)
	}

	log.Printf("web: stored %d photos in album %s", len(stored), sanitizeForLog(albumID))
	respondJSON(w, http.StatusCreated, map[string]any{"photos": stored})
}

// List handles GET /api/albums/{id}/photos.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	photos, err := h.svc.Store().ListPhotos(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

// Serve handles GET /api/albums/{id}/photos/{file}.
func (h *PhotosHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.Store().PhotoPath(chi.URLParam(r, "id"), chi.URLParam(r, "file"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	http.ServeFile(w, r, path)
}

// Delete handles DELETE /api/albums/{id}/photos/{file}.
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Store().DeletePhoto(chi.URLParam(r, "id"), chi.URLParam(r, "file")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Faces handles GET /api/albums/{id}/photos/{file}/faces.
func (h *PhotosHandler) Faces(w http.ResponseWriter, r *http.Request) {
	faces, err := h.svc.FacesInPhoto(chi.URLParam(r, "id"), chi.URLParam(r, "file"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"faces": faces})
}
