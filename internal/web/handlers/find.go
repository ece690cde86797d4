package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kozaktomas/photo-ranker/internal/album"
	"github.com/kozaktomas/photo-ranker/internal/constants"
)

// FindHandler answers "who is this?" queries from an uploaded photo.
type FindHandler struct {
	svc *album.Service
}

// NewFindHandler creates a new find handler.
func NewFindHandler(svc *album.Service) *FindHandler {
	return &FindHandler{svc: svc}
}

// Find handles POST /api/find (multipart, field "photo"). Optional ?top_k=N
// caps the candidate list when no confident match exists.
func (h *FindHandler) Find(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file in field 'photo'")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading upload: "+err.Error())
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

	result, err := h.svc.FindPerson(r.Context(), imageData, topK)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
