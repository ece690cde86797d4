// Package metadata maintains the per-album cache of face records and quality
// signals. It is the single source of truth for clustering, matching and
// ranking; once the cache is current, no downstream component decodes images.
package metadata

import "sort"

// FaceRecord holds the identity and quality signals of one detected face.
// Records are immutable once written and replaced wholesale on resync.
type FaceRecord struct {
	FaceIndex   int       `json:"face_index"`
	BBox        []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	Embedding   []float32 `json:"embedding"`
	FacingScore float64   `json:"facing_score"`
	Confidence  float64   `json:"confidence"`
	SizePx      int       `json:"size_px"` // shorter side of the bbox
	SmileScore  float64   `json:"smile_score"`
}

// ImageMetadata is the cache entry for one image file.
type ImageMetadata struct {
	Filename    string       `json:"filename"`
	Fingerprint string       `json:"fingerprint"`
	BlurScore   float64      `json:"blur_score"`
	Faces       []FaceRecord `json:"faces"`
	Failed      bool         `json:"failed,omitempty"`
	FailReason  string       `json:"fail_reason,omitempty"`
}

// Album is the persisted cache document for one album directory.
type Album struct {
	SchemaVersion int                       `json:"schema_version"`
	Images        map[string]*ImageMetadata `json:"images"`
}

// NewAlbum returns an empty album document at the current schema version.
func NewAlbum() *Album {
	return &Album{
		SchemaVersion: currentSchemaVersion,
		Images:        make(map[string]*ImageMetadata),
	}
}

// SortedFilenames returns the cached filenames in ascending order.
// All iteration over the cache goes through this to keep downstream
// processing deterministic.
func (a *Album) SortedFilenames() []string {
	names := make([]string, 0, len(a.Images))
	for name := range a.Images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LargestFaceEmbedding returns the embedding of the biggest detected face,
// or nil when no face carries one. The most prominent face is assumed to be
// the subject of the image.
func LargestFaceEmbedding(faces []FaceRecord) []float32 {
	best := -1
	for i := range faces {
		if len(faces[i].Embedding) == 0 {
			continue
		}
		if best < 0 || faces[i].SizePx > faces[best].SizePx {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return faces[best].Embedding
}

// Face returns the face record for a filename and face index, or nil.
func (a *Album) Face(filename string, faceIndex int) *FaceRecord {
	entry, ok := a.Images[filename]
	if !ok || faceIndex < 0 || faceIndex >= len(entry.Faces) {
		return nil
	}
	return &entry.Faces[faceIndex]
}
