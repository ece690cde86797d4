// Package detect wraps the external face detection/embedding and emotion
// services. The models themselves are black boxes; this package only moves
// bytes in and vectors/scores out.
package detect

import "context"

// Detection is a single detected face as reported by the detection service.
type Detection struct {
	FaceIndex  int       `json:"face_index"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	Embedding  []float32 `json:"embedding"`
	Pose       []float64 `json:"pose,omitempty"` // [pitch, yaw, roll] in degrees, may be empty
	Confidence float64   `json:"det_score"`
}

// Detector detects faces and computes identity embeddings for an image.
// This is the dominant cost of an album sync.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error)
}

// EmotionScorer computes a happiness score in [0,1] for a face crop.
type EmotionScorer interface {
	HappinessScore(ctx context.Context, faceCrop []byte) (float64, error)
}

// Provider is the full external model surface the sync pipeline depends on.
// Ping gates a pipeline run: an unreachable provider aborts the whole sync
// before any cache entry is touched.
type Provider interface {
	Detector
	EmotionScorer
	Ping(ctx context.Context) error
}
