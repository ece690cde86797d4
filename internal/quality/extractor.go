package quality

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/detect"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// Extractor produces the cache entry for one image: detected faces with
// identity and quality signals, plus the per-image blur score.
type Extractor struct {
	detector detect.Detector
	emotion  detect.EmotionScorer
	scoring  config.Scoring
}

// NewExtractor creates an extractor on top of the external model providers.
func NewExtractor(detector detect.Detector, emotion detect.EmotionScorer, scoring config.Scoring) *Extractor {
	return &Extractor{detector: detector, emotion: emotion, scoring: scoring}
}

// FacingScore derives a facing-camera score in [0,1] from head pose angles
// (pitch, yaw in degrees). A frontal face scores 1. When the detector reports
// no pose, the fixed neutral fallback applies; this is the single place that
// policy lives.
func FacingScore(pose []float64, neutral float64) float64 {
	if len(pose) < 2 {
		return neutral
	}
	score := 1 - (math.Abs(pose[0])+math.Abs(pose[1]))/180
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// faceSizePx returns the shorter side of a bbox [x1, y1, x2, y2] in pixels.
func faceSizePx(bbox []float64) int {
	if len(bbox) < 4 {
		return 0
	}
	return int(math.Min(bbox[2]-bbox[0], bbox[3]-bbox[1]))
}

// Extract detects faces and computes quality signals for one image. The
// caller fills in filename and fingerprint.
//
// A detection failure returns the partial entry (blur still computed when the
// image decodes) together with the error, so the caller can mark it failed
// and keep syncing other images. A failing emotion model degrades a face's
// smile score to zero instead of failing the image.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) (metadata.ImageMetadata, error) {
	var entry metadata.ImageMetadata

	img, _, decodeErr := image.Decode(bytes.NewReader(imageData))
	if decodeErr == nil {
		entry.BlurScore = BlurScore(img)
	}

	detections, err := e.detector.DetectFaces(ctx, imageData)
	if err != nil {
		return entry, fmt.Errorf("detecting faces: %w", err)
	}

	for _, d := range detections {
		if len(d.Embedding) == 0 || len(d.BBox) < 4 {
			continue
		}
		size := faceSizePx(d.BBox)
		if size < e.scoring.MinFaceSizePx {
			// Too small to carry reliable identity or quality signal.
			continue
		}

		face := metadata.FaceRecord{
			FaceIndex:   len(entry.Faces),
			BBox:        d.BBox,
			Embedding:   identity.Normalize(d.Embedding),
			FacingScore: FacingScore(d.Pose, e.scoring.NeutralFacingScore),
			Confidence:  d.Confidence,
			SizePx:      size,
			SmileScore:  e.smileScore(ctx, img, d.BBox, decodeErr),
		}
		entry.Faces = append(entry.Faces, face)
	}

	return entry, nil
}

// smileScore computes the happiness score from a crop of the face, never the
// full image, so the emotion score reflects the target face rather than an
// arbitrary face in a group.
func (e *Extractor) smileScore(ctx context.Context, img image.Image, bbox []float64, decodeErr error) float64 {
	if decodeErr != nil {
		return 0
	}
	crop, err := CropFace(img, bbox)
	if err != nil {
		log.Printf("quality: face crop failed: %v", err)
		return 0
	}
	cropData, err := EncodeJPEG(crop)
	if err != nil {
		log.Printf("quality: face crop encode failed: %v", err)
		return 0
	}
	score, err := e.emotion.HappinessScore(ctx, cropData)
	if err != nil {
		log.Printf("quality: emotion score failed: %v", err)
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
