package quality

import (
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/detect"
	"github.com/kozaktomas/photo-ranker/internal/detect/mock"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	data, err := EncodeJPEG(solidImage(200, 200, color.Gray{180}))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func detection(index int, bbox []float64, embedding []float32, pose []float64) detect.Detection {
	return detect.Detection{
		FaceIndex:  index,
		BBox:       bbox,
		Embedding:  embedding,
		Pose:       pose,
		Confidence: 0.9,
	}
}

func TestFacingScore(t *testing.T) {
	tests := []struct {
		name     string
		pose     []float64
		expected float64
	}{
		{"frontal", []float64{0, 0}, 1},
		{"slight turn", []float64{9, 9}, 0.9},
		{"quarter turn", []float64{45, 45}, 0.5},
		{"negative angles", []float64{-45, -45}, 0.5},
		{"extreme clamped", []float64{180, 180}, 0},
		{"missing pose", nil, 0.5},
		{"partial pose", []float64{10}, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FacingScore(tc.pose, 0.5)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("FacingScore(%v) = %f; want %f", tc.pose, got, tc.expected)
			}
		})
	}
}

func TestExtractKeepsLargeFaces(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.Happiness = 0.8
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return []detect.Detection{
			detection(0, []float64{0, 0, 100, 100}, []float32{1, 0}, []float64{0, 0}),
			detection(1, []float64{0, 0, 20, 20}, []float32{0, 1}, nil), // below min size
		}, nil
	}

	scoring := config.DefaultScoring()
	ext := NewExtractor(provider, provider, scoring)
	entry, err := ext.Extract(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(entry.Faces) != 1 {
		t.Fatalf("expected 1 retained face, got %d", len(entry.Faces))
	}
	face := entry.Faces[0]
	if face.FaceIndex != 0 {
		t.Errorf("retained face index = %d; want 0", face.FaceIndex)
	}
	if face.SizePx != 100 {
		t.Errorf("SizePx = %d; want 100", face.SizePx)
	}
	if face.FacingScore != 1 {
		t.Errorf("FacingScore = %f; want 1", face.FacingScore)
	}
	if face.SmileScore != 0.8 {
		t.Errorf("SmileScore = %f; want 0.8", face.SmileScore)
	}
	// The embedding comes back L2-normalized.
	var norm float64
	for _, v := range face.Embedding {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("embedding norm^2 = %f; want 1", norm)
	}
}

func TestExtractReindexesRetainedFaces(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return []detect.Detection{
			detection(0, []float64{0, 0, 10, 10}, []float32{1, 0}, nil), // dropped
			detection(1, []float64{0, 0, 80, 80}, []float32{0, 1}, nil),
			detection(2, []float64{0, 0, 90, 90}, []float32{1, 1}, nil),
		}, nil
	}

	ext := NewExtractor(provider, provider, config.DefaultScoring())
	entry, err := ext.Extract(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(entry.Faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(entry.Faces))
	}
	for i, face := range entry.Faces {
		if face.FaceIndex != i {
			t.Errorf("face %d has index %d; indices must be dense after filtering", i, face.FaceIndex)
		}
	}
}

func TestExtractDetectionFailure(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return nil, errors.New("model unavailable")
	}

	ext := NewExtractor(provider, provider, config.DefaultScoring())
	entry, err := ext.Extract(context.Background(), testJPEG(t))
	if err == nil {
		t.Fatal("expected an error from detection failure")
	}
	// Blur is still computed from the decodable image.
	if entry.BlurScore < 0 {
		t.Errorf("BlurScore = %f", entry.BlurScore)
	}
	if len(entry.Faces) != 0 {
		t.Errorf("failed extraction returned %d faces", len(entry.Faces))
	}
}

func TestExtractEmotionFailureDegradesToZero(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.HappinessError = errors.New("emotion model down")
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return []detect.Detection{
			detection(0, []float64{0, 0, 100, 100}, []float32{1, 0}, nil),
		}, nil
	}

	ext := NewExtractor(provider, provider, config.DefaultScoring())
	entry, err := ext.Extract(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("emotion failure must not fail the image: %v", err)
	}
	if len(entry.Faces) != 1 || entry.Faces[0].SmileScore != 0 {
		t.Errorf("faces = %+v; want one face with zero smile", entry.Faces)
	}
}

func TestExtractEmotionReceivesCrop(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.Happiness = 0.5
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return []detect.Detection{
			detection(0, []float64{0, 0, 60, 60}, []float32{1, 0}, nil),
		}, nil
	}

	original := testJPEG(t)
	ext := NewExtractor(provider, provider, config.DefaultScoring())
	if _, err := ext.Extract(context.Background(), original); err != nil {
		t.Fatal(err)
	}

	if len(provider.LastCrop) == 0 {
		t.Fatal("emotion provider never received a crop")
	}
	if string(provider.LastCrop) == string(original) {
		t.Error("emotion provider received the full image instead of a face crop")
	}
}

func TestExtractUndecodableImage(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.DetectFunc = func([]byte) ([]detect.Detection, error) {
		return []detect.Detection{
			detection(0, []float64{0, 0, 100, 100}, []float32{1, 0}, nil),
		}, nil
	}

	ext := NewExtractor(provider, provider, config.DefaultScoring())
	entry, err := ext.Extract(context.Background(), []byte("not an image"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if entry.BlurScore != 0 {
		t.Errorf("BlurScore = %f; want 0 for undecodable image", entry.BlurScore)
	}
	// Smile degrades to zero because there is no image to crop from.
	if len(entry.Faces) != 1 || entry.Faces[0].SmileScore != 0 {
		t.Errorf("faces = %+v", entry.Faces)
	}
}
