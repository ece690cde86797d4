package quality

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// solidImage creates a uniform image.
func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// noisyImage creates an image with high-frequency random noise.
func noisyImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestBlurScoreFlatImageIsZero(t *testing.T) {
	score := BlurScore(solidImage(32, 32, color.White))
	if score != 0 {
		t.Errorf("flat image blur score = %f; want 0", score)
	}
}

func TestBlurScoreSharperImageScoresHigher(t *testing.T) {
	flat := BlurScore(solidImage(32, 32, color.Gray{128}))
	sharp := BlurScore(noisyImage(32, 32, 42))
	if sharp <= flat {
		t.Errorf("noisy image (%f) should outscore flat image (%f)", sharp, flat)
	}
}

func TestBlurScoreTinyImage(t *testing.T) {
	if score := BlurScore(solidImage(2, 2, color.White)); score != 0 {
		t.Errorf("sub-3x3 image blur score = %f; want 0", score)
	}
}

func TestBlurScoreDeterministic(t *testing.T) {
	img := noisyImage(48, 48, 7)
	if BlurScore(img) != BlurScore(img) {
		t.Error("blur score differs between runs on the same image")
	}
}

func TestNormalizeBlur(t *testing.T) {
	tests := []struct {
		name     string
		blur     float64
		divisor  float64
		expected float64
	}{
		{"zero", 0, 500, 0},
		{"half", 250, 500, 0.5},
		{"at divisor", 500, 500, 1},
		{"capped", 5000, 500, 1},
		{"zero divisor", 100, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeBlur(tc.blur, tc.divisor); got != tc.expected {
				t.Errorf("NormalizeBlur(%f, %f) = %f; want %f", tc.blur, tc.divisor, got, tc.expected)
			}
		})
	}
}

func TestCropFace(t *testing.T) {
	img := solidImage(100, 100, color.White)

	crop, err := CropFace(img, []float64{10, 20, 50, 70})
	if err != nil {
		t.Fatalf("CropFace failed: %v", err)
	}
	if crop.Bounds().Dx() != 40 || crop.Bounds().Dy() != 50 {
		t.Errorf("crop size = %dx%d; want 40x50", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
}

func TestCropFaceClampsToImage(t *testing.T) {
	img := solidImage(50, 50, color.White)

	crop, err := CropFace(img, []float64{-10, -10, 200, 200})
	if err != nil {
		t.Fatalf("CropFace failed: %v", err)
	}
	if crop.Bounds().Dx() != 50 || crop.Bounds().Dy() != 50 {
		t.Errorf("clamped crop size = %dx%d; want 50x50", crop.Bounds().Dx(), crop.Bounds().Dy())
	}
}

func TestCropFaceInvalid(t *testing.T) {
	img := solidImage(50, 50, color.White)

	if _, err := CropFace(img, []float64{10, 10}); err == nil {
		t.Error("short bbox should fail")
	}
	if _, err := CropFace(img, []float64{40, 40, 10, 10}); err == nil {
		t.Error("inverted bbox should fail")
	}
}

func TestResizeSquare(t *testing.T) {
	img := solidImage(100, 60, color.White)
	resized := ResizeSquare(img, 256)
	if resized.Bounds().Dx() != 256 || resized.Bounds().Dy() != 256 {
		t.Errorf("resized to %dx%d; want 256x256", resized.Bounds().Dx(), resized.Bounds().Dy())
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, err := EncodeJPEG(solidImage(32, 32, color.RGBA{200, 100, 50, 255}))
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	// JPEG magic bytes.
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF {
		t.Error("output is not a JPEG")
	}
}
