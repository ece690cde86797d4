package quality

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// CropFace extracts the face region of img described by bbox [x1, y1, x2, y2]
// in pixels. Coordinates are clamped to the image bounds.
func CropFace(img image.Image, bbox []float64) (image.Image, error) {
	if len(bbox) < 4 {
		return nil, errors.New("bbox must have four coordinates")
	}

	bounds := img.Bounds()
	x1 := clampInt(int(bbox[0]+0.5), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(bbox[1]+0.5), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(bbox[2]+0.5), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(bbox[3]+0.5), bounds.Min.Y, bounds.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return nil, fmt.Errorf("empty crop region [%d,%d,%d,%d]", x1, y1, x2, y2)
	}

	rect := image.Rect(x1, y1, x2, y2)
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, img, rect, draw.Over, nil)
	return dst, nil
}

// ResizeSquare scales an image to size x size pixels.
func ResizeSquare(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// EncodeJPEG encodes an image as JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
