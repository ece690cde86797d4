// Package quality turns one decoded image into per-face quality signals
// (sharpness, pose/facing, smile) and a per-image blur score.
package quality

import "image"

// grayscaleValues converts an image to a 2D array of grayscale values (0-255).
func grayscaleValues(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, width)
	for x := 0; x < width; x++ {
		gray[x] = make([]float64, height)
		for y := 0; y < height; y++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma formula.
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[x][y] = luma
		}
	}

	return gray
}

// BlurScore computes the variance of a 3x3 Laplacian filter over the
// grayscale image. Higher means sharper. This is a property of the whole
// image, shared by every face in it.
func BlurScore(img image.Image) float64 {
	gray := grayscaleValues(img)
	width := len(gray)
	if width < 3 {
		return 0
	}
	height := len(gray[0])
	if height < 3 {
		return 0
	}

	n := float64((width - 2) * (height - 2))
	var sum, sumSq float64
	for x := 1; x < width-1; x++ {
		for y := 1; y < height-1; y++ {
			lap := gray[x-1][y] + gray[x+1][y] + gray[x][y-1] + gray[x][y+1] - 4*gray[x][y]
			sum += lap
			sumSq += lap * lap
		}
	}

	mean := sum / n
	return sumSq/n - mean*mean
}

// NormalizeBlur maps a raw Laplacian variance to [0,1] using the configured
// divisor, capped at 1.
func NormalizeBlur(blur, divisor float64) float64 {
	if divisor <= 0 {
		return 0
	}
	norm := blur / divisor
	if norm > 1 {
		return 1
	}
	if norm < 0 {
		return 0
	}
	return norm
}
