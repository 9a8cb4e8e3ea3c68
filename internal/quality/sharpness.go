package quality

import (
	"image"
	"image/draw"
)

// LaplacianMeter measures sharpness as the variance of the image's
// Laplacian response: blurry images have low edge energy variance,
// sharp ones high. The empirical mapping follows the usual blur
// detection thresholds (variance 100 = blurry, 1000 = very sharp).
type LaplacianMeter struct{}

// Measure returns the normalized edge-energy variance. ok is false for
// images too small to convolve.
func (LaplacianMeter) Measure(img image.Image, mode string) (float64, bool) {
	variance, ok := laplacianVariance(img)
	if !ok {
		return 0, false
	}

	switch {
	case variance < 100:
		return 0.1, true
	case variance > 1000:
		return 1.0, true
	default:
		score := (variance - 100) / 900
		if score > 1 {
			score = 1
		}
		return score, true
	}
}

// laplacianVariance convolves the grayscale image with the 3x3
// Laplacian kernel and returns the variance of the response.
func laplacianVariance(img image.Image) (float64, bool) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0, false
	}

	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	}

	n := (w - 2) * (h - 2)
	responses := make([]float64, 0, n)
	var sum float64
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			up := float64(gray.GrayAt(x, y-1).Y)
			down := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			r := up + down + left + right - 4*center
			responses = append(responses, r)
			sum += r
		}
	}

	mean := sum / float64(n)
	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(n), true
}

// ModeMeter is the coarse fallback used when convolution-based
// measurement is unavailable: rich color modes score 0.8, everything
// else 0.5.
type ModeMeter struct{}

// Measure never fails.
func (ModeMeter) Measure(img image.Image, mode string) (float64, bool) {
	switch mode {
	case "RGB", "RGBA":
		return 0.8, true
	default:
		return 0.5, true
	}
}
