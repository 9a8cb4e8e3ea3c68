// Package quality scores decoded images for keeper selection. Scores
// are deterministic, bounded to [0,1] and never fail: any measurement
// problem degrades to a neutral component instead of an error.
package quality

import (
	"fmt"
	"image"

	"imagededup/internal/models"
)

const (
	weightResolution = 0.4
	weightSize       = 0.3
	weightSharpness  = 0.3

	// Resolution is scored against 1080p and capped at twice that.
	referencePixels    = 1920.0 * 1080.0
	maxResolutionScore = 2.0

	// Reasonable file size range: 10 KiB to 10 MiB.
	minSizeBytes = 10 * 1024
	maxSizeBytes = 10 * 1024 * 1024
)

// SharpnessMeter measures image sharpness in [0,1]. ok is false when
// the backend cannot produce a measurement for this image; the scorer
// then substitutes a neutral 0.5.
type SharpnessMeter interface {
	Measure(img image.Image, mode string) (score float64, ok bool)
}

// NewMeter selects a sharpness backend by name. "auto" and "laplacian"
// use edge-energy variance; "heuristic" uses the color-mode fallback.
func NewMeter(name string) (SharpnessMeter, error) {
	switch name {
	case "", "auto", "laplacian":
		return LaplacianMeter{}, nil
	case "heuristic":
		return ModeMeter{}, nil
	default:
		return nil, fmt.Errorf("unknown sharpness backend %q (auto, laplacian or heuristic)", name)
	}
}

// Scorer computes QualityScores with a fixed sharpness backend.
type Scorer struct {
	meter SharpnessMeter
}

// NewScorer creates a Scorer. A nil meter falls back to the color-mode
// heuristic.
func NewScorer(meter SharpnessMeter) *Scorer {
	if meter == nil {
		meter = ModeMeter{}
	}
	return &Scorer{meter: meter}
}

// Score rates an image from resolution, file size and sharpness.
// A nil image yields the neutral mid score rather than an error.
func (s *Scorer) Score(img image.Image, mode string, fileSize int64) models.QualityScore {
	if img == nil {
		return models.QualityScore{Overall: 0.5, Resolution: 0.5, Size: 0.5, Sharpness: 0.5}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	resolution := float64(width*height) / referencePixels
	if resolution > maxResolutionScore {
		resolution = maxResolutionScore
	}

	size := sizeScore(fileSize)

	sharpness, ok := s.meter.Measure(img, mode)
	if !ok {
		sharpness = 0.5
	}

	overall := resolution*weightResolution + size*weightSize + sharpness*weightSharpness
	if overall < 0 {
		overall = 0
	} else if overall > 1 {
		overall = 1
	}

	return models.QualityScore{
		Overall:    overall,
		Resolution: resolution,
		Size:       size,
		Sharpness:  sharpness,
		Width:      width,
		Height:     height,
	}
}

// sizeScore is piecewise linear: below 10 KiB scores 0.1, above 10 MiB
// scores 0.8, linear in between.
func sizeScore(fileSize int64) float64 {
	switch {
	case fileSize < minSizeBytes:
		return 0.1
	case fileSize > maxSizeBytes:
		return 0.8
	default:
		score := float64(fileSize-minSizeBytes) / float64(maxSizeBytes-minSizeBytes)
		if score > 1 {
			score = 1
		}
		return score
	}
}
