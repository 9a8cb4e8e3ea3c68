package fingerprint

import (
	"fmt"
	"image"
	"sort"

	"golang.org/x/image/draw"

	"imagededup/internal/models"
)

// waveletLevels is the number of Haar decompositions applied before
// thresholding. The image is rescaled to hashSize<<waveletLevels so the
// final low-frequency band is exactly hashSize×hashSize.
const waveletLevels = 3

// waveletHash computes a Haar-wavelet fingerprint: the image is reduced
// to its coarse low-frequency band and each coefficient becomes one bit
// depending on whether it exceeds the band median.
func waveletHash(img image.Image, hashSize int) (*models.Fingerprint, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	scale := hashSize << waveletLevels
	coeffs := grayMatrix(img, scale)

	// Each pass keeps the LL quadrant: 2x2 block averages.
	for size := scale; size > hashSize; size /= 2 {
		half := size / 2
		for y := 0; y < half; y++ {
			for x := 0; x < half; x++ {
				coeffs[y][x] = (coeffs[2*y][2*x] + coeffs[2*y][2*x+1] +
					coeffs[2*y+1][2*x] + coeffs[2*y+1][2*x+1]) / 4.0
			}
		}
	}

	flat := make([]float64, 0, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		flat = append(flat, coeffs[y][:hashSize]...)
	}
	mid := median(flat)

	words := make([]uint64, (hashSize*hashSize+63)/64)
	for i, v := range flat {
		if v > mid {
			words[i/64] |= 1 << uint(63-i%64)
		}
	}

	return &models.Fingerprint{
		Kind:     models.KindWavelet,
		HashSize: hashSize,
		Bits:     words,
	}, nil
}

// grayMatrix rescales the image to size×size and returns its grayscale
// pixels as float64 rows.
func grayMatrix(img image.Image, size int) [][]float64 {
	gray := image.NewGray(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	rows := make([][]float64, size)
	for y := 0; y < size; y++ {
		rows[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			rows[y][x] = float64(gray.GrayAt(x, y).Y)
		}
	}
	return rows
}

// median returns the middle value of vs without mutating it.
func median(vs []float64) float64 {
	sorted := make([]float64, len(vs))
	copy(sorted, vs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}
