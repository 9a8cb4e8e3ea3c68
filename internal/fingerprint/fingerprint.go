// Package fingerprint computes perceptual fingerprints for decoded
// images and compares them with a normalized, tolerance-friendly
// similarity metric.
package fingerprint

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/corona10/goimagehash"

	"imagededup/internal/models"
)

// ValidHashSizes are the supported fingerprint resolutions. A hash of
// size h is an h×h bit matrix.
var ValidHashSizes = []int{8, 16, 32}

// ValidateHashSize rejects unsupported resolutions before any work starts.
func ValidateHashSize(h int) error {
	for _, v := range ValidHashSizes {
		if h == v {
			return nil
		}
	}
	return fmt.Errorf("unsupported hash size %d (must be 8, 16 or 32)", h)
}

// KindError records the failure of a single fingerprint kind. One kind
// failing does not invalidate the others.
type KindError struct {
	Kind models.FingerprintKind
	Err  error
}

func (e KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Extractor computes all fingerprint kinds at a fixed resolution.
type Extractor struct {
	hashSize int
}

// NewExtractor creates an Extractor for the given hash size.
func NewExtractor(hashSize int) (*Extractor, error) {
	if err := ValidateHashSize(hashSize); err != nil {
		return nil, err
	}
	return &Extractor{hashSize: hashSize}, nil
}

// HashSize returns the configured resolution.
func (e *Extractor) HashSize() int {
	return e.hashSize
}

// Extract computes one fingerprint per kind. Each kind may fail
// independently; failures come back as KindErrors alongside whatever
// succeeded. An empty map means the image is unusable for clustering.
func (e *Extractor) Extract(img image.Image) (map[models.FingerprintKind]*models.Fingerprint, []KindError) {
	prints := make(map[models.FingerprintKind]*models.Fingerprint, len(models.Kinds))
	var failures []KindError

	if fp, err := e.frequencyHash(img); err != nil {
		failures = append(failures, KindError{Kind: models.KindFrequency, Err: err})
	} else {
		prints[models.KindFrequency] = fp
	}

	if fp, err := e.gradientHash(img); err != nil {
		failures = append(failures, KindError{Kind: models.KindGradient, Err: err})
	} else {
		prints[models.KindGradient] = fp
	}

	if fp, err := waveletHash(img, e.hashSize); err != nil {
		failures = append(failures, KindError{Kind: models.KindWavelet, Err: err})
	} else {
		prints[models.KindWavelet] = fp
	}

	return prints, failures
}

// frequencyHash is the DCT-based perceptual hash.
func (e *Extractor) frequencyHash(img image.Image) (*models.Fingerprint, error) {
	h, err := goimagehash.ExtPerceptionHash(img, e.hashSize, e.hashSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute perception hash: %w", err)
	}
	return &models.Fingerprint{
		Kind:     models.KindFrequency,
		HashSize: e.hashSize,
		Bits:     h.GetHash(),
	}, nil
}

// gradientHash is the horizontal difference hash.
func (e *Extractor) gradientHash(img image.Image) (*models.Fingerprint, error) {
	h, err := goimagehash.ExtDifferenceHash(img, e.hashSize, e.hashSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute difference hash: %w", err)
	}
	return &models.Fingerprint{
		Kind:     models.KindGradient,
		HashSize: e.hashSize,
		Bits:     h.GetHash(),
	}, nil
}

// HammingDistance counts differing bits between two fingerprints of the
// same resolution.
func HammingDistance(a, b *models.Fingerprint) (int, error) {
	if a.HashSize != b.HashSize || len(a.Bits) != len(b.Bits) {
		return 0, fmt.Errorf("fingerprint size mismatch: %d vs %d", a.HashSize, b.HashSize)
	}
	dist := 0
	for i := range a.Bits {
		dist += bits.OnesCount64(a.Bits[i] ^ b.Bits[i])
	}
	return dist, nil
}

// Similarity converts Hamming distance into a [0,1] score: identical
// fingerprints score 1.0, maximally distant ones 0.0.
func Similarity(a, b *models.Fingerprint) (float64, error) {
	dist, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	sim := 1.0 - float64(dist)/float64(a.TotalBits())
	if sim < 0 {
		sim = 0
	} else if sim > 1 {
		sim = 1
	}
	return sim, nil
}

// BestSimilarity returns the maximum similarity across all fingerprint
// kinds present on both records. ok is false when the records share no
// kind, in which case no comparison is possible.
func BestSimilarity(a, b *models.ImageRecord) (best float64, ok bool) {
	for _, kind := range models.Kinds {
		fa := a.Fingerprint(kind)
		fb := b.Fingerprint(kind)
		if fa == nil || fb == nil {
			continue
		}
		sim, err := Similarity(fa, fb)
		if err != nil {
			continue
		}
		if !ok || sim > best {
			best = sim
			ok = true
		}
	}
	return best, ok
}
