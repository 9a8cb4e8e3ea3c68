package fingerprint

import (
	"image"
	"image/color"
	"math/bits"
	"testing"

	"imagededup/internal/models"
)

func checkerImage(w, h, block int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/block+y/block)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func popcount(words []uint64) int {
	total := 0
	for _, w := range words {
		total += bits.OnesCount64(w)
	}
	return total
}

func TestWaveletHash_Shape(t *testing.T) {
	img := testImage(64, 64)

	for _, hashSize := range []int{8, 16, 32} {
		fp, err := waveletHash(img, hashSize)
		if err != nil {
			t.Fatalf("hash size %d: %v", hashSize, err)
		}
		if fp.Kind != models.KindWavelet {
			t.Errorf("expected wavelet kind, got %s", fp.Kind)
		}
		if fp.HashSize != hashSize {
			t.Errorf("expected hash size %d, got %d", hashSize, fp.HashSize)
		}
		if want := (hashSize*hashSize + 63) / 64; len(fp.Bits) != want {
			t.Errorf("hash size %d: expected %d words, got %d", hashSize, want, len(fp.Bits))
		}
	}
}

func TestWaveletHash_Deterministic(t *testing.T) {
	img := checkerImage(64, 64, 8)

	a, err := waveletHash(img, 8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := waveletHash(img, 8)
	if err != nil {
		t.Fatal(err)
	}

	dist, err := HammingDistance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if dist != 0 {
		t.Errorf("same image hashed differently (distance %d)", dist)
	}
}

// The median split sets roughly half the bits on a structured image,
// which is what makes the hash discriminative.
func TestWaveletHash_MedianSplit(t *testing.T) {
	fp, err := waveletHash(testImage(128, 128), 8)
	if err != nil {
		t.Fatal(err)
	}

	set := popcount(fp.Bits)
	if set < 16 || set > 48 {
		t.Errorf("gradient image should set roughly half of 64 bits, got %d", set)
	}
}

func TestWaveletHash_DistinguishesStructures(t *testing.T) {
	grad, err := waveletHash(testImage(64, 64), 8)
	if err != nil {
		t.Fatal(err)
	}
	checker, err := waveletHash(checkerImage(64, 64, 16), 8)
	if err != nil {
		t.Fatal(err)
	}

	dist, err := HammingDistance(grad, checker)
	if err != nil {
		t.Fatal(err)
	}
	if dist == 0 {
		t.Error("structurally different images should not collide")
	}
}

// Scaling should leave the hash nearly intact: the whole point of the
// coarse band is robustness to resizing.
func TestWaveletHash_SurvivesRescaling(t *testing.T) {
	big, err := waveletHash(checkerImage(128, 128, 32), 8)
	if err != nil {
		t.Fatal(err)
	}
	small, err := waveletHash(checkerImage(64, 64, 16), 8)
	if err != nil {
		t.Fatal(err)
	}

	dist, err := HammingDistance(big, small)
	if err != nil {
		t.Fatal(err)
	}
	if dist > 8 {
		t.Errorf("rescaled image drifted too far: distance %d of 64", dist)
	}
}

func TestWaveletHash_InvalidInput(t *testing.T) {
	if _, err := waveletHash(nil, 8); err == nil {
		t.Error("nil image should be rejected")
	}
	if _, err := waveletHash(image.NewGray(image.Rect(0, 0, 0, 0)), 8); err == nil {
		t.Error("empty image should be rejected")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		vs   []float64
		want float64
	}{
		{"odd length", []float64{3, 1, 2}, 2},
		{"even length", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}
	for _, tt := range tests {
		if got := median(tt.vs); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	// Input must not be reordered.
	vs := []float64{3, 1, 2}
	median(vs)
	if vs[0] != 3 || vs[1] != 1 || vs[2] != 2 {
		t.Errorf("median mutated its input: %v", vs)
	}
}
