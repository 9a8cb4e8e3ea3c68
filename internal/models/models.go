package models

import (
	"fmt"
	"time"
)

// FingerprintKind identifies one perceptual hashing algorithm.
type FingerprintKind string

const (
	// KindFrequency is the DCT-based perceptual hash (pHash).
	KindFrequency FingerprintKind = "phash"
	// KindGradient is the horizontal-gradient difference hash (dHash).
	KindGradient FingerprintKind = "dhash"
	// KindWavelet is the Haar-wavelet hash (wHash).
	KindWavelet FingerprintKind = "whash"
)

// Kinds lists all fingerprint kinds in a fixed order, used wherever
// deterministic iteration matters (similarity scoring, storage).
var Kinds = []FingerprintKind{KindFrequency, KindGradient, KindWavelet}

// Fingerprint is a fixed-length perceptual bit vector holding
// HashSize*HashSize bits packed into Bits, most significant word first.
type Fingerprint struct {
	Kind     FingerprintKind `json:"kind"`
	HashSize int             `json:"hash_size"`
	Bits     []uint64        `json:"bits"`
}

// TotalBits returns the length of the bit vector.
func (f *Fingerprint) TotalBits() int {
	return f.HashSize * f.HashSize
}

// SentinelCaptureTime sorts records with unreadable metadata after every
// real capture time.
var SentinelCaptureTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// QualityScore is a bounded quality assessment used for tie-breaking
// inside a cluster. Overall is a weighted sum: resolution 0.4, file size
// 0.3, sharpness 0.3, clamped to [0,1].
type QualityScore struct {
	Overall    float64 `json:"overall_score"`
	Resolution float64 `json:"resolution_score"`
	Size       float64 `json:"size_score"`
	Sharpness  float64 `json:"sharpness_score"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// ImageRecord is one decoded-and-measured image. Records are created
// once per scan and are not mutated by clustering or arbitration.
type ImageRecord struct {
	ID           int64                            `json:"id,omitempty"`
	Path         string                           `json:"path"`
	Fingerprints map[FingerprintKind]*Fingerprint `json:"-"`
	Width        int                              `json:"width"`
	Height       int                              `json:"height"`
	Mode         string                           `json:"mode"`
	Format       string                           `json:"format"`
	FileSize     int64                            `json:"file_size"`
	CaptureTime  time.Time                        `json:"capture_time"`
	ModTime      time.Time                        `json:"mod_time"`
	Quality      QualityScore                     `json:"quality"`
	GroupID      int                              `json:"group_id,omitempty"`
}

// Fingerprint returns the fingerprint of the given kind, or nil if that
// kind failed during extraction.
func (r *ImageRecord) Fingerprint(kind FingerprintKind) *Fingerprint {
	if r.Fingerprints == nil {
		return nil
	}
	return r.Fingerprints[kind]
}

// Cluster is a group of transitively similar images, always size >= 2.
// Members are ordered; arbitration reorders them in place so that the
// keeper ends up at index 0.
type Cluster struct {
	ID      int            `json:"id"`
	Members []*ImageRecord `json:"members"`
}

// Key returns the stable external identifier of the cluster, matching
// the report contract (group_0000, group_0001, ...).
func (c *Cluster) Key() string {
	return fmt.Sprintf("group_%04d", c.ID)
}

// TotalSize returns the summed file size of all members.
func (c *Cluster) TotalSize() int64 {
	var total int64
	for _, m := range c.Members {
		total += m.FileSize
	}
	return total
}
