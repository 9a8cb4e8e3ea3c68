// Package scan walks folders and turns image files into fingerprinted,
// quality-scored records. Extraction is embarrassingly parallel; the
// pool's output is resequenced to scan order before clustering, whose
// result depends on record order.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"imagededup/internal/fingerprint"
	"imagededup/internal/models"
	"imagededup/internal/quality"
)

// Scanner scans folders and produces ImageRecords.
type Scanner struct {
	loader     Loader
	meta       MetadataProvider
	extractor  *fingerprint.Extractor
	scorer     *quality.Scorer
	workers    int
	timeout    time.Duration
	progressFn func(scanned, total int, current string)
	logf       func(format string, args ...any)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkers bounds the extraction pool.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout bounds the processing time per image so malformed files
// cannot hang the scan.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// WithLoader replaces the decoded-image provider.
func WithLoader(l Loader) Option {
	return func(s *Scanner) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithMetadata replaces the filesystem metadata provider.
func WithMetadata(m MetadataProvider) Option {
	return func(s *Scanner) {
		if m != nil {
			s.meta = m
		}
	}
}

// WithLogf sets the sink for per-image warnings (decode failures,
// fingerprint kind failures, metadata fallbacks).
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.logf = fn
		}
	}
}

// NewScanner creates a Scanner around an extractor and scorer.
func NewScanner(extractor *fingerprint.Extractor, scorer *quality.Scorer, opts ...Option) *Scanner {
	s := &Scanner{
		loader:    FileLoader{},
		meta:      FileMetadata{},
		extractor: extractor,
		scorer:    scorer,
		workers:   8,
		timeout:   30 * time.Second,
		logf:      func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one scan. Records are in scan order; Failed
// lists paths that produced no usable fingerprint.
type Result struct {
	Records []*models.ImageRecord
	Failed  []string
}

// ScanFolder scans a folder for images. The context aborts the scan
// between images; records completed before the abort remain valid.
func (s *Scanner) ScanFolder(ctx context.Context, folder string, recursive bool) (*Result, error) {
	paths, err := collectPaths(folder, recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to walk folder: %w", err)
	}
	if len(paths) == 0 {
		return &Result{}, nil
	}

	// One slot per path keeps worker output in scan order; nil slots
	// are failures.
	records := make([]*models.ImageRecord, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var scanned int64
	total := len(paths)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := s.processWithTimeout(path)
			if err != nil {
				s.logf("skipping %s: %v", path, err)
			} else {
				records[i] = rec
			}

			n := atomic.AddInt64(&scanned, 1)
			if s.progressFn != nil {
				s.progressFn(int(n), total, path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, rec := range records {
		if rec == nil {
			res.Failed = append(res.Failed, paths[i])
		} else {
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

// ScanFolders scans multiple folders in sequence.
func (s *Scanner) ScanFolders(ctx context.Context, folders []string, recursive bool) (*Result, error) {
	all := &Result{}
	for _, folder := range folders {
		res, err := s.ScanFolder(ctx, folder, recursive)
		if err != nil {
			return nil, err
		}
		all.Records = append(all.Records, res.Records...)
		all.Failed = append(all.Failed, res.Failed...)
	}
	return all, nil
}

// collectPaths gathers supported image paths. filepath.WalkDir visits
// entries in lexical order, which fixes the scan order the clusterer
// depends on.
func collectPaths(folder string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if !recursive && path != folder {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSupportedImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// process measures one image: decode, fingerprint, metadata, quality.
func (s *Scanner) process(path string) (*models.ImageRecord, error) {
	dec, err := s.loader.Load(path)
	if err != nil {
		return nil, err
	}

	prints, kindErrs := s.extractor.Extract(dec.Image)
	for _, ke := range kindErrs {
		s.logf("fingerprint %s failed for %s: %v", ke.Kind, path, ke.Err)
	}
	if len(prints) == 0 {
		return nil, fmt.Errorf("no fingerprint kind succeeded")
	}

	md, err := s.meta.Stat(path)
	if err != nil {
		// Sentinel values keep the record sortable.
		s.logf("metadata unavailable for %s: %v", path, err)
	}

	bounds := dec.Image.Bounds()

	return &models.ImageRecord{
		Path:         path,
		Fingerprints: prints,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Mode:         dec.Mode,
		Format:       dec.Format,
		FileSize:     md.FileSize,
		CaptureTime:  md.CaptureTime,
		ModTime:      md.ModTime,
		Quality:      s.scorer.Score(dec.Image, dec.Mode, md.FileSize),
	}, nil
}

// processWithTimeout fails fast on files that hang the decoder.
func (s *Scanner) processWithTimeout(path string) (*models.ImageRecord, error) {
	done := make(chan struct{})
	var rec *models.ImageRecord
	var err error

	go func() {
		rec, err = s.process(path)
		close(done)
	}()

	select {
	case <-done:
		return rec, err
	case <-time.After(s.timeout):
		return nil, fmt.Errorf("timeout processing image")
	}
}
