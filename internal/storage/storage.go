// Package storage persists scan results (records, fingerprints,
// cluster assignments, failed files, scan history) in SQLite so that
// list, clean, organize and report operate on a previous scan.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"imagededup/internal/models"
)

const timeLayout = time.RFC3339Nano

// Storage wraps the SQLite database.
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage opens (and if needed creates) the database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 1

// migrations defines schema changes beyond the base schema. Each
// migration must be idempotent.
var migrations = []struct {
	version     int
	description string
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // handled by base schema creation
	},
}

func (s *Storage) init() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL,
		capture_time TEXT NOT NULL,
		mod_time TEXT NOT NULL,
		resolution_score REAL NOT NULL DEFAULT 0,
		size_score REAL NOT NULL DEFAULT 0,
		sharpness_score REAL NOT NULL DEFAULT 0,
		quality REAL NOT NULL,
		group_id INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_images_group_id ON images(group_id);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);

	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_id INTEGER NOT NULL REFERENCES images(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		hash_size INTEGER NOT NULL,
		bits TEXT NOT NULL,
		UNIQUE(image_id, kind)
	);

	CREATE TABLE IF NOT EXISTS failed_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		folder TEXT NOT NULL,
		scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		threshold REAL NOT NULL,
		hash_size INTEGER NOT NULL,
		total_images INTEGER NOT NULL,
		total_groups INTEGER NOT NULL,
		total_duplicates INTEGER NOT NULL
	);
	`

	if _, err = s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion || m.up == "" {
			continue
		}
		if _, err := s.db.Exec(m.up); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		s.setSchemaVersion(m.version)
	}

	if currentVersion < schemaVersion {
		s.setSchemaVersion(schemaVersion)
	}
	return nil
}

func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

func (s *Storage) setSchemaVersion(version int) {
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version)
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRecords saves or replaces image records along with their
// fingerprints.
func (s *Storage) SaveRecords(records []*models.ImageRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imgStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO images
			(path, width, height, mode, format, file_size, capture_time, mod_time,
			 resolution_score, size_score, sharpness_score, quality, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer imgStmt.Close()

	fpStmt, err := tx.Prepare(`
		INSERT INTO fingerprints (image_id, kind, hash_size, bits)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer fpStmt.Close()

	for _, rec := range records {
		res, err := imgStmt.Exec(
			rec.Path,
			rec.Width,
			rec.Height,
			rec.Mode,
			rec.Format,
			rec.FileSize,
			rec.CaptureTime.UTC().Format(timeLayout),
			rec.ModTime.UTC().Format(timeLayout),
			rec.Quality.Resolution,
			rec.Quality.Size,
			rec.Quality.Sharpness,
			rec.Quality.Overall,
			rec.GroupID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert image %s: %w", rec.Path, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get image id for %s: %w", rec.Path, err)
		}
		rec.ID = id

		// INSERT OR REPLACE reassigned the row id; the cascade already
		// dropped any previous fingerprints.
		for _, kind := range models.Kinds {
			fp := rec.Fingerprint(kind)
			if fp == nil {
				continue
			}
			if _, err := fpStmt.Exec(id, string(fp.Kind), fp.HashSize, encodeBits(fp.Bits)); err != nil {
				return fmt.Errorf("failed to insert fingerprint for %s: %w", rec.Path, err)
			}
		}
	}

	return tx.Commit()
}

// UpdateClusters resets all cluster assignments and applies new ones.
// Cluster IDs are stored 1-based; group_id 0 means unclustered.
func (s *Storage) UpdateClusters(clusters []*models.Cluster) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE images SET group_id = 0`); err != nil {
		return fmt.Errorf("failed to reset clusters: %w", err)
	}

	stmt, err := tx.Prepare(`UPDATE images SET group_id = ? WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range clusters {
		for _, m := range c.Members {
			if _, err := stmt.Exec(c.ID+1, m.Path); err != nil {
				return fmt.Errorf("failed to update cluster for %s: %w", m.Path, err)
			}
		}
	}

	return tx.Commit()
}

// SaveFailedFiles replaces the stored failed-file list.
func (s *Storage) SaveFailedFiles(paths []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM failed_files`); err != nil {
		return fmt.Errorf("failed to clear failed files: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO failed_files (path) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(p); err != nil {
			return fmt.Errorf("failed to insert failed file %s: %w", p, err)
		}
	}

	return tx.Commit()
}

// GetFailedFiles returns the stored failed-file list.
func (s *Storage) GetFailedFiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM failed_files ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetClusters returns all stored clusters with members in scan
// (insertion) order, so arbitration stays deterministic after a
// round trip.
func (s *Storage) GetClusters() ([]*models.Cluster, error) {
	rows, err := s.db.Query(`SELECT DISTINCT group_id FROM images WHERE group_id > 0 ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var groupIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		groupIDs = append(groupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var clusters []*models.Cluster
	for _, gid := range groupIDs {
		members, err := s.getRecords(`WHERE group_id = ? ORDER BY id`, gid)
		if err != nil {
			return nil, err
		}
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, &models.Cluster{ID: gid - 1, Members: members})
	}

	return clusters, nil
}

// GetAllRecords returns every stored record ordered by path.
func (s *Storage) GetAllRecords() ([]*models.ImageRecord, error) {
	return s.getRecords(`ORDER BY path`)
}

func (s *Storage) getRecords(tail string, args ...any) ([]*models.ImageRecord, error) {
	query := `
		SELECT id, path, width, height, mode, format, file_size, capture_time, mod_time,
		       resolution_score, size_score, sharpness_score, quality, group_id
		FROM images ` + tail

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var records []*models.ImageRecord
	for rows.Next() {
		rec := &models.ImageRecord{}
		var captureTime, modTime string
		err := rows.Scan(
			&rec.ID,
			&rec.Path,
			&rec.Width,
			&rec.Height,
			&rec.Mode,
			&rec.Format,
			&rec.FileSize,
			&captureTime,
			&modTime,
			&rec.Quality.Resolution,
			&rec.Quality.Size,
			&rec.Quality.Sharpness,
			&rec.Quality.Overall,
			&rec.GroupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.CaptureTime, _ = time.Parse(timeLayout, captureTime)
		rec.ModTime, _ = time.Parse(timeLayout, modTime)
		rec.Quality.Width = rec.Width
		rec.Quality.Height = rec.Height
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := s.loadFingerprints(rec); err != nil {
			return nil, err
		}
	}

	return records, nil
}

func (s *Storage) loadFingerprints(rec *models.ImageRecord) error {
	rows, err := s.db.Query(`SELECT kind, hash_size, bits FROM fingerprints WHERE image_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var hashSize int
		var bits string
		if err := rows.Scan(&kind, &hashSize, &bits); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		words, err := decodeBits(bits)
		if err != nil {
			return fmt.Errorf("corrupt fingerprint for %s: %w", rec.Path, err)
		}
		if rec.Fingerprints == nil {
			rec.Fingerprints = make(map[models.FingerprintKind]*models.Fingerprint)
		}
		rec.Fingerprints[models.FingerprintKind(kind)] = &models.Fingerprint{
			Kind:     models.FingerprintKind(kind),
			HashSize: hashSize,
			Bits:     words,
		}
	}
	return rows.Err()
}

// DeleteRecord removes an image and (via cascade) its fingerprints.
func (s *Storage) DeleteRecord(path string) error {
	_, err := s.db.Exec(`DELETE FROM images WHERE path = ?`, path)
	return err
}

// ScanInfo is one scan_history entry.
type ScanInfo struct {
	Folder          string
	ScannedAt       time.Time
	Threshold       float64
	HashSize        int
	TotalImages     int
	TotalGroups     int
	TotalDuplicates int
}

// RecordScan appends a scan_history entry.
func (s *Storage) RecordScan(info ScanInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_history (folder, threshold, hash_size, total_images, total_groups, total_duplicates)
		VALUES (?, ?, ?, ?, ?, ?)
	`, info.Folder, info.Threshold, info.HashSize, info.TotalImages, info.TotalGroups, info.TotalDuplicates)
	return err
}

// LastScan returns the most recent scan_history entry, or nil if no
// scan has run yet.
func (s *Storage) LastScan() (*ScanInfo, error) {
	row := s.db.QueryRow(`
		SELECT folder, scanned_at, threshold, hash_size, total_images, total_groups, total_duplicates
		FROM scan_history ORDER BY id DESC LIMIT 1
	`)

	info := &ScanInfo{}
	var scannedAt string
	err := row.Scan(&info.Folder, &scannedAt, &info.Threshold, &info.HashSize,
		&info.TotalImages, &info.TotalGroups, &info.TotalDuplicates)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	info.ScannedAt, _ = time.Parse("2006-01-02 15:04:05", scannedAt)
	return info, nil
}

// encodeBits renders fingerprint words as fixed-width hex.
func encodeBits(words []uint64) string {
	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "%016x", w)
	}
	return b.String()
}

// decodeBits parses the hex produced by encodeBits.
func decodeBits(s string) ([]uint64, error) {
	if len(s)%16 != 0 {
		return nil, fmt.Errorf("invalid bits length %d", len(s))
	}
	words := make([]uint64, 0, len(s)/16)
	for i := 0; i < len(s); i += 16 {
		w, err := strconv.ParseUint(s[i:i+16], 16, 64)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}
