package scan

import (
	"fmt"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"imagededup/internal/models"
)

// Metadata is the filesystem measurement for one path.
type Metadata struct {
	FileSize    int64
	ModTime     time.Time
	CaptureTime time.Time
}

// MetadataProvider returns size, modification time and best-effort
// capture time for a path. On error the returned Metadata still carries
// worst-case sentinel values so the record sorts deterministically.
type MetadataProvider interface {
	Stat(path string) (Metadata, error)
}

// FileMetadata reads metadata via os.Stat and EXIF.
type FileMetadata struct{}

func (FileMetadata) Stat(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{
			ModTime:     models.SentinelCaptureTime,
			CaptureTime: models.SentinelCaptureTime,
		}, fmt.Errorf("failed to stat file: %w", err)
	}

	md := Metadata{
		FileSize: info.Size(),
		ModTime:  info.ModTime(),
	}

	// Capture time: EXIF original date when present, modification time
	// otherwise.
	if t, ok := exifCaptureTime(path); ok {
		md.CaptureTime = t
	} else {
		md.CaptureTime = info.ModTime()
	}

	return md, nil
}

// exifCaptureTime extracts DateTimeOriginal from the file's EXIF block.
func exifCaptureTime(path string) (time.Time, bool) {
	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer file.Close()

	meta, err := exif.Decode(file)
	if err != nil {
		return time.Time{}, false
	}

	t, err := meta.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
