package scan

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoded is a normalized pixel buffer plus its declared color mode.
type Decoded struct {
	Image  image.Image
	Mode   string // RGB, RGBA, L, P, CMYK
	Format string // container format reported by the decoder
}

// Loader is the decoded-image provider: given a path it returns the
// decoded image or a decode failure.
type Loader interface {
	Load(path string) (*Decoded, error)
}

// FileLoader decodes images from the filesystem using the registered
// stdlib and x/image decoders.
type FileLoader struct{}

func (FileLoader) Load(path string) (*Decoded, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Decoded{
		Image:  img,
		Mode:   colorMode(img),
		Format: strings.ToLower(format),
	}, nil
}

// colorMode maps the decoded pixel representation to a declared color
// mode. Alpha and palette variants are reported as RGB: downstream
// treats them as already flattened.
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.CMYK:
		return "CMYK"
	default:
		return "RGB"
	}
}

// supportedExtensions mirrors the formats the pipeline accepts. Entries
// without a registered decoder (ico, svg) still count as images; they
// fail decoding and land on the failed-file list.
var supportedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
	".ico": true, ".svg": true,
}

// IsSupportedImage reports whether a path looks like an image the
// pipeline should attempt.
func IsSupportedImage(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}
