package store

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"karton/pkg/ocr"
)

// Images writes the binarised image reference of each accepted detection.
type Images struct {
	Dir     string
	Quality int
}

func NewImages(dir string) *Images {
	return &Images{Dir: dir, Quality: 90}
}

// Name builds the file name for a detection taken at t.
func Name(t time.Time) string {
	return fmt.Sprintf("karton_%s_%s.jpg", t.Format("20060102_150405"), uuid.NewString()[:8])
}

// Save stores an Otsu-binarised JPEG of frame and returns its path.
func (s *Images) Save(frame image.Image, at time.Time) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	path := filepath.Join(s.Dir, Name(at))
	if err := imaging.Save(ocr.Binarize(frame), path, imaging.JPEGQuality(s.Quality)); err != nil {
		return "", fmt.Errorf("save image %s: %w", path, err)
	}
	return path, nil
}
