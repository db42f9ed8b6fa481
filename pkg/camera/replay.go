package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Replay cycles through the images of a directory at a fixed rate, standing in
// for a camera in demos and tests.
type Replay struct {
	mu     sync.Mutex
	files  []string
	next   int
	every  time.Duration
	last   time.Time
	closed bool
}

// NewReplay lists the decodable images in dir, sorted by name.
func NewReplay(dir string, every time.Duration) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && SupportedImage(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrUnavailable, dir)
	}
	sort.Strings(files)
	return &Replay{files: files, every: every}, nil
}

func (r *Replay) Read() (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if wait := r.every - time.Since(r.last); !r.last.IsZero() && wait > 0 {
		time.Sleep(wait)
	}
	r.last = time.Now()
	path := r.files[r.next]
	r.next = (r.next + 1) % len(r.files)
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	return img, nil
}

func (r *Replay) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// SupportedImage reports whether name has an extension imaging can decode.
func SupportedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
