package ocr

import (
	"image"

	"karton/pkg/label"
)

// Options are the per-standard parameters handed to the OCR engine.
type Options struct {
	// Allowlist restricts the characters the engine may emit.
	Allowlist string
	// MinSize drops text boxes shorter than this many pixels.
	MinSize int
	// WidthThreshold merges neighbouring boxes on one line whose gap is at
	// most this fraction of the line height.
	WidthThreshold float64
	// Paragraph joins adjacent lines into one string.
	Paragraph bool
}

// OptionsFor extracts the engine options from a standard's profile.
func OptionsFor(p label.Profile) Options {
	return Options{
		Allowlist:      p.Allowlist,
		MinSize:        p.MinSize,
		WidthThreshold: p.WidthThreshold,
		Paragraph:      p.Paragraph,
	}
}

// Recognizer turns one image into candidate strings. Implementations must
// keep no state between calls.
type Recognizer interface {
	Extract(img image.Image, opts Options) ([]string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(img image.Image, opts Options) ([]string, error)

func (f RecognizerFunc) Extract(img image.Image, opts Options) ([]string, error) {
	return f(img, opts)
}
