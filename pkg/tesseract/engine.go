// Package tesseract adapts gosseract to the ocr.Recognizer interface.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"karton/pkg/ocr"
)

// Engine runs Tesseract word detection. A fresh client is created per call so
// one Engine can serve concurrent scans.
type Engine struct {
	Language string
	// MinConfidence drops words Tesseract is less sure about (0-100).
	MinConfidence float64
}

func New(language string) *Engine {
	if language == "" {
		language = "eng"
	}
	return &Engine{Language: language}
}

// Extract implements ocr.Recognizer.
func (e *Engine) Extract(img image.Image, opts ocr.Options) ([]string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.Language); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if opts.Allowlist != "" {
		if err := client.SetWhitelist(opts.Allowlist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("set psm: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("ocr error: %w", err)
	}

	words := make([]ocr.Box, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence < e.MinConfidence || strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, ocr.Box{Rect: b.Box, Text: b.Word})
	}
	return ocr.GroupBoxes(words, opts), nil
}

// Version reports the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
