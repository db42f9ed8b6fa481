package scan

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"karton/pkg/ocr"
)

// CropSquare cuts the largest centred square out of img.
func CropSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if side == b.Dx() && side == b.Dy() {
		return img
	}
	return imaging.CropCenter(img, side, side)
}

// Render produces the display frame. Split view stacks the binary rendition
// above the original; binary view shows the binary rendition alone. Neither
// affects what is scanned.
func Render(img image.Image, s Settings) image.Image {
	switch {
	case s.SplitView:
		b := img.Bounds()
		out := imaging.New(b.Dx(), b.Dy()*2, color.Black)
		out = imaging.Paste(out, ocr.Binarize(img), image.Pt(0, 0))
		return imaging.Paste(out, img, image.Pt(0, b.Dy()))
	case s.BinaryView:
		return ocr.Binarize(img)
	}
	return img
}

// Letterbox fits img into a w x h canvas, centred on black.
func Letterbox(img image.Image, w, h int) image.Image {
	fitted := imaging.Fit(img, w, h, imaging.Lanczos)
	canvas := imaging.New(w, h, color.Black)
	return imaging.PasteCenter(canvas, fitted)
}
