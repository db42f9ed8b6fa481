package ocr

import (
	"fmt"
	"image"

	"karton/pkg/label"
)

// DefaultMaxWidth bounds the width of the variant base image.
const DefaultMaxWidth = 640

// Variant is one preprocessed rendition of a frame. Stage is diagnostic only.
type Variant struct {
	Stage string
	Image *image.Gray
}

// Variants builds the ordered preprocessing set for std. Frames wider than
// maxWidth are downscaled first; every variant derives from that grayscale base.
func Variants(img image.Image, std label.Standard, maxWidth int) []Variant {
	base := toGray(downscale(img, maxWidth))
	switch std {
	case label.JIS:
		return []Variant{
			{"Sharpened", sharpen(base)},
			{"Grayscale", base},
			{"Inverted_Gray", invert(base)},
			{"Binary", adaptiveGaussian(base, 11, 2, true)},
		}
	case label.DIN:
		enhanced := clahe(base, 3.0, 8)
		otsu := otsuThreshold(enhanced)
		binary := binarize(enhanced, otsu, false)
		gauss := adaptiveGaussian(enhanced, 11, 2, false)
		return []Variant{
			{"Enhanced", enhanced},
			{"Binary_Otsu", binary},
			{"Adaptive_Gaussian", gauss},
			{"Adaptive_Mean", adaptiveMean(enhanced, 11, 2, false)},
			{"Binary_Inv", invert(binary)},
			{"Adaptive_Inv", invert(gauss)},
			{"Morphed", closeRect(binary, 2, 2)},
		}
	}
	panic(fmt.Sprintf("ocr: no variants for %v", std))
}

// Binarize returns the Otsu black/white rendition of img, used for stored
// image references and the binary display view.
func Binarize(img image.Image) *image.Gray {
	g := toGray(img)
	return binarize(g, otsuThreshold(g), false)
}
