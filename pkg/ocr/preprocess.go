package ocr

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// toGray converts any image to a packed 8-bit luma image anchored at the
// origin. Callers index Pix flat, so the result always has Stride == Dx.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		w, h := g.Rect.Dx(), g.Rect.Dy()
		if g.Rect.Min == (image.Point{}) && g.Stride == w {
			return g
		}
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(out.Pix[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return out
	}
	src := imaging.Grayscale(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}

// downscale shrinks img proportionally when it is wider than maxWidth.
func downscale(img image.Image, maxWidth int) image.Image {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		return imaging.Resize(img, maxWidth, 0, imaging.Box)
	}
	return img
}

// binarize applies a global threshold: pixels above threshold become white.
func binarize(g *image.Gray, threshold uint8, inverse bool) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		out.Pix[i] = level(float64(v) > float64(threshold), inverse)
	}
	return out
}

func level(on, inverse bool) uint8 {
	if on != inverse {
		return 255
	}
	return 0
}

// otsuThreshold returns the threshold maximising between-class variance.
func otsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	total := len(g.Pix)
	if total == 0 {
		return 0
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	var sumB float64
	var wB int
	best, bestVar := 0, -1.0
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return uint8(best)
}

// adaptiveMean thresholds each pixel against the mean of its block minus c,
// using an integral image over the clamped window.
func adaptiveMean(g *image.Gray, block int, c float64, inverse bool) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	w, h := g.Rect.Dx(), g.Rect.Dy()
	half := block / 2
	ints := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(g.Pix[y*g.Stride+x])
			ints[(y+1)*(w+1)+x+1] = ints[y*(w+1)+x+1] + rowSum
		}
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half, w-1)
			sum := ints[(y1+1)*(w+1)+x1+1] - ints[y0*(w+1)+x1+1] - ints[(y1+1)*(w+1)+x0] + ints[y0*(w+1)+x0]
			mean := float64(sum) / float64((x1-x0+1)*(y1-y0+1))
			out.Pix[y*out.Stride+x] = level(float64(g.Pix[y*g.Stride+x]) > mean-c, inverse)
		}
	}
	return out
}

// adaptiveGaussian is adaptiveMean with a Gaussian-weighted neighbourhood.
func adaptiveGaussian(g *image.Gray, block int, c float64, inverse bool) *image.Gray {
	sigma := 0.3*(float64(block-1)*0.5-1) + 0.8
	blurred := imaging.Blur(g, sigma)
	out := image.NewGray(g.Rect)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mean := float64(blurred.Pix[y*blurred.Stride+x*4])
			out.Pix[y*out.Stride+x] = level(float64(g.Pix[y*g.Stride+x]) > mean-c, inverse)
		}
	}
	return out
}

// sharpen applies the 3x3 high-boost kernel used for embossed JIS codes.
func sharpen(g *image.Gray) *image.Gray {
	k := [9]float64{-1, -1, -1, -1, 9, -1, -1, -1, -1}
	return toGray(imaging.Convolve3x3(g, k, nil))
}

func invert(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Rect)
	for i, v := range g.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// clahe performs contrast-limited adaptive histogram equalisation over a
// tiles x tiles grid with bilinear blending between tile mappings.
func clahe(g *image.Gray, clip float64, tiles int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	tiles = min(tiles, w, h)
	if tiles < 1 {
		return g
	}
	tw := float64(w) / float64(tiles)
	th := float64(h) / float64(tiles)

	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, x1 := int(float64(tx)*tw), int(float64(tx+1)*tw)
			y0, y1 := int(float64(ty)*th), int(float64(ty+1)*th)
			luts[ty*tiles+tx] = tileLUT(g, x0, y0, x1, y1, clip)
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/th - 0.5
		ty0 := clampInt(int(math.Floor(fy)), 0, tiles-1)
		ty1 := min(ty0+1, tiles-1)
		ay := clampF(fy-float64(ty0), 0, 1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/tw - 0.5
			tx0 := clampInt(int(math.Floor(fx)), 0, tiles-1)
			tx1 := min(tx0+1, tiles-1)
			ax := clampF(fx-float64(tx0), 0, 1)
			v := g.Pix[y*g.Stride+x]
			top := (1-ax)*float64(luts[ty0*tiles+tx0][v]) + ax*float64(luts[ty0*tiles+tx1][v])
			bot := (1-ax)*float64(luts[ty1*tiles+tx0][v]) + ax*float64(luts[ty1*tiles+tx1][v])
			out.Pix[y*out.Stride+x] = uint8(math.Round((1-ay)*top + ay*bot))
		}
	}
	return out
}

func tileLUT(g *image.Gray, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[g.Pix[y*g.Stride+x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if area == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}
	limit := max(int(clip*float64(area)/256), 1)
	excess := 0
	for i, c := range hist {
		if c > limit {
			excess += c - limit
			hist[i] = limit
		}
	}
	each, rest := excess/256, excess%256
	for i := range hist {
		hist[i] += each
		if i < rest {
			hist[i]++
		}
	}
	cdf := 0
	for i, c := range hist {
		cdf += c
		lut[i] = uint8(clampInt(int(math.Round(float64(cdf)*255/float64(area))), 0, 255))
	}
	return lut
}

// closeRect is a morphological closing (dilate then erode) with a kw x kh
// rectangle anchored at its centre.
func closeRect(g *image.Gray, kw, kh int) *image.Gray {
	return morph(morph(g, kw, kh, true), kw, kh, false)
}

func morph(g *image.Gray, kw, kh int, dilate bool) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	ax, ay := kw/2, kh/2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := uint8(255)
			if dilate {
				acc = 0
			}
			for dy := -ay; dy < kh-ay; dy++ {
				for dx := -ax; dx < kw-ax; dx++ {
					x2, y2 := x+dx, y+dy
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					v := g.Pix[y2*g.Stride+x2]
					if dilate && v > acc || !dilate && v < acc {
						acc = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = acc
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
