package ocr

import (
	"image"
	"sort"
	"strings"
)

// Box is one word reported by an engine with its bounding rectangle.
type Box struct {
	Rect image.Rectangle
	Text string
}

type segment struct {
	rect  image.Rectangle
	words []string
}

func (s segment) text() string { return strings.Join(s.words, " ") }

// GroupBoxes assembles word boxes into candidate strings: words on one line
// are merged while their horizontal gap stays within WidthThreshold times the
// line height; in paragraph mode vertically adjacent segments are merged too.
// Boxes whose larger side is below MinSize are discarded.
func GroupBoxes(words []Box, opts Options) []string {
	var kept []Box
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" || max(w.Rect.Dx(), w.Rect.Dy()) < opts.MinSize {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return nil
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Rect.Min.Y < kept[j].Rect.Min.Y })

	var lines [][]Box
	for _, w := range kept {
		placed := false
		for i, line := range lines {
			if sameLine(line[0].Rect, w.Rect) {
				lines[i] = append(lines[i], w)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []Box{w})
		}
	}

	var segs []segment
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].Rect.Min.X < line[j].Rect.Min.X })
		cur := segment{rect: line[0].Rect, words: []string{line[0].Text}}
		for _, w := range line[1:] {
			gap := w.Rect.Min.X - cur.rect.Max.X
			if float64(gap) <= opts.WidthThreshold*float64(cur.rect.Dy()) {
				cur.rect = cur.rect.Union(w.Rect)
				cur.words = append(cur.words, w.Text)
				continue
			}
			segs = append(segs, cur)
			cur = segment{rect: w.Rect, words: []string{w.Text}}
		}
		segs = append(segs, cur)
	}

	if opts.Paragraph {
		segs = mergeParagraphs(segs)
	}
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.text())
	}
	return out
}

// sameLine reports whether b overlaps a vertically by at least half of the
// smaller height.
func sameLine(a, b image.Rectangle) bool {
	overlap := min(a.Max.Y, b.Max.Y) - max(a.Min.Y, b.Min.Y)
	return overlap*2 >= min(a.Dy(), b.Dy())
}

func mergeParagraphs(segs []segment) []segment {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].rect.Min.Y < segs[j].rect.Min.Y })
	var out []segment
	for _, s := range segs {
		joined := false
		for i := range out {
			p := &out[i]
			vgap := s.rect.Min.Y - p.rect.Max.Y
			hOverlap := min(p.rect.Max.X, s.rect.Max.X) - max(p.rect.Min.X, s.rect.Min.X)
			if vgap <= s.rect.Dy() && vgap > -s.rect.Dy() && hOverlap > 0 {
				p.rect = p.rect.Union(s.rect)
				p.words = append(p.words, s.words...)
				joined = true
				break
			}
		}
		if !joined {
			out = append(out, s)
		}
	}
	return out
}
