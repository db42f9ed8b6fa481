package ocr

import (
	"fmt"
	"image"
	"log"
	"strings"
)

// Pool is the multiset of candidates read from every variant of one frame.
type Pool struct {
	// Raw holds every string in variant order, duplicates included.
	Raw []string
	// Stages records how many strings each stage contributed.
	Stages map[string]int
	// Failed lists the stages whose extraction failed.
	Failed []string
}

// Unique returns the first-seen deduplicated view, for diagnostics only.
func (p Pool) Unique() []string {
	seen := make(map[string]bool, len(p.Raw))
	out := make([]string, 0, len(p.Raw))
	for _, s := range p.Raw {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (p Pool) Empty() bool { return len(p.Raw) == 0 }

// Collect runs rec over every variant. A failing variant is logged and
// contributes nothing; it never aborts the scan.
func Collect(rec Recognizer, variants []Variant, opts Options) Pool {
	pool := Pool{Stages: make(map[string]int, len(variants))}
	for _, v := range variants {
		texts, err := extractSafe(rec, v.Image, opts)
		if err != nil {
			log.Printf("ocr stage=%s failed: %v", v.Stage, err)
			pool.Failed = append(pool.Failed, v.Stage)
			continue
		}
		n := 0
		for _, t := range texts {
			t = normalizeOCRText(t)
			if t == "" {
				continue
			}
			pool.Raw = append(pool.Raw, t)
			n++
		}
		pool.Stages[v.Stage] = n
	}
	if len(pool.Raw) > 0 {
		log.Printf("ocr passes variants=%d candidates=%d sample=%q", len(variants), len(pool.Raw), snippet(strings.Join(pool.Raw, " | "), 80))
	}
	return pool
}

func extractSafe(rec Recognizer, img image.Image, opts Options) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEngine, r)
		}
	}()
	texts, err = rec.Extract(img, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	return texts, nil
}
