package label

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const optionS = "(S)"

// Match is a catalog hit for one corrected text.
type Match struct {
	Entry string  `json:"entry"`
	Score float64 `json:"score"`
}

// Matcher finds the catalog entry a corrected text most plausibly represents.
type Matcher interface {
	Match(corrected string) (Match, bool)
}

// Similarity is the Ratcliff/Obershelp ratio 2*M/T over runes, in [0,1].
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runeStrings(a), runeStrings(b)).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// bestEntry scans entries in catalog order. key maps an entry to its
// comparison form, or reports it ineligible. The earliest entry wins ties.
func bestEntry(entries []string, text string, threshold float64, key func(string) (string, bool)) (Match, bool) {
	var best Match
	found := false
	for _, e := range entries {
		k, ok := key(e)
		if !ok {
			continue
		}
		score := Similarity(text, k)
		if score > threshold && (!found || score > best.Score) {
			best = Match{Entry: e, Score: score}
			found = true
		}
	}
	return best, found
}

// DINMatcher matches against the space-free uppercase catalog.
type DINMatcher struct {
	catalog   *Catalog
	threshold float64
	minLen    int
}

func NewDINMatcher(c *Catalog, threshold float64, minLen int) *DINMatcher {
	return &DINMatcher{catalog: c, threshold: threshold, minLen: minLen}
}

func (m *DINMatcher) Match(corrected string) (Match, bool) {
	text := compactKey(corrected)
	if len([]rune(text)) < m.minLen {
		return Match{}, false
	}
	return bestEntry(m.catalog.Entries(), text, m.threshold, func(e string) (string, bool) {
		return compactKey(e), true
	})
}

// JISMatcher runs a primary pass that keeps the (S) option on both sides and
// a stricter secondary pass on the bare codes.
type JISMatcher struct {
	catalog        *Catalog
	threshold      float64
	stripThreshold float64
	minLen         int
}

func NewJISMatcher(c *Catalog, threshold, stripThreshold float64, minLen int) *JISMatcher {
	return &JISMatcher{catalog: c, threshold: threshold, stripThreshold: stripThreshold, minLen: minLen}
}

func (m *JISMatcher) Match(corrected string) (Match, bool) {
	text := compactKey(corrected)
	hasS := strings.Contains(text, optionS)
	base := strings.ReplaceAll(text, optionS, "")
	if len([]rune(base)) < m.minLen {
		return Match{}, false
	}
	entries := m.catalog.Entries()

	if best, ok := bestEntry(entries, text, m.threshold, func(e string) (string, bool) {
		k := compactKey(e)
		return k, strings.Contains(k, optionS) == hasS
	}); ok {
		return best, true
	}

	best, ok := bestEntry(entries, base, m.stripThreshold, func(e string) (string, bool) {
		k := compactKey(e)
		if !hasS && strings.Contains(k, optionS) {
			return "", false
		}
		return strings.ReplaceAll(k, optionS, ""), true
	})
	if !ok {
		return Match{}, false
	}
	if !hasS {
		return best, true
	}
	// Never invent an "(S)" entry: the recombined code must be listed.
	combined := strings.ReplaceAll(compactKey(best.Entry), optionS, "") + optionS
	entry, listed := m.catalog.Lookup(combined)
	if !listed {
		return Match{}, false
	}
	return Match{Entry: entry, Score: best.Score}, true
}

// Candidate pairs a raw OCR string with its correction and catalog hit.
type Candidate struct {
	Raw       string `json:"raw"`
	Corrected string `json:"corrected"`
	Match     Match  `json:"match"`
}

// Best folds the candidates in order, keeping the strictly highest score;
// the first-seen candidate wins ties.
func Best(raw []string, c Corrector, m Matcher) (Candidate, bool) {
	var acc Candidate
	found := false
	for _, r := range raw {
		corrected := c.Correct(r)
		hit, ok := m.Match(corrected)
		if !ok {
			continue
		}
		if !found || hit.Score > acc.Match.Score {
			acc = Candidate{Raw: r, Corrected: corrected, Match: hit}
			found = true
		}
	}
	return acc, found
}
