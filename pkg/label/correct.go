package label

import (
	"regexp"
	"strings"
	"unicode"
)

// Corrector repairs systematic OCR misreads for one standard. Implementations
// are deterministic and total.
type Corrector interface {
	Correct(text string) string
}

var (
	jisStrip = regexp.MustCompile(`[^A-Z0-9()]`)
	dinStrip = regexp.MustCompile(`[^A-Z0-9\s]`)

	dinSpaceLBN = regexp.MustCompile(`(LBN)(\d)`)
	dinSpaceLN  = regexp.MustCompile(`(LN\d)(\d)`)
	dinSpaceISS = regexp.MustCompile(`([A-Z0-9])(ISS)`)
)

// JISParts is the structural decomposition of a JIS reading.
type JISParts struct {
	Capacity string
	Type     string
	Size     string
	Terminal string
	Option   string
}

func (p JISParts) String() string {
	return p.Capacity + p.Type + p.Size + p.Terminal + p.Option
}

// JISCorrector implements Corrector for JIS codes.
type JISCorrector struct {
	tables  Tables
	pattern *regexp.Regexp
}

// NewJISCorrector compiles the end-anchored structural pattern from the
// terminal characters in t.
func NewJISCorrector(t Tables) *JISCorrector {
	term := regexp.QuoteMeta(uniqueRunes("LR" + t.TerminalLeft + t.TerminalRight))
	pattern := regexp.MustCompile(`(\d{2,3}|[A-Z]{1,3})(\d|[A-Z])(\d{2,3}|[A-Z]{1,3})([` + term + `]?)(\(S\)|\(5\)|5\)|\(S|S)?$`)
	return &JISCorrector{tables: t, pattern: pattern}
}

// Parse splits cleaned text into its raw structural groups.
func (c *JISCorrector) Parse(text string) (JISParts, bool) {
	m := c.pattern.FindStringSubmatch(text)
	if m == nil {
		return JISParts{}, false
	}
	return JISParts{Capacity: m[1], Type: m[2], Size: m[3], Terminal: m[4], Option: m[5]}, true
}

func (c *JISCorrector) Correct(text string) string {
	text = jisStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(text)), "")
	p, ok := c.Parse(text)
	if !ok {
		text = c.tables.CharToDigit.Apply(text)
		text = strings.ReplaceAll(text, "(5)", "(S)")
		if !strings.Contains(text, "(S)") {
			text = strings.ReplaceAll(text, "5)", "(S)")
		}
		return text
	}
	return c.repair(p).String()
}

func (c *JISCorrector) repair(p JISParts) JISParts {
	p.Capacity = c.tables.CharToDigit.Apply(p.Capacity)
	p.Size = c.tables.CharToDigit.Apply(p.Size)

	t := []rune(p.Type)[0]
	if unicode.IsDigit(t) {
		t = c.tables.DigitToChar.Lookup(t)
	}
	p.Type = string(c.tables.TypeCollapse.Lookup(t))

	switch {
	case p.Terminal == "":
	case strings.Contains(c.tables.TerminalLeft, p.Terminal):
		p.Terminal = "L"
	case strings.Contains(c.tables.TerminalRight, p.Terminal):
		p.Terminal = "R"
	}
	if p.Option != "" {
		p.Option = "(S)"
	}
	return p
}

// DINCorrector implements Corrector for DIN codes.
type DINCorrector struct {
	tables Tables
}

func NewDINCorrector(t Tables) *DINCorrector {
	return &DINCorrector{tables: t}
}

func (c *DINCorrector) Correct(text string) string {
	text = dinStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(text)), "")
	tokens := c.split(strings.Fields(text))
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	prefix := c.prefix(tokens[0])
	out := []string{prefix}
	if len(tokens) > 1 {
		out = append(out, c.body(tokens[1], strings.HasPrefix(prefix, "LB")))
	}
	if len(tokens) > 2 {
		out = append(out, c.suffix(tokens[2]))
	}

	result := strings.Join(out, " ")
	result = dinSpaceLBN.ReplaceAllString(result, "$1 $2")
	result = dinSpaceLN.ReplaceAllString(result, "$1 $2")
	result = dinSpaceISS.ReplaceAllString(result, "$1 $2")
	return strings.Join(strings.Fields(result), " ")
}

// split separates a prefix glued to its body ("LNO260A") and a body glued
// to its ISS suffix ("776AISS").
func (c *DINCorrector) split(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	if first := []rune(tokens[0]); len(first) > 3 {
		tokens = append([]string{string(first[:3]), string(first[3:])}, tokens[1:]...)
	}
	if len(tokens) == 2 {
		body := tokens[1]
		for _, m := range append([]string{"ISS"}, c.tables.ISSMisreads...) {
			if strings.HasSuffix(body, m) && len(body)-len(m) >= 3 {
				return []string{tokens[0], strings.TrimSuffix(body, m), m}
			}
		}
	}
	return tokens
}

func (c *DINCorrector) prefix(tok string) string {
	rs := []rune(tok)
	for i, r := range rs {
		switch i {
		case 0:
			rs[i] = c.tables.PrefixFirst.Lookup(r)
		case 1:
			rs[i] = c.tables.PrefixSecond.Lookup(r)
		case 2:
			if string(rs[:2]) == "LB" {
				rs[i] = c.tables.PrefixN.Lookup(r)
			} else {
				rs[i] = c.tables.CharToDigit.Lookup(r)
			}
		}
	}
	return string(rs)
}

// body coerces the numeric body; the final letter is a suffix ("260A")
// except for LBN codes, whose body is a single digit.
func (c *DINCorrector) body(tok string, lbn bool) string {
	rs := []rune(tok)
	last := len(rs) - 1
	for i, r := range rs {
		switch {
		case unicode.IsDigit(r):
		case i == last && !lbn && unicode.IsLetter(r):
			rs[i] = c.tables.BodySuffix.Lookup(r)
		default:
			rs[i] = c.tables.CharToDigit.Lookup(r)
		}
	}
	return string(rs)
}

func (c *DINCorrector) suffix(tok string) string {
	if tok == "ISS" || strings.ReplaceAll(tok, "5", "S") == "ISS" {
		return "ISS"
	}
	for _, m := range c.tables.ISSMisreads {
		if tok == m {
			return "ISS"
		}
	}
	return tok
}

func uniqueRunes(s string) string {
	seen := map[rune]bool{}
	var b strings.Builder
	for _, r := range s {
		if !seen[r] {
			seen[r] = true
			b.WriteRune(r)
		}
	}
	return b.String()
}
