package label

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	dinLBN    = regexp.MustCompile(`^(LBN)(\d)$`)
	dinLN     = regexp.MustCompile(`^(LN\d)(\d+)([A-Z])$`)
	dinLNISS  = regexp.MustCompile(`^(LN\d)(\d+)([A-Z])(ISS)$`)
	jisShape  = regexp.MustCompile(`^\d{2,3}[A-H]\d{2,3}[LR]?(\(S\))?$`)
	dinShapes = []*regexp.Regexp{
		regexp.MustCompile(`^LBN\d$`),
		regexp.MustCompile(`^LN\d\d{2,3}A(ISS)?$`),
	}
)

// Normalize returns the canonical form of code for std. It is idempotent.
func Normalize(std Standard, code string) string {
	switch std {
	case JIS:
		return compactKey(code)
	case DIN:
		return normalizeDIN(code)
	}
	panic(fmt.Sprintf("label: cannot normalize for %v", std))
}

// DINParts is the structural decomposition of a DIN code.
type DINParts struct {
	Prefix string
	Body   string
	Suffix string
}

func (p DINParts) String() string {
	out := p.Prefix + " " + p.Body
	if p.Suffix != "" {
		out += " " + p.Suffix
	}
	return out
}

// ParseDIN recognises the LBN, LN and LN..ISS shapes regardless of spacing.
func ParseDIN(code string) (DINParts, bool) {
	flat := strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if m := dinLBN.FindStringSubmatch(flat); m != nil {
		return DINParts{Prefix: m[1], Body: m[2]}, true
	}
	if m := dinLN.FindStringSubmatch(flat); m != nil {
		return DINParts{Prefix: m[1], Body: m[2] + m[3]}, true
	}
	if m := dinLNISS.FindStringSubmatch(flat); m != nil {
		return DINParts{Prefix: m[1], Body: m[2] + m[3], Suffix: m[4]}, true
	}
	return DINParts{}, false
}

func normalizeDIN(code string) string {
	if p, ok := ParseDIN(code); ok {
		return p.String()
	}
	return strings.Join(strings.Fields(strings.ToUpper(code)), " ")
}

// SameCode compares two codes after normalization, ignoring case.
func SameCode(std Standard, a, b string) bool {
	return strings.EqualFold(Normalize(std, a), Normalize(std, b))
}
