package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// normalizeOCRText folds compatibility forms (full-width digits, ligatures)
// and collapses whitespace.
func normalizeOCRText(t string) string {
	t = norm.NFKC.String(t)
	return strings.Join(strings.Fields(t), " ")
}
