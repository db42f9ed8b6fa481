package label

import (
	"fmt"
	"sort"
	"strings"
)

// Substitution maps a misread character to its intended character.
type Substitution map[rune]rune

// Apply rewrites every rune present in the table.
func (s Substitution) Apply(text string) string {
	return strings.Map(func(r rune) rune {
		if v, ok := s[r]; ok {
			return v
		}
		return r
	}, text)
}

// Lookup returns the replacement for r or r itself.
func (s Substitution) Lookup(r rune) rune {
	if v, ok := s[r]; ok {
		return v
	}
	return r
}

// ParsePairs reads a list of two-character pairs ("O0", "I1") into a table.
func ParsePairs(pairs []string) (Substitution, error) {
	out := Substitution{}
	for _, p := range pairs {
		rs := []rune(strings.TrimSpace(p))
		if len(rs) != 2 {
			return nil, fmt.Errorf("substitution %q: want exactly two characters", p)
		}
		out[rs[0]] = rs[1]
	}
	return out, nil
}

// Pairs is the inverse of ParsePairs, sorted.
func (s Substitution) Pairs() []string {
	out := make([]string, 0, len(s))
	for k, v := range s {
		out = append(out, string([]rune{k, v}))
	}
	sort.Strings(out)
	return out
}

// Tables holds the confusion tables for one standard. They are tuned to the
// font engraved on the product and are treated as configuration.
type Tables struct {
	// CharToDigit repairs letters read in numeric positions.
	CharToDigit Substitution
	// DigitToChar repairs digits read in letter positions.
	DigitToChar Substitution
	// TypeCollapse folds JIS type characters onto their canonical letter.
	TypeCollapse Substitution
	// TerminalLeft and TerminalRight hold the characters read as L and R.
	TerminalLeft  string
	TerminalRight string
	// PrefixFirst, PrefixSecond and PrefixN repair the DIN prefix positions:
	// the leading L, the B/N that follows it and the N of "LBN".
	PrefixFirst  Substitution
	PrefixSecond Substitution
	PrefixN      Substitution
	// BodySuffix folds the final DIN body letter (H -> A).
	BodySuffix Substitution
	// ISSMisreads lists third-token readings forced to "ISS".
	ISSMisreads []string
}

// DefaultTables returns the built-in tables for std.
func DefaultTables(std Standard) Tables {
	switch std {
	case JIS:
		return Tables{
			CharToDigit: Substitution{
				'O': '0', 'Q': '0', 'D': '0', 'U': '0', 'C': '0',
				'I': '1', 'L': '1', 'J': '1',
				'Z': '2', 'E': '3', 'A': '4', 'H': '4',
				'S': '5', 'G': '6', 'T': '7', 'Y': '7',
				'B': '8', 'P': '9', 'R': '9',
			},
			DigitToChar: Substitution{
				'0': 'D', '1': 'L', '2': 'Z', '3': 'B', '4': 'A',
				'5': 'S', '6': 'G', '7': 'T', '8': 'B', '9': 'R',
			},
			TypeCollapse: Substitution{
				'O': 'D', 'Q': 'D', 'G': 'D', '0': 'D', 'U': 'D', 'C': 'D',
				'8': 'B', '3': 'B', '4': 'A',
			},
			TerminalLeft:  "1IJ4",
			TerminalRight: "0QDO",
		}
	case DIN:
		return Tables{
			CharToDigit: Substitution{
				'O': '0', 'Q': '0', 'I': '1', 'Z': '2',
				'S': '5', 'G': '6', 'B': '8',
			},
			PrefixFirst:  Substitution{'I': 'L', '1': 'L'},
			PrefixSecond: Substitution{'8': 'B', 'H': 'N', 'M': 'N'},
			PrefixN:      Substitution{'H': 'N', 'M': 'N'},
			BodySuffix:   Substitution{'H': 'A'},
			ISSMisreads:  []string{"I55", "IS5", "I5S", "155", "1SS", "15S", "1S5"},
		}
	}
	panic(fmt.Sprintf("label: no tables for %v", std))
}
