package label

import "strings"

// Sentinel occupies index 0 of every catalog and never matches.
const Sentinel = "Select Label . . ."

// DefaultJISCatalog is the built-in list of JIS codes handled on the line.
var DefaultJISCatalog = []string{
	"26A17L", "26A17R", "28A19L", "28A19R",
	"34B17L", "34B19L", "34B19R", "36B20L", "36B20R",
	"38B19L", "38B20L", "38B20R", "40B19L", "42B19L", "44B19L",
	"46B24L", "46B24R", "46B24L(S)", "46B24R(S)",
	"48D26L", "48D26R", "50B24L", "50D20L",
	"55B24L", "55B24R", "55B24L(S)", "55B24R(S)",
	"55D23L", "55D23R", "55D26L", "55D26R",
	"60B24L", "60B24R", "60D23L", "65D23L", "65D26L", "65D26R",
	"75D23L", "75D23R", "75D26L", "75D26R", "75D31L", "75D31R",
	"80D23L", "80D26L", "80D26R", "85D26R", "90D26L", "90D26R",
	"95D31L", "95D31R", "95E41R", "105D31L", "105D31R", "110D26R",
	"115D31L", "115D31R", "115E41L", "115E41R", "130E41L", "130E41R",
	"145F51", "150F51", "190H52", "245H52",
}

// DefaultDINCatalog is the closed list of DIN codes.
var DefaultDINCatalog = []string{
	"LBN 1", "LBN 2", "LBN 3",
	"LN0 260A", "LN1 295A", "LN1 450A",
	"LN2 345A", "LN2 360A", "LN3 490A",
	"LN4 650A", "LN4 776A ISS",
}

// Catalog is an ordered, read-only list of known codes for one standard.
// Index 0 is always the Sentinel.
type Catalog struct {
	std     Standard
	entries []string
	keys    map[string]int
}

// NewCatalog builds a catalog, inserting the sentinel and dropping blanks
// and duplicates (first occurrence kept).
func NewCatalog(std Standard, entries []string) *Catalog {
	c := &Catalog{std: std, entries: []string{Sentinel}, keys: map[string]int{}}
	for _, e := range entries {
		e = strings.Join(strings.Fields(e), " ")
		if e == "" || e == Sentinel {
			continue
		}
		k := compactKey(e)
		if _, dup := c.keys[k]; dup {
			continue
		}
		c.keys[k] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

func (c *Catalog) Standard() Standard { return c.std }

// Labels returns the full list including the sentinel, for selection lists.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// Entries returns the matchable entries (sentinel excluded).
func (c *Catalog) Entries() []string {
	out := make([]string, len(c.entries)-1)
	copy(out, c.entries[1:])
	return out
}

func (c *Catalog) Len() int { return len(c.entries) - 1 }

// Contains reports membership ignoring case and spaces.
func (c *Catalog) Contains(code string) bool {
	_, ok := c.keys[compactKey(code)]
	return ok
}

// Lookup returns the catalog spelling of code, if present.
func (c *Catalog) Lookup(code string) (string, bool) {
	i, ok := c.keys[compactKey(code)]
	if !ok {
		return "", false
	}
	return c.entries[i], true
}

// compactKey removes all whitespace and uppercases.
func compactKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
