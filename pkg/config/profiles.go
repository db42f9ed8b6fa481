package config

import (
	"fmt"

	"karton/pkg/label"
)

// Profile converts the section of std into a label.Profile.
func (c *Config) Profile(std label.Standard) (label.Profile, error) {
	var sc StandardConfig
	switch std {
	case label.JIS:
		sc = c.JIS
	case label.DIN:
		sc = c.DIN
	default:
		return label.Profile{}, fmt.Errorf("no configuration for standard %v", std)
	}
	tables, err := sc.Tables.build()
	if err != nil {
		return label.Profile{}, fmt.Errorf("%v tables: %w", std, err)
	}
	return label.Profile{
		Standard:       std,
		Catalog:        sc.Catalog,
		Tables:         tables,
		Allowlist:      sc.Allowlist,
		MinSize:        sc.MinSize,
		WidthThreshold: sc.WidthThreshold,
		Paragraph:      sc.Paragraph,
		MatchThreshold: sc.MatchThreshold,
		StripThreshold: sc.StripThreshold,
		MinLength:      sc.MinLength,
	}, nil
}

// Registry builds the label rules of every standard.
func (c *Config) Registry() (*label.Registry, error) {
	profiles := make([]label.Profile, 0, len(label.Standards))
	for _, std := range label.Standards {
		p, err := c.Profile(std)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return label.NewRegistry(profiles...)
}

func (t TablesConfig) build() (label.Tables, error) {
	out := label.Tables{
		TerminalLeft:  t.TerminalLeft,
		TerminalRight: t.TerminalRight,
		ISSMisreads:   t.ISSMisreads,
	}
	fields := []struct {
		name  string
		pairs []string
		dst   *label.Substitution
	}{
		{"char_to_digit", t.CharToDigit, &out.CharToDigit},
		{"digit_to_char", t.DigitToChar, &out.DigitToChar},
		{"type_collapse", t.TypeCollapse, &out.TypeCollapse},
		{"prefix_first", t.PrefixFirst, &out.PrefixFirst},
		{"prefix_second", t.PrefixSecond, &out.PrefixSecond},
		{"prefix_n", t.PrefixN, &out.PrefixN},
		{"body_suffix", t.BodySuffix, &out.BodySuffix},
	}
	for _, f := range fields {
		s, err := label.ParsePairs(f.pairs)
		if err != nil {
			return label.Tables{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = s
	}
	return out, nil
}
