package label

import (
	"errors"
	"fmt"
)

// Profile is the load-time configuration of one standard.
type Profile struct {
	Standard Standard
	Catalog  []string
	Tables   Tables

	// OCR collaborator parameters.
	Allowlist      string
	MinSize        int
	WidthThreshold float64
	Paragraph      bool

	// MatchThreshold is the primary acceptance score; StripThreshold is the
	// secondary (S)-stripped pass and only applies to JIS.
	MatchThreshold float64
	StripThreshold float64
	MinLength      int
}

// DefaultProfile returns the built-in profile for std.
func DefaultProfile(std Standard) Profile {
	switch std {
	case JIS:
		return Profile{
			Standard:       JIS,
			Catalog:        DefaultJISCatalog,
			Tables:         DefaultTables(JIS),
			Allowlist:      "0123456789ABCDEFGHLRS()",
			MinSize:        10,
			WidthThreshold: 0.7,
			MatchThreshold: 0.85,
			StripThreshold: 0.90,
			MinLength:      5,
		}
	case DIN:
		return Profile{
			Standard:       DIN,
			Catalog:        DefaultDINCatalog,
			Tables:         DefaultTables(DIN),
			Allowlist:      "0123456789ABILNS ",
			MinSize:        15,
			WidthThreshold: 0.5,
			Paragraph:      true,
			MatchThreshold: 0.80,
			MinLength:      4,
		}
	}
	panic(fmt.Sprintf("label: no default profile for %v", std))
}

// Rules bundles the per-standard pipeline stages.
type Rules struct {
	Profile   Profile
	Catalog   *Catalog
	Corrector Corrector
	Matcher   Matcher
}

// NewRules wires the corrector and matcher for p.Standard.
func NewRules(p Profile) (*Rules, error) {
	cat := NewCatalog(p.Standard, p.Catalog)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("%v catalog is empty", p.Standard)
	}
	r := &Rules{Profile: p, Catalog: cat}
	switch p.Standard {
	case JIS:
		r.Corrector = NewJISCorrector(p.Tables)
		r.Matcher = NewJISMatcher(cat, p.MatchThreshold, p.StripThreshold, p.MinLength)
	case DIN:
		r.Corrector = NewDINCorrector(p.Tables)
		r.Matcher = NewDINMatcher(cat, p.MatchThreshold, p.MinLength)
	default:
		return nil, fmt.Errorf("unsupported standard %v", p.Standard)
	}
	return r, nil
}

func (r *Rules) Standard() Standard { return r.Profile.Standard }

func (r *Rules) Correct(text string) string { return r.Corrector.Correct(text) }

func (r *Rules) Normalize(code string) string { return Normalize(r.Standard(), code) }

// Registry holds the rules of every standard plus the shared classifier.
// It is immutable after construction.
type Registry struct {
	rules      map[Standard]*Rules
	classifier *Classifier
}

var (
	ErrMissingStandard = errors.New("standard not configured")
	ErrUnknownTarget   = errors.New("unknown target label")
)

// NewRegistry requires a profile for every entry of Standards.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	reg := &Registry{rules: map[Standard]*Rules{}}
	for _, p := range profiles {
		r, err := NewRules(p)
		if err != nil {
			return nil, err
		}
		reg.rules[p.Standard] = r
	}
	for _, s := range Standards {
		if _, ok := reg.rules[s]; !ok {
			return nil, fmt.Errorf("%w: %v", ErrMissingStandard, s)
		}
	}
	reg.classifier = NewClassifier(reg.rules[DIN].Catalog)
	return reg, nil
}

// DefaultRegistry builds a registry from the built-in profiles.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultProfile(JIS), DefaultProfile(DIN))
	if err != nil {
		panic(err)
	}
	return reg
}

// Rules returns the rules for std. Every Standard is present by construction.
func (r *Registry) Rules(std Standard) *Rules {
	rules, ok := r.rules[std]
	if !ok {
		panic(fmt.Sprintf("label: %v not in registry", std))
	}
	return rules
}

func (r *Registry) Classifier() *Classifier { return r.classifier }

// Target resolves an operator-entered target for std. Catalog entries come
// back in catalog spelling. Under JIS any code with the JIS shape is also
// accepted, in normalized form.
func (r *Registry) Target(std Standard, target string) (string, error) {
	if entry, ok := r.Rules(std).Catalog.Lookup(target); ok {
		return entry, nil
	}
	if std == JIS {
		if fam, ok := r.classifier.Classify(target); ok && fam == JIS {
			return Normalize(JIS, target), nil
		}
	}
	return "", fmt.Errorf("%w: %q not in %v catalog", ErrUnknownTarget, target, std)
}
