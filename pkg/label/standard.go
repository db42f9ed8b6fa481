package label

import (
	"fmt"
	"strings"
)

// Standard is the label code family selected as the active preset.
type Standard int

const (
	JIS Standard = iota + 1
	DIN
)

// Standards lists every supported standard in display order.
var Standards = []Standard{JIS, DIN}

func (s Standard) String() string {
	switch s {
	case JIS:
		return "JIS"
	case DIN:
		return "DIN"
	}
	return fmt.Sprintf("Standard(%d)", int(s))
}

// Other returns the opposite family, used for cross-family detection.
func (s Standard) Other() Standard {
	switch s {
	case JIS:
		return DIN
	case DIN:
		return JIS
	}
	panic(fmt.Sprintf("label: unknown standard %d", int(s)))
}

// ParseStandard accepts "JIS"/"DIN" case-insensitively.
func ParseStandard(v string) (Standard, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "JIS":
		return JIS, nil
	case "DIN":
		return DIN, nil
	}
	return 0, fmt.Errorf("unknown standard %q", v)
}

func (s Standard) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Standard) UnmarshalText(b []byte) error {
	v, err := ParseStandard(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
