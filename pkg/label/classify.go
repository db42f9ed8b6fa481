package label

import "fmt"

// Rejection messages shown to the operator.
const (
	MsgInvalidFormat = "Invalid code format"
	MsgExpectJIS     = "Ensure the photo is Type JIS"
	MsgExpectDIN     = "Ensure the photo is Type DIN"
)

// Classifier infers a code's family from its shape alone.
type Classifier struct {
	din *Catalog
}

func NewClassifier(din *Catalog) *Classifier {
	return &Classifier{din: din}
}

// Classify returns the family of a normalized code, or false when the code
// fits neither.
func (c *Classifier) Classify(code string) (Standard, bool) {
	k := compactKey(code)
	if jisShape.MatchString(k) {
		return JIS, true
	}
	if c.din != nil && c.din.Contains(k) {
		return DIN, true
	}
	for _, re := range dinShapes {
		if re.MatchString(k) {
			return DIN, true
		}
	}
	return 0, false
}

// Rejection is the negative outcome of validation. The zero value accepts.
type Rejection struct {
	Message string
}

func (r Rejection) Rejected() bool { return r.Message != "" }

// Validate checks a classified family against the active preset.
func Validate(family Standard, classified bool, preset Standard) Rejection {
	if !classified {
		return Rejection{Message: MsgInvalidFormat}
	}
	if family == preset {
		return Rejection{}
	}
	switch preset {
	case JIS:
		return Rejection{Message: MsgExpectJIS}
	case DIN:
		return Rejection{Message: MsgExpectDIN}
	}
	panic(fmt.Sprintf("label: unknown preset %v", preset))
}
