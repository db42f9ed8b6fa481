package scan

import (
	"karton/models"
	"karton/pkg/label"
)

// Outcome is the terminal result of one scan attempt. It is one of NoMatch,
// Rejected, Suppressed, Verdict or Failed.
type Outcome interface {
	outcome()
}

// NoMatch means no candidate reached a catalog entry.
type NoMatch struct {
	Reason error
}

// Rejected carries the operator message for a code of the wrong family or of
// no known family.
type Rejected struct {
	Code    string
	Family  label.Standard
	Message string
}

// Suppressed is a live reading of a code already recorded within the
// duplicate window.
type Suppressed struct {
	Code string
}

// Verdict is an accepted reading and the record written for it.
type Verdict struct {
	Record models.Detection
}

// Failed reports a decode or persistence fault.
type Failed struct {
	Err error
}

func (NoMatch) outcome()    {}
func (Rejected) outcome()   {}
func (Suppressed) outcome() {}
func (Verdict) outcome()    {}
func (Failed) outcome()     {}

// FailedText is shown when a static scan finds nothing.
const FailedText = "FAILED"

// Signal returns the text shown to the operator for o. Live scans stay quiet
// on NoMatch, Suppressed and Failed.
func Signal(o Outcome, live bool) string {
	switch o := o.(type) {
	case Verdict:
		return o.Record.Code
	case Rejected:
		return o.Message
	case NoMatch:
		if !live {
			return FailedText
		}
	case Failed:
		if !live {
			return o.Err.Error()
		}
	}
	return ""
}

// Name is a short label for logs and API responses.
func Name(o Outcome) string {
	switch o.(type) {
	case NoMatch:
		return "no_match"
	case Rejected:
		return "rejected"
	case Suppressed:
		return "suppressed"
	case Verdict:
		return "verdict"
	case Failed:
		return "failed"
	}
	return "unknown"
}
