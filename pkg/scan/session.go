package scan

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"karton/models"
	"karton/pkg/label"
)

// Settings are the operator-controlled parameters of a session.
type Settings struct {
	Preset     label.Standard `json:"preset"`
	Target     string         `json:"target"`
	Interval   time.Duration  `json:"interval"`
	BinaryView bool           `json:"binary_view"`
	SplitView  bool           `json:"split_view"`
}

func (s Settings) validate() error {
	if s.Preset != label.JIS && s.Preset != label.DIN {
		return fmt.Errorf("%w: preset %v", ErrBadSettings, s.Preset)
	}
	if s.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrBadSettings)
	}
	return nil
}

// Session owns the settings and the day's append-only detection list. All
// access goes through one mutex; readers get copies.
type Session struct {
	mu       sync.Mutex
	settings Settings
	records  []models.Detection
	day      time.Time
}

func NewSession(s Settings, day time.Time) (*Session, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &Session{settings: s, day: dayOf(day)}, nil
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update applies fn to a copy of the settings and stores it if valid. A target
// that is the catalog sentinel is cleared.
func (s *Session) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	fn(&next)
	next.Target = strings.TrimSpace(next.Target)
	if next.Target == label.Sentinel {
		next.Target = ""
	}
	if err := next.validate(); err != nil {
		return s.settings, err
	}
	s.settings = next
	return next, nil
}

// Records returns a snapshot of the day's detections, oldest first.
func (s *Session) Records() []models.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Detection, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) Day() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// Commit records code at time at unless, with a positive window, the same code
// was recorded less than window earlier. The duplicate check, persist and the
// append happen under the session lock. It returns the stored record and
// whether it was suppressed.
func (s *Session) Commit(code string, at time.Time, window time.Duration, persist func() (models.Detection, error)) (models.Detection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if window > 0 && s.recentLocked(code, at, window) {
		return models.Detection{}, true, nil
	}
	rec, err := persist()
	if err != nil {
		return models.Detection{}, false, err
	}
	s.records = append(s.records, rec)
	return rec, false, nil
}

// recentLocked reports whether code was recorded within window of at. Commit
// timestamps are taken before the lock, so records are not assumed ordered.
func (s *Session) recentLocked(code string, at time.Time, window time.Duration) bool {
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		d := at.Sub(r.Timestamp)
		if d < window && d > -window && strings.EqualFold(r.Code, code) {
			return true
		}
	}
	return false
}

// Remove drops records by id and returns how many were removed.
func (s *Session) Remove(ids []uint) int {
	drop := make(map[uint]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0:0]
	for _, r := range s.records {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	n := len(s.records) - len(kept)
	s.records = kept
	return n
}

// Reset replaces the record list, used at startup and on day rollover.
func (s *Session) Reset(day time.Time, records []models.Detection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = dayOf(day)
	s.records = append([]models.Detection(nil), records...)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
