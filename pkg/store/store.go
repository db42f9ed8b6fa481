// Package store persists detection records and their image references.
package store

import (
	"context"
	"errors"
	"time"

	"karton/models"
)

var ErrNotFound = errors.New("detection not found")

// SessionSummary counts verdicts for one target session.
type SessionSummary struct {
	TargetSession string `json:"target_session"`
	OK            int64  `json:"ok"`
	NotOK         int64  `json:"not_ok"`
}

func (s SessionSummary) Total() int64 { return s.OK + s.NotOK }

// Store is the persistence collaborator of the scanner.
type Store interface {
	Insert(ctx context.Context, d *models.Detection) error
	// Load returns the records of the local calendar day containing day,
	// oldest first.
	Load(ctx context.Context, day time.Time) ([]models.Detection, error)
	// Delete removes records and their image files, returning the rows removed.
	Delete(ctx context.Context, ids []uint) (int64, error)
	Count(ctx context.Context) (int64, error)
	// Purge removes records (and images) older than before.
	Purge(ctx context.Context, before time.Time) (int64, error)
	Summary(ctx context.Context, day time.Time) ([]SessionSummary, error)
}

// DayBounds returns [start, end) of the local calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
