package scan

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"karton/models"
	"karton/pkg/label"
	"karton/pkg/store"
)

// Mode distinguishes live capture from one-off file scans.
type Mode int

const (
	Live Mode = iota + 1
	Static
)

func (m Mode) String() string {
	if m == Live {
		return "live"
	}
	return "static"
}

// Engine turns recognition results into outcomes and records.
type Engine struct {
	session *Session
	store   store.Store
	images  *store.Images
	window  time.Duration
	now     func() time.Time
}

// NewEngine builds a verdict engine. st and images may be nil, in which case
// records only live in the session.
func NewEngine(session *Session, st store.Store, images *store.Images, window time.Duration) *Engine {
	return &Engine{session: session, store: st, images: images, window: window, now: time.Now}
}

// Status is OK when the target names the same code, compared after
// normalization and ignoring case. An empty target is never OK.
func Status(std label.Standard, target, code string) string {
	if target != "" && label.SameCode(std, target, code) {
		return models.StatusOK
	}
	return models.StatusNotOK
}

// Decide completes res. settings is the snapshot taken when the scan began.
func (e *Engine) Decide(ctx context.Context, res *Result, frame image.Image, settings Settings, mode Mode) Outcome {
	switch {
	case !res.Matched:
		return NoMatch{Reason: res.Err}
	case res.Rejection.Rejected():
		return Rejected{Code: res.Code, Family: res.Family, Message: res.Rejection.Message}
	}

	at := e.now()
	window := e.window
	if mode != Live {
		window = 0
	}
	target := settings.Target
	rec, dup, err := e.session.Commit(res.Code, at, window, func() (models.Detection, error) {
		d := models.Detection{
			Timestamp:     at,
			Code:          res.Code,
			Standard:      settings.Preset.String(),
			Status:        Status(settings.Preset, target, res.Code),
			TargetSession: target,
		}
		if d.TargetSession == "" {
			d.TargetSession = res.Code
		}
		if e.images != nil && frame != nil {
			path, err := e.images.Save(frame, at)
			if err != nil {
				log.Printf("scan id=%s image save failed: %v", res.ID, err)
			}
			d.ImagePath = path
		}
		if e.store != nil {
			if err := e.store.Insert(ctx, &d); err != nil {
				return d, fmt.Errorf("persist %s: %w", d.Code, err)
			}
		}
		return d, nil
	})
	switch {
	case err != nil:
		res.mark(StageFailed)
		return Failed{Err: err}
	case dup:
		res.mark(StageSuppressed)
		return Suppressed{Code: res.Code}
	}
	res.mark(StageVerdict)
	log.Printf("scan id=%s mode=%s code=%q status=%q target=%q", res.ID, mode, rec.Code, rec.Status, rec.TargetSession)
	return Verdict{Record: rec}
}
