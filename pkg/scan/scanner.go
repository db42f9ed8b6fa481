package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"karton/models"
)

// FrameSource delivers frames one at a time.
type FrameSource interface {
	Read() (image.Image, error)
	Close() error
}

// Opener acquires the capture device when live scanning starts.
type Opener func() (FrameSource, error)

// Static frames are letterboxed to this size for display.
const (
	DisplayWidth  = 640
	DisplayHeight = 480
)

// Report is the result of a static scan.
type Report struct {
	Outcome Outcome
	Result  Result
}

// Scanner drives live capture and static scans. At most one live scan is in
// flight; frames arriving meanwhile are only displayed.
type Scanner struct {
	pipeline  *Pipeline
	engine    *Engine
	session   *Session
	presenter Presenter
	open      Opener
	now       func() time.Time

	running  atomic.Bool
	gate     atomic.Bool
	inflight sync.WaitGroup

	mu       sync.Mutex
	loopDone chan struct{}
}

func NewScanner(p *Pipeline, e *Engine, pr Presenter, open Opener) *Scanner {
	if pr == nil {
		pr = NopPresenter{}
	}
	return &Scanner{
		pipeline:  p,
		engine:    e,
		session:   e.session,
		presenter: pr,
		open:      open,
		now:       time.Now,
	}
}

func (s *Scanner) Session() *Session { return s.session }

func (s *Scanner) Running() bool { return s.running.Load() }

// Start opens the frame source and begins live capture. A device failure is
// returned once; there is no retry.
func (s *Scanner) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrLiveRunning
	}
	if s.open == nil {
		s.running.Store(false)
		return errors.New("no frame source configured")
	}
	src, err := s.open()
	if err != nil {
		s.running.Store(false)
		s.presenter.CameraStatus(false)
		return fmt.Errorf("open camera: %w", err)
	}
	done := make(chan struct{})
	s.mu.Lock()
	s.loopDone = done
	s.mu.Unlock()
	s.presenter.CameraStatus(true)
	log.Printf("live capture started")
	go s.loop(src, done)
	return nil
}

// Stop ends live capture and waits for the device to be released. Scans
// already dispatched run to completion.
func (s *Scanner) Stop() {
	s.running.Store(false)
	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Wait blocks until every dispatched scan has finished.
func (s *Scanner) Wait() { s.inflight.Wait() }

func (s *Scanner) loop(src FrameSource, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("camera close: %v", err)
		}
		s.presenter.CameraStatus(false)
		log.Printf("live capture stopped")
	}()

	var last time.Time
	for s.running.Load() {
		frame, err := src.Read()
		if err != nil {
			log.Printf("camera read failed: %v", err)
			s.running.Store(false)
			return
		}
		frame = CropSquare(frame)
		settings := s.session.Settings()
		s.presenter.Frame(Render(frame, settings))

		now := s.now()
		if !last.IsZero() && now.Sub(last) < settings.Interval {
			continue
		}
		if !s.gate.CompareAndSwap(false, true) {
			continue
		}
		last = now
		s.inflight.Add(1)
		go func(frame image.Image) {
			defer s.inflight.Done()
			defer s.gate.Store(false)
			s.run(context.Background(), frame, settings, Live)
		}(frame)
	}
}

func (s *Scanner) run(ctx context.Context, frame image.Image, settings Settings, mode Mode) Report {
	res := s.pipeline.Recognize(frame, settings.Preset)
	s.presenter.Candidates(res.Pool.Unique())
	out := s.engine.Decide(ctx, &res, frame, settings, mode)
	if msg := Signal(out, mode == Live); msg != "" {
		s.presenter.Message(msg)
	}
	return Report{Outcome: out, Result: res}
}

// ScanFile decodes and scans one image file on a worker goroutine. It is
// refused while live capture runs.
func (s *Scanner) ScanFile(ctx context.Context, path string) (<-chan Report, error) {
	return s.dispatch(ctx, func() (image.Image, error) {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadImage, path, err)
		}
		return img, nil
	})
}

// ScanImage is ScanFile for an already decoded image.
func (s *Scanner) ScanImage(ctx context.Context, img image.Image) (<-chan Report, error) {
	return s.dispatch(ctx, func() (image.Image, error) { return img, nil })
}

func (s *Scanner) dispatch(ctx context.Context, load func() (image.Image, error)) (<-chan Report, error) {
	if s.running.Load() {
		return nil, ErrLiveActive
	}
	ch := make(chan Report, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer close(ch)
		settings := s.session.Settings()
		img, err := load()
		if err != nil {
			out := Failed{Err: err}
			s.presenter.Message(Signal(out, false))
			ch <- Report{Outcome: out, Result: Result{Preset: settings.Preset, Trail: []Stage{StageFailed}, Err: err}}
			return
		}
		s.presenter.Frame(Letterbox(Render(img, settings), DisplayWidth, DisplayHeight))
		ch <- s.run(ctx, img, settings, Static)
	}()
	return ch, nil
}

// CheckRollover reloads the session when the local date has changed since
// the session's day. It reports whether a rollover happened.
func (s *Scanner) CheckRollover(ctx context.Context) bool {
	now := s.now()
	if dayOf(now).Equal(s.session.Day()) {
		return false
	}
	var records []models.Detection
	if s.engine.store != nil {
		var err error
		records, err = s.engine.store.Load(ctx, now)
		if err != nil {
			log.Printf("rollover: load %s: %v", now.Format("2006-01-02"), err)
		}
	}
	s.session.Reset(now, records)
	s.presenter.DayReset(now)
	log.Printf("rollover: day=%s records=%d", now.Format("2006-01-02"), len(records))
	return true
}

// RunRollover checks for a date change every interval until ctx is done.
func (s *Scanner) RunRollover(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.CheckRollover(ctx)
		}
	}
}
