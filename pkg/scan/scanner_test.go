package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karton/models"
	"karton/pkg/label"
	"karton/pkg/ocr"
	"karton/pkg/store"
)

type memStore struct {
	mu   sync.Mutex
	rows []models.Detection
}

func (m *memStore) Insert(_ context.Context, d *models.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = uint(len(m.rows) + 1)
	m.rows = append(m.rows, *d)
	return nil
}

func (m *memStore) Load(_ context.Context, day time.Time) ([]models.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, end := store.DayBounds(day)
	var out []models.Detection
	for _, r := range m.rows {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Delete(context.Context, []uint) (int64, error) { return 0, nil }
func (m *memStore) Count(context.Context) (int64, error) { return int64(len(m.rows)), nil }
func (m *memStore) Purge(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memStore) Summary(context.Context, time.Time) ([]store.SessionSummary, error) { return nil, nil }

type recorder struct {
	mu       sync.Mutex
	messages []string
	camera   []bool
	resets   int
	frames   int
	msgCh    chan string
}

func newRecorder() *recorder { return &recorder{msgCh: make(chan string, 64)} }

func (r *recorder) Frame(image.Image) {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

func (r *recorder) Message(text string) {
	r.mu.Lock()
	r.messages = append(r.messages, text)
	r.mu.Unlock()
	select {
	case r.msgCh <- text:
	default:
	}
}

func (r *recorder) CameraStatus(on bool) {
	r.mu.Lock()
	r.camera = append(r.camera, on)
	r.mu.Unlock()
}

func (r *recorder) Candidates([]string) {}

func (r *recorder) DayReset(time.Time) {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
}

type loopSource struct {
	closed chan struct{}
	once   sync.Once
}

func (s *loopSource) Read() (image.Image, error) {
	time.Sleep(5 * time.Millisecond)
	return imaging.New(120, 80, color.White), nil
}

func (s *loopSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func newTestScanner(t *testing.T, preset label.Standard, texts ...string) (*Scanner, *recorder, *memStore) {
	t.Helper()
	sess := testSession(t, preset, "")
	st := &memStore{}
	eng := NewEngine(sess, st, nil, 5*time.Second)
	rec := newRecorder()
	return NewScanner(NewPipeline(label.DefaultRegistry(), reads(texts...), 0), eng, rec, nil), rec, st
}

func TestScanImageStatic(t *testing.T) {
	sc, rec, st := newTestScanner(t, label.DIN, "LN1 45OH")
	ch, err := sc.ScanImage(context.Background(), blankFrame())
	require.NoError(t, err)
	rep := <-ch
	v, ok := rep.Outcome.(Verdict)
	require.True(t, ok, "got %T", rep.Outcome)
	assert.Equal(t, "LN1 450A", v.Record.Code)
	assert.Equal(t, uint(1), v.Record.ID)
	assert.Len(t, st.rows, 1)
	assert.Equal(t, []string{"LN1 450A"}, rec.messages)
	assert.Equal(t, 1, rec.frames)
}

func TestScanFileErrors(t *testing.T) {
	sc, rec, _ := newTestScanner(t, label.JIS)
	ch, err := sc.ScanFile(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	require.NoError(t, err)
	rep := <-ch
	f, ok := rep.Outcome.(Failed)
	require.True(t, ok)
	assert.True(t, errors.Is(f.Err, ErrLoadImage))
	require.Len(t, rec.messages, 1)

	path := filepath.Join(t.TempDir(), "blank.png")
	require.NoError(t, imaging.Save(blankFrame(), path))
	ch, err = sc.ScanFile(context.Background(), path)
	require.NoError(t, err)
	rep = <-ch
	assert.IsType(t, NoMatch{}, rep.Outcome)
	assert.Equal(t, FailedText, rec.messages[len(rec.messages)-1])
}

func TestLiveLoop(t *testing.T) {
	sc, rec, st := newTestScanner(t, label.DIN, "LBN1")
	src := &loopSource{closed: make(chan struct{})}
	sc.open = func() (FrameSource, error) { return src, nil }

	require.NoError(t, sc.Start())
	assert.True(t, sc.Running())
	assert.ErrorIs(t, sc.Start(), ErrLiveRunning)

	_, err := sc.ScanImage(context.Background(), blankFrame())
	assert.ErrorIs(t, err, ErrLiveActive)

	select {
	case msg := <-rec.msgCh:
		assert.Equal(t, "LBN 1", msg)
	case <-time.After(10 * time.Second):
		t.Fatal("no live detection")
	}

	sc.Stop()
	sc.Wait()
	assert.False(t, sc.Running())
	select {
	case <-src.closed:
	default:
		t.Fatal("source not closed")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, rec.camera)
	assert.Greater(t, rec.frames, 0)
	// the 2s interval and the 5s window allow exactly one record
	assert.Len(t, st.rows, 1)
}

func TestLiveLoopOneScanInFlight(t *testing.T) {
	sess := testSession(t, label.DIN, "")
	_, err := sess.Update(func(s *Settings) { s.Interval = time.Millisecond })
	require.NoError(t, err)

	var active, peak, calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := ocr.RecognizerFunc(func(image.Image, ocr.Options) ([]string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		calls.Add(1)
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return []string{"LBN1"}, nil
	})

	rec := newRecorder()
	sc := NewScanner(NewPipeline(label.DefaultRegistry(), blocking, 0), NewEngine(sess, &memStore{}, nil, 5*time.Second), rec, nil)
	src := &loopSource{closed: make(chan struct{})}
	sc.open = func() (FrameSource, error) { return src, nil }
	require.NoError(t, sc.Start())

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("no scan dispatched")
	}
	rec.mu.Lock()
	before := rec.frames
	rec.mu.Unlock()
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.frames >= before+10
	}, 5*time.Second, 5*time.Millisecond, "frames stopped while a scan was in flight")
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	sc.Stop()
	sc.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestSessionConcurrentCommit(t *testing.T) {
	sess := testSession(t, label.DIN, "")
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	const n = 50
	nextID := uint(0)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("LBN %d", i)
			_, dup, err := sess.Commit(code, at, 5*time.Second, func() (models.Detection, error) {
				nextID++
				return models.Detection{ID: nextID, Code: code, Timestamp: at}, nil
			})
			assert.NoError(t, err)
			assert.False(t, dup)
		}(i)
	}
	wg.Wait()

	recs := sess.Records()
	require.Len(t, recs, n)
	ids := map[uint]bool{}
	for _, r := range recs {
		ids[r.ID] = true
	}
	assert.Len(t, ids, n)
}

func TestDuplicateWindowUnorderedRecords(t *testing.T) {
	sess := testSession(t, label.DIN, "")
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	commit := func(code string, at time.Time) bool {
		_, dup, err := sess.Commit(code, at, 5*time.Second, func() (models.Detection, error) {
			return models.Detection{Code: code, Timestamp: at}, nil
		})
		require.NoError(t, err)
		return dup
	}
	assert.False(t, commit("LBN 1", base.Add(10*time.Second)))
	// appended after, stamped earlier
	assert.False(t, commit("LBN 2", base))
	assert.True(t, commit("LBN 1", base.Add(12*time.Second)))
	assert.Len(t, sess.Records(), 2)
}

func TestStartFailure(t *testing.T) {
	sc, rec, _ := newTestScanner(t, label.JIS)
	sc.open = func() (FrameSource, error) { return nil, errors.New("no device") }
	err := sc.Start()
	require.Error(t, err)
	assert.False(t, sc.Running())
	assert.Equal(t, []bool{false}, rec.camera)
}

func TestRollover(t *testing.T) {
	sc, rec, st := newTestScanner(t, label.DIN)
	next := time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	require.NoError(t, st.Insert(context.Background(), &models.Detection{Timestamp: next, Code: "LBN 2", Status: models.StatusNotOK}))
	require.NoError(t, st.Insert(context.Background(), &models.Detection{Timestamp: next.Add(-time.Hour), Code: "LBN 1", Status: models.StatusOK}))

	sc.now = func() time.Time { return time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC) }
	assert.False(t, sc.CheckRollover(context.Background()))

	sc.now = func() time.Time { return next }
	assert.True(t, sc.CheckRollover(context.Background()))
	recs := sc.Session().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "LBN 2", recs[0].Code)
	assert.Equal(t, 1, rec.resets)
	assert.False(t, sc.CheckRollover(context.Background()))
}

func TestSessionSettingsAndRemove(t *testing.T) {
	sess := testSession(t, label.DIN, "")
	got, err := sess.Update(func(s *Settings) { s.Target = label.Sentinel; s.SplitView = true })
	require.NoError(t, err)
	assert.Equal(t, "", got.Target)
	assert.True(t, got.SplitView)

	_, err = sess.Update(func(s *Settings) { s.Interval = 0 })
	assert.ErrorIs(t, err, ErrBadSettings)
	assert.Equal(t, 2*time.Second, sess.Settings().Interval)

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, code := range []string{"LBN 1", "LBN 2", "LBN 3"} {
		id := uint(i + 1)
		_, _, err := sess.Commit(code, at.Add(time.Duration(i)*time.Minute), 5*time.Second, func() (models.Detection, error) {
			return models.Detection{ID: id, Code: code}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sess.Remove([]uint{1, 3, 42}))
	recs := sess.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "LBN 2", recs[0].Code)
}

func TestRender(t *testing.T) {
	img := imaging.New(120, 80, color.Gray{Y: 200})
	sq := CropSquare(img)
	assert.Equal(t, image.Rect(0, 0, 80, 80), sq.Bounds())

	split := Render(sq, Settings{SplitView: true})
	assert.Equal(t, 80, split.Bounds().Dx())
	assert.Equal(t, 160, split.Bounds().Dy())

	bin := Render(sq, Settings{BinaryView: true})
	assert.IsType(t, &image.Gray{}, bin)
	assert.Equal(t, sq, Render(sq, Settings{}))

	lb := Letterbox(img, DisplayWidth, DisplayHeight)
	assert.Equal(t, image.Rect(0, 0, DisplayWidth, DisplayHeight), lb.Bounds())
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelB()

	h.Message("LBN 1")
	assert.Equal(t, Event{Type: "message", Data: "LBN 1"}, <-a)
	assert.Equal(t, Event{Type: "message", Data: "LBN 1"}, <-b)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	h.Frame(blankFrame())
	assert.NotEmpty(t, h.LatestFrame())
	assert.Equal(t, "frame", (<-b).Type)

	h.CameraStatus(false)
	assert.Nil(t, h.LatestFrame())
	ev := <-b
	assert.Equal(t, "camera", ev.Type)
	assert.Equal(t, CameraOffText, ev.Data.(map[string]any)["text"])
}
