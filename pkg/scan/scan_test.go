package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karton/models"
	"karton/pkg/label"
	"karton/pkg/ocr"
)

func reads(texts ...string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(image.Image, ocr.Options) ([]string, error) {
		return texts, nil
	})
}

func blankFrame() image.Image {
	return imaging.New(80, 40, color.White)
}

func testSession(t *testing.T, preset label.Standard, target string) *Session {
	t.Helper()
	s, err := NewSession(Settings{Preset: preset, Target: target, Interval: 2 * time.Second}, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return s
}

func TestPipelineDINMatch(t *testing.T) {
	p := NewPipeline(label.DefaultRegistry(), reads("noise", "LBN1"), 0)
	res := p.Recognize(blankFrame(), label.DIN)

	require.True(t, res.Matched)
	assert.True(t, res.Accepted())
	assert.Equal(t, "LBN 1", res.Code)
	assert.Equal(t, label.DIN, res.Family)
	assert.Equal(t, "LBN1", res.Candidate.Raw)
	assert.Equal(t, []Stage{StageVariants, StageCandidates, StageCorrected, StageMatched, StageValidated}, res.Trail)
	assert.NotEmpty(t, res.ID)
}

func TestPipelineDINCorrectedMatch(t *testing.T) {
	p := NewPipeline(label.DefaultRegistry(), reads("LNO260A"), 0)
	res := p.Recognize(blankFrame(), label.DIN)
	require.True(t, res.Matched)
	assert.Equal(t, "LN0 260A", res.Code)
}

func TestPipelineJISStructural(t *testing.T) {
	prof := label.DefaultProfile(label.JIS)
	prof.Catalog = append([]string{"110D260"}, prof.Catalog...)
	reg, err := label.NewRegistry(prof, label.DefaultProfile(label.DIN))
	require.NoError(t, err)

	res := NewPipeline(reg, reads("1104260", "1100260"), 0).Recognize(blankFrame(), label.JIS)
	require.True(t, res.Matched)
	assert.Equal(t, "110D260", res.Code)
	assert.Equal(t, "1100260", res.Candidate.Raw)
}

func TestPresetMismatch(t *testing.T) {
	reg := label.DefaultRegistry()
	ctx := context.Background()

	res := NewPipeline(reg, reads("LBN1"), 0).Recognize(blankFrame(), label.JIS)
	require.True(t, res.Matched)
	assert.Equal(t, label.DIN, res.MatchedBy)
	assert.Equal(t, label.MsgExpectJIS, res.Rejection.Message)
	assert.Equal(t, StageRejected, res.Trail[len(res.Trail)-1])

	sess := testSession(t, label.JIS, "")
	out := NewEngine(sess, nil, nil, 5*time.Second).Decide(ctx, &res, nil, sess.Settings(), Live)
	rej, ok := out.(Rejected)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "LBN 1", rej.Code)
	assert.Equal(t, label.MsgExpectJIS, Signal(out, true))
	assert.Empty(t, sess.Records())

	res = NewPipeline(reg, reads("55D23L"), 0).Recognize(blankFrame(), label.DIN)
	require.True(t, res.Matched)
	assert.Equal(t, label.MsgExpectDIN, res.Rejection.Message)
}

func TestBlankFrameNoMatch(t *testing.T) {
	for _, std := range label.Standards {
		res := NewPipeline(label.DefaultRegistry(), reads(), 0).Recognize(blankFrame(), std)
		assert.False(t, res.Matched)
		assert.True(t, errors.Is(res.Err, ocr.ErrNoCandidates))

		sess := testSession(t, std, "")
		out := NewEngine(sess, nil, nil, 5*time.Second).Decide(context.Background(), &res, nil, sess.Settings(), Static)
		assert.IsType(t, NoMatch{}, out)
		assert.Equal(t, FailedText, Signal(out, false))
		assert.Equal(t, "", Signal(out, true))
	}

	res := NewPipeline(label.DefaultRegistry(), reads("QQQQQQQ", "??"), 0).Recognize(blankFrame(), label.DIN)
	assert.False(t, res.Matched)
	assert.NoError(t, res.Err)
	assert.Equal(t, StageNoMatch, res.Trail[len(res.Trail)-1])
}

func TestDuplicateSuppression(t *testing.T) {
	sess := testSession(t, label.JIS, "110D26R")
	e := NewEngine(sess, nil, nil, 5*time.Second)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	decideAt := func(offset time.Duration, mode Mode) Outcome {
		e.now = func() time.Time { return base.Add(offset) }
		res := Result{ID: "t", Matched: true, Code: "110D26R", Family: label.JIS, Classified: true}
		return e.Decide(context.Background(), &res, nil, sess.Settings(), mode)
	}

	assert.IsType(t, Verdict{}, decideAt(0, Live))
	assert.IsType(t, Suppressed{}, decideAt(3*time.Second, Live))
	assert.Equal(t, "", Signal(Suppressed{}, true))
	assert.IsType(t, Verdict{}, decideAt(6*time.Second, Live))
	// static scans are never suppressed
	assert.IsType(t, Verdict{}, decideAt(7*time.Second, Static))

	recs := sess.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, base, recs[0].Timestamp)
	assert.Equal(t, base.Add(6*time.Second), recs[1].Timestamp)
	assert.Equal(t, models.StatusOK, recs[0].Status)
}

func TestStatusDecision(t *testing.T) {
	assert.Equal(t, models.StatusOK, Status(label.DIN, "LBN 1", "LBN 1"))
	assert.Equal(t, models.StatusOK, Status(label.DIN, "lbn1", "LBN 1"))
	assert.Equal(t, models.StatusNotOK, Status(label.DIN, "LBN 2", "LBN 1"))
	assert.Equal(t, models.StatusNotOK, Status(label.DIN, "", "LBN 1"))
	assert.Equal(t, models.StatusOK, Status(label.JIS, "55d23l", "55D23L"))

	ctx := context.Background()
	for _, tc := range []struct {
		target, status, session string
	}{
		{"LBN 1", models.StatusOK, "LBN 1"},
		{"LBN 2", models.StatusNotOK, "LBN 2"},
		{"", models.StatusNotOK, "LBN 1"},
	} {
		sess := testSession(t, label.DIN, tc.target)
		res := Result{Matched: true, Code: "LBN 1", Family: label.DIN, Classified: true}
		out := NewEngine(sess, nil, nil, 5*time.Second).Decide(ctx, &res, nil, sess.Settings(), Static)
		v, ok := out.(Verdict)
		require.True(t, ok)
		assert.Equal(t, tc.status, v.Record.Status, tc.target)
		assert.Equal(t, tc.session, v.Record.TargetSession, tc.target)
		assert.Equal(t, "DIN", v.Record.Standard)
		assert.Equal(t, "LBN 1", Signal(out, true))
	}
}

type failingStore struct{ *memStore }

func (failingStore) Insert(context.Context, *models.Detection) error {
	return errors.New("disk full")
}

func TestPersistFailure(t *testing.T) {
	sess := testSession(t, label.DIN, "")
	e := NewEngine(sess, failingStore{&memStore{}}, nil, 5*time.Second)
	res := Result{Matched: true, Code: "LBN 3", Family: label.DIN, Classified: true}
	out := e.Decide(context.Background(), &res, nil, sess.Settings(), Live)
	f, ok := out.(Failed)
	require.True(t, ok)
	assert.Contains(t, f.Err.Error(), "disk full")
	assert.Empty(t, sess.Records())
	assert.Equal(t, "", Signal(out, true))
	assert.Contains(t, Signal(out, false), "disk full")
}

func TestFreeTargetVerdict(t *testing.T) {
	reg := label.DefaultRegistry()
	target, err := reg.Target(label.JIS, "55d23l(s)")
	require.NoError(t, err)
	sess := testSession(t, label.JIS, target)
	e := NewEngine(sess, nil, nil, 5*time.Second)

	res := Result{ID: "t", Matched: true, Code: "55D23L(S)", Family: label.JIS, Classified: true}
	out := e.Decide(context.Background(), &res, nil, sess.Settings(), Static)
	v, ok := out.(Verdict)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, models.StatusOK, v.Record.Status)
	assert.Equal(t, "55D23L(S)", v.Record.TargetSession)
}
