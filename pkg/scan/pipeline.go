package scan

import (
	"image"
	"log"

	"github.com/google/uuid"

	"karton/pkg/label"
	"karton/pkg/ocr"
)

// Stage is one step of a scan attempt, recorded in Result.Trail.
type Stage string

const (
	StageVariants   Stage = "variants"
	StageCandidates Stage = "candidates"
	StageCorrected  Stage = "corrected"
	StageMatched    Stage = "matched"
	StageNoMatch    Stage = "no_match"
	StageValidated  Stage = "validated"
	StageRejected   Stage = "rejected"
	StageVerdict    Stage = "verdict"
	StageSuppressed Stage = "suppressed"
	StageFailed     Stage = "failed"
)

// Result is everything the recognition steps produced for one frame.
type Result struct {
	ID     string
	Preset label.Standard
	Trail  []Stage
	Pool   ocr.Pool

	// Set once a catalog entry matched.
	Matched   bool
	MatchedBy label.Standard
	Candidate label.Candidate
	Code      string

	Family     label.Standard
	Classified bool
	Rejection  label.Rejection
	Err        error
}

func (r *Result) mark(s Stage) { r.Trail = append(r.Trail, s) }

// Accepted reports whether the result may become a verdict.
func (r *Result) Accepted() bool { return r.Matched && !r.Rejection.Rejected() }

// Pipeline runs variants, OCR, correction, matching, normalization and
// validation for one frame. It holds no per-scan state.
type Pipeline struct {
	registry *label.Registry
	rec      ocr.Recognizer
	maxWidth int
}

func NewPipeline(reg *label.Registry, rec ocr.Recognizer, maxWidth int) *Pipeline {
	if maxWidth <= 0 {
		maxWidth = ocr.DefaultMaxWidth
	}
	return &Pipeline{registry: reg, rec: rec, maxWidth: maxWidth}
}

func (p *Pipeline) Registry() *label.Registry { return p.registry }

// Recognize processes img under preset. When the preset's catalog yields no
// match the other standard is tried on the same candidates, so that a code of
// the wrong family is rejected rather than silently missed.
func (p *Pipeline) Recognize(img image.Image, preset label.Standard) Result {
	res := Result{ID: uuid.NewString()[:8], Preset: preset}
	rules := p.registry.Rules(preset)

	variants := ocr.Variants(img, preset, p.maxWidth)
	res.mark(StageVariants)

	res.Pool = ocr.Collect(p.rec, variants, ocr.OptionsFor(rules.Profile))
	res.mark(StageCandidates)
	if res.Pool.Empty() {
		res.Err = ocr.ErrNoCandidates
		res.mark(StageNoMatch)
		return res
	}

	res.mark(StageCorrected)
	cand, ok := label.Best(res.Pool.Raw, rules.Corrector, rules.Matcher)
	by := preset
	if !ok {
		other := p.registry.Rules(preset.Other())
		cand, ok = label.Best(res.Pool.Raw, other.Corrector, other.Matcher)
		by = other.Standard()
	}
	if !ok {
		res.mark(StageNoMatch)
		return res
	}
	res.mark(StageMatched)
	res.Matched = true
	res.MatchedBy = by
	res.Candidate = cand
	res.Code = label.Normalize(by, cand.Match.Entry)

	res.Family, res.Classified = p.registry.Classifier().Classify(res.Code)
	res.Rejection = label.Validate(res.Family, res.Classified, preset)
	if res.Rejection.Rejected() {
		res.mark(StageRejected)
	} else {
		res.mark(StageValidated)
	}
	log.Printf("scan id=%s preset=%s raw=%q corrected=%q code=%q score=%.3f by=%s",
		res.ID, preset, cand.Raw, cand.Corrected, res.Code, cand.Match.Score, by)
	return res
}
