package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"karton/pkg/camera"
	"karton/pkg/config"
	"karton/pkg/ocr"
	"karton/pkg/scan"
	"karton/pkg/store"
	"karton/pkg/tesseract"
)

// Components is a fully wired scanner and what it was built from.
type Components struct {
	Config   *config.Config
	Store    *store.Gorm
	Images   *store.Images
	Pipeline *scan.Pipeline
	Session  *scan.Session
	Engine   *scan.Engine
	Scanner  *scan.Scanner
}

// Recognizer returns the Tesseract engine configured by cfg.
func Recognizer(cfg config.OCRConfig) ocr.Recognizer {
	e := tesseract.New(cfg.Language)
	e.MinConfidence = cfg.MinConfidence
	return e
}

// Build assembles the pipeline, session and scanner. The session starts with
// today's records already in the store. A nil rec uses Tesseract.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, rec ocr.Recognizer, pr scan.Presenter) (*Components, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("label rules: %w", err)
	}
	preset, err := cfg.Preset()
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Recognizer(cfg.OCR)
	}

	now := time.Now()
	session, err := scan.NewSession(scan.Settings{
		Preset:     preset,
		Interval:   cfg.Scan.Interval,
		BinaryView: cfg.Scan.BinaryView,
		SplitView:  cfg.Scan.SplitView,
	}, now)
	if err != nil {
		return nil, err
	}
	st := store.NewGorm(db)
	records, err := st.Load(ctx, now)
	if err != nil {
		log.Printf("load today's detections: %v", err)
	}
	session.Reset(now, records)

	images := store.NewImages(cfg.Storage.ImageDir)
	engine := scan.NewEngine(session, st, images, cfg.Scan.DuplicateWindow)
	pipeline := scan.NewPipeline(reg, rec, cfg.Scan.MaxWidth)
	return &Components{
		Config:   cfg,
		Store:    st,
		Images:   images,
		Pipeline: pipeline,
		Session:  session,
		Engine:   engine,
		Scanner:  scan.NewScanner(pipeline, engine, pr, Opener(cfg.Camera)),
	}, nil
}

// Opener replays a directory when camera.replay_dir is set and opens the
// capture device otherwise.
func Opener(cfg config.CameraConfig) scan.Opener {
	return func() (scan.FrameSource, error) {
		if cfg.ReplayDir != "" {
			r, err := camera.NewReplay(cfg.ReplayDir, cfg.FrameRate)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
		src, err := camera.Open(camera.Config{
			Device: cfg.Device,
			Probe:  cfg.Probe,
			Width:  cfg.Width,
			Height: cfg.Height,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
