package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"karton/models"
)

// Gorm implements Store over the detected_codes table.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Insert(ctx context.Context, d *models.Detection) error {
	if err := g.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

func (g *Gorm) Load(ctx context.Context, day time.Time) ([]models.Detection, error) {
	start, end := DayBounds(day)
	var out []models.Detection
	err := g.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp asc, id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load detections: %w", err)
	}
	return out, nil
}

func (g *Gorm) Get(ctx context.Context, id uint) (models.Detection, error) {
	var d models.Detection
	err := g.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d, ErrNotFound
	}
	return d, err
}

func (g *Gorm) Delete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var rows []models.Detection
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("find detections: %w", err)
	}
	return g.remove(ctx, rows)
}

func (g *Gorm) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := g.db.WithContext(ctx).Model(&models.Detection{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count detections: %w", err)
	}
	return n, nil
}

func (g *Gorm) Purge(ctx context.Context, before time.Time) (int64, error) {
	var rows []models.Detection
	if err := g.db.WithContext(ctx).Where("timestamp < ?", before).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("find expired detections: %w", err)
	}
	return g.remove(ctx, rows)
}

// remove deletes rows inside one transaction, then their image files.
// A missing image file is not an error.
func (g *Gorm) remove(ctx context.Context, rows []models.Detection) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var n int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&models.Detection{})
		n = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("delete detections: %w", err)
	}
	for _, r := range rows {
		if r.ImagePath == "" {
			continue
		}
		if err := os.Remove(r.ImagePath); err != nil && !os.IsNotExist(err) {
			log.Printf("store: remove image id=%d path=%s: %v", r.ID, r.ImagePath, err)
		}
	}
	return n, nil
}

func (g *Gorm) Summary(ctx context.Context, day time.Time) ([]SessionSummary, error) {
	start, end := DayBounds(day)
	type row struct {
		TargetSession string
		Status        string
		N             int64
	}
	var rows []row
	err := g.db.WithContext(ctx).Model(&models.Detection{}).
		Select("target_session, status, count(*) AS n").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Group("target_session, status").
		Order("target_session").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("summarise detections: %w", err)
	}
	var out []SessionSummary
	idx := map[string]int{}
	for _, r := range rows {
		i, ok := idx[r.TargetSession]
		if !ok {
			i = len(out)
			idx[r.TargetSession] = i
			out = append(out, SessionSummary{TargetSession: r.TargetSession})
		}
		if r.Status == models.StatusOK {
			out[i].OK += r.N
		} else {
			out[i].NotOK += r.N
		}
	}
	return out, nil
}
