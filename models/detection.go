package models

import "time"

// Verdict status values.
const (
	StatusOK    = "OK"
	StatusNotOK = "Not OK"
)

// Detection is one accepted reading. Rows are written once and only removed
// by an explicit delete or retention purge.
type Detection struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"index;not null" json:"timestamp"`
	Code          string    `gorm:"size:64;index;not null" json:"code"`
	Standard      string    `gorm:"column:preset;size:8;not null" json:"preset"`
	ImagePath     string    `gorm:"size:512" json:"image_path"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	TargetSession string    `gorm:"size:64;index" json:"target_session"`
}

func (Detection) TableName() string { return "detected_codes" }

func (d Detection) OK() bool { return d.Status == StatusOK }
