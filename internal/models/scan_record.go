package models

import (
	"time"

	"gorm.io/gorm"
)

// ScanRecord journals one desktop enumeration. Icon names are never stored.
type ScanRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ScanID     string         `gorm:"not null;uniqueIndex" json:"scan_id"`
	Generation uint64         `gorm:"not null" json:"generation"`
	StartedAt  time.Time      `gorm:"not null;index" json:"started_at"`
	DurationMs int64          `gorm:"not null;default:0" json:"duration_ms"`
	Outcome    string         `gorm:"not null;index" json:"outcome"` // "ok", "failed" or "discarded"
	IconCount  int            `gorm:"not null;default:0" json:"icon_count"`
	Error      string         `json:"error,omitempty"`
	Backend    string         `gorm:"not null" json:"backend"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// OutcomeSummary aggregates scans sharing an outcome
type OutcomeSummary struct {
	Outcome       string  `json:"outcome"`
	ScanCount     int     `json:"scan_count"`
	TotalMs       int64   `json:"total_ms"`
	AverageMs     float64 `json:"average_ms"`
	MaxIconCount  int     `json:"max_icon_count"`
	LastIconCount int     `json:"last_icon_count,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period         ReportPeriod     `json:"period"`
	Outcomes       []OutcomeSummary `json:"outcomes"`
	TotalScans     int              `json:"total_scans"`
	SuccessRate    float64          `json:"success_rate"`
	LastIconCount  int              `json:"last_icon_count"`
	LastScanAt     *time.Time       `json:"last_scan_at,omitempty"`
	AverageLatency float64          `json:"average_latency_ms"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
