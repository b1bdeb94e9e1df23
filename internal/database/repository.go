package database

import (
	"time"

	"github.com/iconwatch/iconwatch/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for the scan journal
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateScan inserts a scan record
func (r *Repository) CreateScan(record *models.ScanRecord) error {
	result := r.db.Create(record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert scan record")
	}
	return nil
}

// GetByScanID retrieves a scan by its identifier, or nil when there is none
func (r *Repository) GetByScanID(scanID string) (*models.ScanRecord, error) {
	var record models.ScanRecord
	result := r.db.Where("scan_id = ?", scanID).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get scan record")
	}
	return &record, nil
}

// ListRecent returns the newest scans first, at most limit of them
func (r *Repository) ListRecent(limit int) ([]*models.ScanRecord, error) {
	var records []*models.ScanRecord
	result := r.db.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list recent scans")
	}
	return records, nil
}

// GetScansSince retrieves all scans started at or after since, oldest first
func (r *Repository) GetScansSince(since time.Time) ([]*models.ScanRecord, error) {
	var records []*models.ScanRecord
	result := r.db.Where("started_at >= ?", since).Order("started_at ASC").Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query scans")
	}
	return records, nil
}

// GetOutcomeSummarySince aggregates scans per outcome since a given time
func (r *Repository) GetOutcomeSummarySince(since time.Time) ([]models.OutcomeSummary, error) {
	var summaries []models.OutcomeSummary

	result := r.db.Model(&models.ScanRecord{}).
		Select("outcome, COUNT(*) as scan_count, SUM(duration_ms) as total_ms, MAX(icon_count) as max_icon_count").
		Where("started_at >= ?", since).
		Group("outcome").
		Order("scan_count DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query outcome summary")
	}

	for i := range summaries {
		if summaries[i].ScanCount > 0 {
			summaries[i].AverageMs = float64(summaries[i].TotalMs) / float64(summaries[i].ScanCount)
		}
	}

	return summaries, nil
}

// GetLatest retrieves the most recent scan, or nil when the journal is empty
func (r *Repository) GetLatest() (*models.ScanRecord, error) {
	var record models.ScanRecord
	result := r.db.Order("started_at DESC").Order("id DESC").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest scan")
	}
	return &record, nil
}

// GetLatestSuccessful retrieves the most recent scan that reached the surface
func (r *Repository) GetLatestSuccessful() (*models.ScanRecord, error) {
	var record models.ScanRecord
	result := r.db.Where("outcome = ?", "ok").Order("started_at DESC").Order("id DESC").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest successful scan")
	}
	return &record, nil
}

// DeleteOldScans deletes scans started before the given time (soft delete)
func (r *Repository) DeleteOldScans(before time.Time) (int64, error) {
	result := r.db.Where("started_at < ?", before).Delete(&models.ScanRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old scans")
	}
	return result.RowsAffected, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// ListErrors returns the newest error logs first
func (r *Repository) ListErrors(limit int) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list error logs")
	}
	return logs, nil
}

// Clear removes all scans and error logs from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM scan_records")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear scan records")
	}
	result = r.db.Exec("DELETE FROM error_logs")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
