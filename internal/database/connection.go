// Package database stores the scan journal: one row per completed
// enumeration, plus errors that happened outside a scan.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iconwatch/iconwatch/internal/models"
)

const (
	journalFile = "iconwatch.db"
	appDir      = "iconwatch"

	// The running service writes while status/report read from another
	// process
	journalPragmas = "?_journal_mode=WAL&_busy_timeout=5000"
)

// DB is an open scan journal
type DB struct {
	*gorm.DB
}

// DefaultPath returns the journal location under the user's config
// directory (~/.config/iconwatch on Linux, %AppData%\iconwatch on Windows)
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(configDir, appDir, journalFile), nil
}

// Connect opens the scan journal at path, or at DefaultPath when empty.
// The parent directory is created if needed.
func Connect(path string) (*DB, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path+journalPragmas), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open scan journal %s: %w", path, err)
	}

	return &DB{db}, nil
}

// Initialize creates or migrates the journal tables
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.ScanRecord{}, &models.ErrorLog{}); err != nil {
		return fmt.Errorf("failed to migrate scan journal: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
