package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend names accepted by Detector.Backend
const (
	BackendAuto    = "auto"
	BackendWin32   = "win32"
	BackendX11     = "x11"
	BackendFixture = "fixture"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Platform backend configuration
	Detector DetectorConfig `yaml:"detector"`

	// Scanner configuration
	Scanner ScannerConfig `yaml:"scanner"`

	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon"`

	// Report configuration
	Report ReportConfig `yaml:"report"`

	// Web server configuration
	Web WebConfig `yaml:"web"`

	// Tray configuration
	Tray TrayConfig `yaml:"tray"`

	// Log configuration
	Log LogConfig `yaml:"log"`
}

// DatabaseConfig holds scan journal configuration
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`           // Path to SQLite database file
	RetentionDays int    `yaml:"retention_days"` // Scans older than this are pruned at startup; 0 keeps everything
}

// DetectorConfig selects the platform backend
type DetectorConfig struct {
	Backend     string `yaml:"backend"`      // auto, win32, x11 or fixture
	FixturePath string `yaml:"fixture_path"` // YAML document used by the fixture backend
}

// ScannerConfig holds enumeration behavior configuration
type ScannerConfig struct {
	DiscardStale bool `yaml:"discard_stale"` // Drop results superseded by a newer enumeration
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `yaml:"pid_file"` // Path to PID file for daemon management
	LogFile string `yaml:"log_file"` // Log destination when detached
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `yaml:"time_zone"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"` // Host to bind web server to
	Port            int           `yaml:"port"` // Port for web server
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TrayConfig holds tray and balloon configuration
type TrayConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BalloonTitle string `yaml:"balloon_title"`
	BalloonText  string `yaml:"balloon_text"`
	IconPath     string `yaml:"icon_path"` // Icon shown in balloons
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Enabled:       true,
			Path:          "", // Empty means iconwatch/iconwatch.db under the user config directory
			RetentionDays: 30,
		},
		Detector: DetectorConfig{
			Backend: BackendAuto,
		},
		Scanner: ScannerConfig{
			DiscardStale: true,
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(os.TempDir(), fmt.Sprintf("iconwatch-%d.pid", os.Getuid())),
			LogFile: filepath.Join(os.TempDir(), fmt.Sprintf("iconwatch-%d.log", os.Getuid())),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            10000 + userPortOffset(), // Default port based on user ID
			ShutdownTimeout: 10 * time.Second,
		},
		Tray: TrayConfig{
			Enabled:      true,
			BalloonTitle: "Desktop Icon Finder",
			BalloonText:  "Desktop Icon Finder running in background",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// userPortOffset keeps per-user default ports apart. os.Getuid is -1 on Windows.
func userPortOffset() int {
	uid := os.Getuid()
	if uid < 0 {
		return 0
	}
	return uid % 50000
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case BackendAuto, BackendWin32, BackendX11:
	case BackendFixture:
		if c.Detector.FixturePath == "" {
			return fmt.Errorf("fixture backend requires a fixture path")
		}
	default:
		return fmt.Errorf("unknown detector backend %q (valid: auto, win32, x11, fixture)", c.Detector.Backend)
	}

	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative, got %d", c.Database.RetentionDays)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Web.ShutdownTimeout < 0 {
		return fmt.Errorf("web shutdown timeout cannot be negative")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if _, err := time.LoadLocation(c.Report.TimeZone); err != nil {
		return fmt.Errorf("invalid report time zone %q: %w", c.Report.TimeZone, err)
	}

	return nil
}

// SetBackend sets the detector backend with validation
func (c *Config) SetBackend(backend string) error {
	switch backend {
	case BackendAuto, BackendWin32, BackendX11, BackendFixture:
		c.Detector.Backend = backend
		return nil
	default:
		return fmt.Errorf("unknown detector backend %q", backend)
	}
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location returns the report time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Enabled: %v
    Path: %s
    Retention Days: %d
  Detector:
    Backend: %s
    Fixture: %s
  Scanner:
    Discard Stale: %v
  Daemon:
    PID File: %s
    Log File: %s
  Report:
    Time Zone: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d
  Tray:
    Enabled: %v
  Log:
    Level: %s`,
		c.Database.Enabled,
		c.Database.Path,
		c.Database.RetentionDays,
		c.Detector.Backend,
		c.Detector.FixturePath,
		c.Scanner.DiscardStale,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Report.TimeZone,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
		c.Tray.Enabled,
		c.Log.Level,
	)
}
