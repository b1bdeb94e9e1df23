package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("ICONWATCH_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if journal := os.Getenv("ICONWATCH_JOURNAL"); journal != "" {
		if val, err := strconv.ParseBool(journal); err == nil {
			cfg.Database.Enabled = val
		}
	}

	if retention := os.Getenv("ICONWATCH_RETENTION_DAYS"); retention != "" {
		if days, err := strconv.Atoi(retention); err == nil && days >= 0 {
			cfg.Database.RetentionDays = days
		}
	}

	// Detector configuration
	if backend := os.Getenv("ICONWATCH_BACKEND"); backend != "" {
		_ = cfg.SetBackend(backend)
	}

	if fixture := os.Getenv("ICONWATCH_FIXTURE"); fixture != "" {
		cfg.Detector.FixturePath = fixture
	}

	// Scanner configuration
	if discard := os.Getenv("ICONWATCH_DISCARD_STALE"); discard != "" {
		if val, err := strconv.ParseBool(discard); err == nil {
			cfg.Scanner.DiscardStale = val
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("ICONWATCH_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("ICONWATCH_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Report configuration
	if timeZone := os.Getenv("ICONWATCH_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	// Web configuration
	if web := os.Getenv("ICONWATCH_WEB"); web != "" {
		if val, err := strconv.ParseBool(web); err == nil {
			cfg.Web.Enabled = val
		}
	}

	if webHost := os.Getenv("ICONWATCH_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("ICONWATCH_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}

	// Tray configuration
	if tray := os.Getenv("ICONWATCH_TRAY"); tray != "" {
		if val, err := strconv.ParseBool(tray); err == nil {
			cfg.Tray.Enabled = val
		}
	}

	// Log configuration
	if level := os.Getenv("ICONWATCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// LoadFile merges a YAML configuration file into cfg. Keys missing from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}

// Load creates a Config from defaults, an optional YAML file and the environment
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
