package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"fixture without path", func(c *Config) { c.Detector.Backend = BackendFixture }, "fixture path"},
		{"fixture with path", func(c *Config) {
			c.Detector.Backend = BackendFixture
			c.Detector.FixturePath = "desk.yaml"
		}, ""},
		{"unknown backend", func(c *Config) { c.Detector.Backend = "carbon" }, "unknown detector backend"},
		{"port zero", func(c *Config) { c.Web.Port = 0 }, "web port"},
		{"empty host", func(c *Config) { c.Web.Host = "" }, "web host"},
		{"negative shutdown", func(c *Config) { c.Web.ShutdownTimeout = -time.Second }, "shutdown timeout"},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, "PID file"},
		{"bad time zone", func(c *Config) { c.Report.TimeZone = "Mars/Olympus" }, "time zone"},
		{"negative retention", func(c *Config) { c.Database.RetentionDays = -1 }, "retention days"},
		{"retention disabled", func(c *Config) { c.Database.RetentionDays = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetWebPort(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetWebPort(8081))
	assert.Equal(t, 8081, cfg.Web.Port)
	assert.Error(t, cfg.SetWebPort(70000))
	assert.Equal(t, 8081, cfg.Web.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ICONWATCH_BACKEND", "fixture")
	t.Setenv("ICONWATCH_FIXTURE", "/tmp/desk.yaml")
	t.Setenv("ICONWATCH_DISCARD_STALE", "false")
	t.Setenv("ICONWATCH_WEB", "true")
	t.Setenv("ICONWATCH_WEB_PORT", "9123")
	t.Setenv("ICONWATCH_TRAY", "false")
	t.Setenv("ICONWATCH_LOG_LEVEL", "debug")
	t.Setenv("ICONWATCH_RETENTION_DAYS", "7")

	cfg := New()

	assert.Equal(t, 7, cfg.Database.RetentionDays)
	assert.Equal(t, BackendFixture, cfg.Detector.Backend)
	assert.Equal(t, "/tmp/desk.yaml", cfg.Detector.FixturePath)
	assert.False(t, cfg.Scanner.DiscardStale)
	assert.True(t, cfg.Web.Enabled)
	assert.Equal(t, 9123, cfg.Web.Port)
	assert.False(t, cfg.Tray.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("ICONWATCH_BACKEND", "carbon")
	t.Setenv("ICONWATCH_WEB_PORT", "not-a-port")
	t.Setenv("ICONWATCH_DISCARD_STALE", "maybe")
	t.Setenv("ICONWATCH_RETENTION_DAYS", "-4")

	cfg := New()
	def := Default()

	assert.Equal(t, def.Detector.Backend, cfg.Detector.Backend)
	assert.Equal(t, def.Web.Port, cfg.Web.Port)
	assert.True(t, cfg.Scanner.DiscardStale)
	assert.Equal(t, def.Database.RetentionDays, cfg.Database.RetentionDays)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iconwatch.yaml")
	content := `
detector:
  backend: x11
scanner:
  discard_stale: false
web:
  enabled: true
  port: 9200
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendX11, cfg.Detector.Backend)
	assert.False(t, cfg.Scanner.DiscardStale)
	assert.True(t, cfg.Web.Enabled)
	assert.Equal(t, 9200, cfg.Web.Port)
	assert.Equal(t, "localhost", cfg.Web.Host, "keys absent from the file keep defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iconwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web:\n  port: 9200\n"), 0o644))
	t.Setenv("ICONWATCH_WEB_PORT", "9300")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Web.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("web: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := Default()
	cfg.Report.TimeZone = "UTC"
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Report.TimeZone = "Mars/Olympus"
	assert.Equal(t, time.Local, cfg.Location())
}
