package detector

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/pkg/integrations/fixture"
	"github.com/iconwatch/iconwatch/pkg/integrations/win32"
	"github.com/iconwatch/iconwatch/pkg/integrations/x11"
	"github.com/iconwatch/iconwatch/pkg/window"
)

// ErrNoBackend is returned when auto selection finds nothing usable
var ErrNoBackend = errors.New("no desktop backend available (need Windows or an X11 display)")

// New opens the platform backend selected by cfg
func New(cfg config.DetectorConfig, logger zerolog.Logger) (window.Platform, error) {
	backend, err := ResolveBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("backend", backend).Logger()

	switch backend {
	case config.BackendWin32:
		p, err := win32.New(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open win32 backend: %w", err)
		}
		return p, nil
	case config.BackendX11:
		if server := DetectDisplayServer(); server == "wayland" {
			logger.Warn().Msg("Wayland session detected, only XWayland windows are visible")
		}
		p, err := x11.New("", logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open x11 backend: %w", err)
		}
		return p, nil
	case config.BackendFixture:
		p, err := fixture.New(cfg.FixturePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixture backend: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", backend)
	}
}

// ResolveBackend turns "auto" into a concrete backend for this session
func ResolveBackend(backend string) (string, error) {
	if backend != config.BackendAuto && backend != "" {
		return backend, nil
	}
	if runtime.GOOS == "windows" && win32.IsAvailable() {
		return config.BackendWin32, nil
	}
	if x11.IsAvailable() {
		return config.BackendX11, nil
	}
	return "", ErrNoBackend
}

func DetectDisplayServer() string {
	if runtime.GOOS == "windows" {
		return "win32"
	}

	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
