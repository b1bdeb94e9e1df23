//go:build !(windows && (amd64 || arm64))

package win32

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/pkg/window"
)

// ErrUnsupported is returned when the backend is not built for this platform
var ErrUnsupported = errors.New("win32 backend requires 64-bit Windows")

// IsAvailable reports whether the backend can run on this build
func IsAvailable() bool {
	return false
}

// New always fails outside 64-bit Windows
func New(logger zerolog.Logger) (window.Platform, error) {
	return nil, ErrUnsupported
}
