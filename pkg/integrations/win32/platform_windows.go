//go:build windows && (amd64 || arm64)

package win32

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"github.com/iconwatch/iconwatch/pkg/automation"
	"github.com/iconwatch/iconwatch/pkg/window"
)

// Platform implements window.Platform on Windows
type Platform struct {
	hook *hook
	uia  *uia
	log  zerolog.Logger
}

// IsAvailable reports whether the backend can run on this build
func IsAvailable() bool {
	return true
}

// New creates the UI Automation client. The foreground hook is installed
// when it is subscribed.
func New(logger zerolog.Logger) (*Platform, error) {
	u, err := newUIA()
	if err != nil {
		return nil, err
	}
	return &Platform{hook: &hook{}, uia: u, log: logger}, nil
}

func (p *Platform) ForegroundWindow() (window.Handle, error) {
	return window.Handle(windows.GetForegroundWindow()), nil
}

func (p *Platform) WindowText(h window.Handle, maxChars int) (string, error) {
	if h == window.NoHandle || maxChars <= 0 {
		return "", nil
	}
	buf := make([]uint16, maxChars+1)
	n, err := windows.GetWindowText(windows.HWND(h), &buf[0], int32(len(buf)))
	if n == 0 {
		// Untitled windows report zero characters with no usable error
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GetWindowText: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func (p *Platform) Hook() window.Hook {
	return p.hook
}

func (p *Platform) Tree() automation.Tree {
	return p.uia
}

func (p *Platform) Name() string {
	return BackendName
}

func (p *Platform) Close() error {
	err := p.hook.Close()
	p.uia.close()
	return err
}
