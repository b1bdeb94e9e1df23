package window

import "github.com/iconwatch/iconwatch/pkg/automation"

// Handle identifies a top-level window. The zero value means no window.
type Handle uintptr

// NoHandle is returned when no window is in the foreground
const NoHandle Handle = 0

// Querier answers questions about the current foreground window
type Querier interface {
	// ForegroundWindow returns the handle of the window receiving input, or NoHandle
	ForegroundWindow() (Handle, error)

	// WindowText returns at most maxChars characters of the window title
	WindowText(h Handle, maxChars int) (string, error)
}

// Hook delivers a notification every time the foreground window changes.
// The handler runs on the hook's delivery goroutine and must return quickly.
type Hook interface {
	Subscribe(handler func()) error
	Close() error
}

// Platform bundles everything the desktop pipeline needs from the OS
type Platform interface {
	Querier

	// Hook returns the foreground-change subscription primitive
	Hook() Hook

	// Tree returns the accessibility tree of the session
	Tree() automation.Tree

	// Name returns the backend identifier ("win32", "x11" or "fixture")
	Name() string

	// Close cleans up any resources used by the platform
	Close() error
}
