// Package notifier owns the process-wide foreground-change subscription.
package notifier

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/pkg/window"
)

var (
	// ErrSubscription matches every SubscriptionError
	ErrSubscription = errors.New("foreground change subscription failed")

	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("notifier already started")

	// ErrNoCallback is returned when Start is called before OnForegroundChanged
	ErrNoCallback = errors.New("no foreground change callback registered")
)

// SubscriptionError reports that the platform refused the hook
type SubscriptionError struct {
	Backend string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s foreground change subscription failed: %v", e.Backend, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

func (e *SubscriptionError) Is(target error) bool {
	return target == ErrSubscription
}

// Notifier registers exactly one foreground-change subscription and keeps it
// until Close. Only the notifier touches the platform hook.
type Notifier struct {
	hook    window.Hook
	backend string
	log     zerolog.Logger

	mu       sync.Mutex
	callback func()
	started  bool
	closed   bool
}

// New creates a notifier over hook
func New(hook window.Hook, backend string, logger zerolog.Logger) *Notifier {
	return &Notifier{hook: hook, backend: backend, log: logger}
}

// OnForegroundChanged sets the callback run on every foreground change. The
// callback executes on the hook's delivery goroutine and must return quickly.
func (n *Notifier) OnForegroundChanged(callback func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callback = callback
}

// Start registers the subscription. A refusal by the platform is returned as
// a *SubscriptionError; the application cannot work without it.
func (n *Notifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrAlreadyStarted
	}
	if n.callback == nil {
		return ErrNoCallback
	}

	if err := n.hook.Subscribe(n.deliver); err != nil {
		return &SubscriptionError{Backend: n.backend, Err: err}
	}
	n.started = true
	n.log.Info().Str("backend", n.backend).Msg("Foreground change subscription registered")
	return nil
}

func (n *Notifier) deliver() {
	n.mu.Lock()
	cb := n.callback
	closed := n.closed
	n.mu.Unlock()

	if closed || cb == nil {
		return
	}
	cb()
}

// Close removes the subscription. It is called once at process exit.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	started := n.started
	n.mu.Unlock()

	if !started {
		return nil
	}
	if err := n.hook.Close(); err != nil {
		return fmt.Errorf("failed to close foreground hook: %w", err)
	}
	n.log.Info().Msg("Foreground change subscription removed")
	return nil
}
