package notifier

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iconwatch/iconwatch/pkg/window"
)

type mockHook struct {
	subscribeErr error
	closeErr     error
	subscribes   int
	closes       int
	handler      func()
}

func (h *mockHook) Subscribe(handler func()) error {
	h.subscribes++
	if h.subscribeErr != nil {
		return h.subscribeErr
	}
	h.handler = handler
	return nil
}

func (h *mockHook) Close() error {
	h.closes++
	return h.closeErr
}

func (h *mockHook) fire() {
	if h.handler != nil {
		h.handler()
	}
}

func TestMockHookImplementsHook(t *testing.T) {
	var _ window.Hook = (*mockHook)(nil)
}

func TestStartDeliversEvents(t *testing.T) {
	hook := &mockHook{}
	n := New(hook, "fixture", zerolog.Nop())

	var calls atomic.Int32
	n.OnForegroundChanged(func() { calls.Add(1) })
	require.NoError(t, n.Start())

	hook.fire()
	hook.fire()
	hook.fire()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, hook.subscribes)
}

func TestStartTwice(t *testing.T) {
	hook := &mockHook{}
	n := New(hook, "fixture", zerolog.Nop())
	n.OnForegroundChanged(func() {})

	require.NoError(t, n.Start())
	err := n.Start()
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, 1, hook.subscribes, "only one process-wide subscription")
}

func TestStartWithoutCallback(t *testing.T) {
	n := New(&mockHook{}, "fixture", zerolog.Nop())
	assert.ErrorIs(t, n.Start(), ErrNoCallback)
}

func TestSubscriptionFailure(t *testing.T) {
	denied := errors.New("SetWinEventHook returned NULL")
	hook := &mockHook{subscribeErr: denied}
	n := New(hook, "win32", zerolog.Nop())
	n.OnForegroundChanged(func() {})

	err := n.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubscription)
	assert.ErrorIs(t, err, denied)

	var subErr *SubscriptionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "win32", subErr.Backend)
	assert.Equal(t, "win32 foreground change subscription failed: SetWinEventHook returned NULL", err.Error())

	// a failed start does not count as started
	hook.subscribeErr = nil
	assert.NoError(t, n.Start())
}

func TestCloseStopsDelivery(t *testing.T) {
	hook := &mockHook{}
	n := New(hook, "fixture", zerolog.Nop())

	var calls atomic.Int32
	n.OnForegroundChanged(func() { calls.Add(1) })
	require.NoError(t, n.Start())

	require.NoError(t, n.Close())
	hook.fire()
	assert.Zero(t, calls.Load())

	require.NoError(t, n.Close())
	assert.Equal(t, 1, hook.closes)
}

func TestCloseBeforeStart(t *testing.T) {
	hook := &mockHook{}
	n := New(hook, "fixture", zerolog.Nop())
	require.NoError(t, n.Close())
	assert.Zero(t, hook.closes)
}

func TestCloseError(t *testing.T) {
	hook := &mockHook{closeErr: errors.New("UnhookWinEvent failed")}
	n := New(hook, "win32", zerolog.Nop())
	n.OnForegroundChanged(func() {})
	require.NoError(t, n.Start())

	err := n.Close()
	assert.ErrorContains(t, err, "UnhookWinEvent failed")
}
