//go:build windows && (amd64 || arm64)

package win32

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	eventSystemForeground = 0x0003
	winEventOutOfContext  = 0x0000
	wmQuit                = 0x0012
	pmNoRemove            = 0x0000
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procSetWinEventHook    = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent     = user32.NewProc("UnhookWinEvent")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       struct{ x, y int32 }
	lPrivate uint32
}

// The callback trampoline is process-wide; NewCallback slots are never freed.
var (
	callbackOnce sync.Once
	callback     uintptr
	activeHook   atomic.Pointer[func()]
)

func winEventProc(hWinEventHook, event, hwnd, idObject, idChild, idEventThread, dwmsEventTime uintptr) uintptr {
	if h := activeHook.Load(); h != nil && event == eventSystemForeground {
		(*h)()
	}
	return 0
}

// hook owns an OS thread running a message loop, which is where
// out-of-context WinEvent callbacks are delivered
type hook struct {
	mu       sync.Mutex
	threadID uint32
	done     chan struct{}
	closed   bool
}

func (h *hook) Subscribe(handler func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("win32 hook closed")
	}
	if h.done != nil {
		return errors.New("win32 hook already subscribed")
	}

	callbackOnce.Do(func() {
		callback = windows.NewCallback(winEventProc)
	})

	ready := make(chan error, 1)
	done := make(chan struct{})
	go h.run(handler, ready, done)
	if err := <-ready; err != nil {
		return err
	}
	h.done = done
	return nil
}

func (h *hook) run(handler func(), ready chan<- error, done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	activeHook.Store(&handler)
	defer activeHook.Store(nil)

	handle, _, err := procSetWinEventHook.Call(
		eventSystemForeground, eventSystemForeground,
		0, callback, 0, 0, winEventOutOfContext)
	if handle == 0 {
		ready <- fmt.Errorf("SetWinEventHook: %w", err)
		return
	}
	defer procUnhookWinEvent.Call(handle)

	// Force creation of the thread message queue before Close can post to it
	var m msg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmNoRemove)

	h.threadID = windows.GetCurrentThreadId()
	ready <- nil

	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (h *hook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	done, threadID := h.done, h.threadID
	h.mu.Unlock()

	if done == nil {
		return nil
	}
	r, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}
	<-done
	return nil
}
