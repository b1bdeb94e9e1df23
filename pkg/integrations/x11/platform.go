// Package x11 implements window.Platform with the X11 protocol. The
// foreground window is read from _NET_ACTIVE_WINDOW and the window
// hierarchy stands in for the accessibility tree.
package x11

import (
	"errors"
	"os"
	"sync"

	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/pkg/automation"
	"github.com/iconwatch/iconwatch/pkg/window"
)

// BackendName identifies the X11 backend
const BackendName = "x11"

// Platform implements window.Platform for X11
type Platform struct {
	display string
	client  *client
	hook    *hook
	log     zerolog.Logger
}

// IsAvailable reports whether an X display is configured
func IsAvailable() bool {
	return os.Getenv("DISPLAY") != ""
}

// New connects to the X server named by display, or $DISPLAY when empty
func New(display string, logger zerolog.Logger) (*Platform, error) {
	c, err := newClient(display)
	if err != nil {
		return nil, err
	}
	return &Platform{
		display: display,
		client:  c,
		hook:    &hook{display: display, log: logger},
		log:     logger,
	}, nil
}

func (p *Platform) ForegroundWindow() (window.Handle, error) {
	win, err := p.client.activeWindow()
	if err != nil {
		return window.NoHandle, err
	}
	return window.Handle(win), nil
}

func (p *Platform) WindowText(h window.Handle, maxChars int) (string, error) {
	if h == window.NoHandle {
		return "", nil
	}
	name, err := p.client.windowName(xproto.Window(h))
	if err != nil {
		return "", err
	}
	r := []rune(name)
	if maxChars >= 0 && len(r) > maxChars {
		return string(r[:maxChars]), nil
	}
	return name, nil
}

func (p *Platform) Hook() window.Hook {
	return p.hook
}

func (p *Platform) Tree() automation.Tree {
	return tree{p.client}
}

func (p *Platform) Name() string {
	return BackendName
}

func (p *Platform) Close() error {
	err := p.hook.Close()
	p.client.close()
	return err
}

type tree struct {
	c *client
}

func (t tree) Root() (automation.Element, error) {
	return &element{c: t.c, win: t.c.root}, nil
}

// element is an X window named by its title
type element struct {
	c   *client
	win xproto.Window
}

func (e *element) Name() (string, error) {
	return e.c.windowName(e.win)
}

func (e *element) FindFirstChildByName(name string) (automation.Element, error) {
	children, err := e.c.children(e.win)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		childName, err := e.c.windowName(child)
		if err != nil {
			// The window may have been destroyed since QueryTree
			continue
		}
		if childName == name {
			return &element{c: e.c, win: child}, nil
		}
	}
	return nil, automation.ErrElementNotFound
}

func (e *element) FindAllChildren() ([]automation.Element, error) {
	children, err := e.c.children(e.win)
	if err != nil {
		return nil, err
	}
	out := make([]automation.Element, 0, len(children))
	for _, child := range children {
		out = append(out, &element{c: e.c, win: child})
	}
	return out, nil
}

func (e *element) Release() {}

// hook listens for _NET_ACTIVE_WINDOW changes on its own connection so event
// reads never compete with queries
type hook struct {
	display string
	log     zerolog.Logger

	mu     sync.Mutex
	conn   *client
	done   chan struct{}
	closed bool
}

func (h *hook) Subscribe(handler func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("x11 hook closed")
	}
	if h.conn != nil {
		return errors.New("x11 hook already subscribed")
	}

	c, err := newClient(h.display)
	if err != nil {
		return err
	}

	err = xproto.ChangeWindowAttributesChecked(c.conn, c.root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		c.close()
		return err
	}

	h.conn = c
	h.done = make(chan struct{})
	go h.loop(c, handler, h.done)
	return nil
}

func (h *hook) loop(c *client, handler func(), done chan struct{}) {
	defer close(done)
	active := c.atoms["_NET_ACTIVE_WINDOW"]
	for {
		ev, err := c.conn.WaitForEvent()
		if ev == nil && err == nil {
			// Connection closed
			return
		}
		if err != nil {
			h.log.Debug().Err(err).Msg("X11 event error")
			continue
		}
		if pn, ok := ev.(xproto.PropertyNotifyEvent); ok && pn.Atom == active {
			handler()
		}
	}
}

func (h *hook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	c, done := h.conn, h.done
	h.mu.Unlock()

	if c != nil {
		c.close()
		<-done
	}
	return nil
}
