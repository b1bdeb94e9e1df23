package x11

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"WM_NAME",
	"UTF8_STRING",
}

// maxPropertyLength is in 32-bit units
const maxPropertyLength = 256

type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func newClient(display string) (*client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	c := &client{
		conn:  conn,
		root:  root,
		atoms: make(map[string]xproto.Atom),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		c.atoms[name] = reply.Atom
	}

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) getProperty(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *client) activeWindowFromProperty() (xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		return 0, err
	}
	return decodeWindow(data), nil
}

func (c *client) activeWindowFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil || reply.Focus == c.root {
		return 0
	}
	return c.topLevelParent(reply.Focus)
}

func (c *client) topLevelParent(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

// activeWindow prefers the EWMH property and falls back to the input focus
// for window managers that do not maintain it
func (c *client) activeWindow() (xproto.Window, error) {
	win, err := c.activeWindowFromProperty()
	if err != nil {
		return 0, fmt.Errorf("failed to read _NET_ACTIVE_WINDOW: %w", err)
	}
	if win != 0 {
		return win, nil
	}
	return c.activeWindowFromInputFocus(), nil
}

func (c *client) windowName(win xproto.Window) (string, error) {
	data, err := c.getProperty(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], maxPropertyLength)
	if err != nil {
		return "", fmt.Errorf("failed to read window name: %w", err)
	}
	if name := propertyString(data); name != "" {
		return name, nil
	}

	data, err = c.getProperty(win, c.atoms["WM_NAME"], xproto.AtomString, maxPropertyLength)
	if err != nil {
		return "", fmt.Errorf("failed to read window name: %w", err)
	}
	return propertyString(data), nil
}

func (c *client) children(win xproto.Window) ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(c.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}
	return reply.Children, nil
}

// decodeWindow reads a WINDOW property value. X11 clients receive
// properties in the server's byte order, which xgb always negotiates as
// little endian.
func decodeWindow(data []byte) xproto.Window {
	if len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func propertyString(data []byte) string {
	return strings.TrimRight(string(data), "\x00")
}
