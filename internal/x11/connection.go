package x11

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// ErrNoDisplay is returned when neither an explicit display nor $DISPLAY is set.
var ErrNoDisplay = errors.New("no X display: DISPLAY is not set")

// Connection is nog's handle on the X server. Snapshots, restores and key
// grabs all go through the one XUtil; the event loop dispatches key presses.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string

	quitOnce  sync.Once
	closeOnce sync.Once
}

// NewConnection connects to the display named by $DISPLAY.
func NewConnection() (*Connection, error) {
	return NewConnectionTo("")
}

// NewConnectionTo connects to display, or to $DISPLAY when display is empty,
// and prepares keybind for root-window grabs.
func NewConnectionTo(display string) (*Connection, error) {
	display, err := resolveDisplay(display)
	if err != nil {
		return nil, err
	}

	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", display, err)
	}
	keybind.Initialize(xu)

	return &Connection{
		XUtil:   xu,
		Root:    xu.RootWin(),
		Display: display,
	}, nil
}

func resolveDisplay(display string) (string, error) {
	if display != "" {
		return display, nil
	}
	if env := os.Getenv("DISPLAY"); env != "" {
		return env, nil
	}
	return "", ErrNoDisplay
}

// WindowManagerName reports the EWMH-compliant window manager on the display.
// Window capture relies on _NET_CLIENT_LIST and _NET_WM_STATE, so an error
// here means snapshots will be incomplete.
func (c *Connection) WindowManagerName() (string, error) {
	name, err := ewmh.GetEwmhWM(c.XUtil)
	if err != nil {
		return "", fmt.Errorf("no EWMH window manager on %s: %w", c.Display, err)
	}
	return name, nil
}

// EventLoop dispatches X events, key presses included, until Quit.
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit makes EventLoop return after the current event. Safe to call twice.
func (c *Connection) Quit() {
	c.quitOnce.Do(func() {
		xevent.Quit(c.XUtil)
	})
}

// Close disconnects from the X server. Restores must happen before Close.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.XUtil.Conn().Close()
	})
}
