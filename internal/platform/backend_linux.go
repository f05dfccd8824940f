//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"

	"github.com/1broseidon/nog/internal/window"
	"github.com/1broseidon/nog/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// WindowManagerName reports the running EWMH window manager.
func (b *LinuxBackend) WindowManagerName() (string, error) {
	conn, err := b.connection()
	if err != nil {
		return "", err
	}
	return conn.WindowManagerName()
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// ListWindows returns the ids of normal client windows, sorted.
func (b *LinuxBackend) ListWindows() ([]window.ID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}

	ids := make([]window.ID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, window.ID(c))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// CaptureWindow reads the window's current state bits and bounding rectangle.
func (b *LinuxBackend) CaptureWindow(id window.ID) (window.Snapshot, error) {
	conn, err := b.connection()
	if err != nil {
		return window.Snapshot{}, err
	}

	xid := xproto.Window(id)
	geom, err := conn.WindowGeometry(xid)
	if err != nil {
		return window.Snapshot{}, err
	}
	states, err := conn.WindowState(xid)
	if err != nil {
		return window.Snapshot{}, err
	}

	return window.Snapshot{
		ID:            id,
		Name:          conn.WindowTitle(xid),
		OriginalStyle: StyleFromStates(states),
		OriginalRect:  window.RectFromBounds(geom.X, geom.Y, geom.Width, geom.Height),
	}, nil
}

// RestoreWindow puts the window back into its captured state. States the
// window gained since capture are dropped before the geometry is applied,
// so a maximized window does not swallow the move.
func (b *LinuxBackend) RestoreWindow(s window.Snapshot) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	xid := xproto.Window(s.ID)
	states, err := conn.WindowState(xid)
	if err != nil {
		return err
	}
	current := StyleFromStates(states)
	remove, add := StateChanges(current, s.OriginalStyle)

	for _, atom := range remove {
		if err := conn.ChangeState(xid, x11.StateRemove, atom); err != nil {
			return err
		}
	}

	r := s.OriginalRect
	if r.Width() > 0 && r.Height() > 0 {
		if err := conn.MoveResizeWindow(xid, x11.Geometry{
			X:      r.Left,
			Y:      r.Top,
			Width:  r.Width(),
			Height: r.Height(),
		}); err != nil {
			return err
		}
	}

	for _, atom := range add {
		if err := conn.ChangeState(xid, x11.StateAdd, atom); err != nil {
			return err
		}
	}

	if s.OriginalStyle.Has(window.StyleHidden) && !current.Has(window.StyleHidden) {
		return conn.Iconify(xid)
	}
	return nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
