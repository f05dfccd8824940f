package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EWMH state change actions for _NET_WM_STATE client messages.
const (
	StateRemove = 0
	StateAdd    = 1
)

// Geometry is a window's position relative to the root and its size.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// ClientWindows returns the managed top-level windows that are normal
// application windows, in _NET_CLIENT_LIST order.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to read _NET_CLIENT_LIST: %w", err)
	}
	out := make([]xproto.Window, 0, len(clients))
	for _, id := range clients {
		if c.IsNormalWindow(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// WindowGeometry returns the window's root-relative position and size.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("get geometry of 0x%x: %w", uint32(windowID), err)
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("translate coordinates of 0x%x: %w", uint32(windowID), err)
	}

	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// WindowState returns the _NET_WM_STATE atom names set on the window. A
// window without the property has no state.
func (c *Connection) WindowState(windowID xproto.Window) ([]string, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return nil, nil
	}
	return states, nil
}

// ChangeState asks the window manager to add or remove one _NET_WM_STATE atom.
func (c *Connection) ChangeState(windowID xproto.Window, action int, atom string) error {
	if err := ewmh.WmStateReq(c.XUtil, windowID, action, atom); err != nil {
		return fmt.Errorf("change %s on 0x%x: %w", atom, uint32(windowID), err)
	}
	return nil
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, g Geometry) error {
	err := ewmh.MoveresizeWindow(c.XUtil, windowID, g.X, g.Y, g.Width, g.Height)
	if err != nil {
		// Not every WM honours the EWMH request.
		xwindow.New(c.XUtil, windowID).MoveResize(g.X, g.Y, g.Width, g.Height)
	}
	return nil
}

// Iconify asks the window manager to minimize the window via WM_CHANGE_STATE.
func (c *Connection) Iconify(windowID xproto.Window) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}

	return len(types) == 0
}
