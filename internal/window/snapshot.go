package window

import (
	"fmt"
	"strings"
)

// ID is a native window handle assigned by the display server.
type ID uint32

// Rect is a window bounding rectangle in screen coordinates.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// RectFromBounds converts an origin plus size into a Rect.
func RectFromBounds(x, y, width, height int) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

func (r Rect) Width() int {
	return r.Right - r.Left
}

func (r Rect) Height() int {
	return r.Bottom - r.Top
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Style holds window appearance/behavior bit flags.
type Style uint32

const (
	StyleMaximizedHorz Style = 1 << iota
	StyleMaximizedVert
	StyleFullscreen
	StyleHidden
	StyleAbove
	StyleBelow
	StyleSticky
	StyleShaded
	StyleSkipTaskbar
	StyleSkipPager
	StyleModal
	StyleDemandsAttention
)

var styleNames = []struct {
	flag Style
	name string
}{
	{StyleMaximizedHorz, "maximized_horz"},
	{StyleMaximizedVert, "maximized_vert"},
	{StyleFullscreen, "fullscreen"},
	{StyleHidden, "hidden"},
	{StyleAbove, "above"},
	{StyleBelow, "below"},
	{StyleSticky, "sticky"},
	{StyleShaded, "shaded"},
	{StyleSkipTaskbar, "skip_taskbar"},
	{StyleSkipPager, "skip_pager"},
	{StyleModal, "modal"},
	{StyleDemandsAttention, "demands_attention"},
}

// Has reports whether every bit of flag is set.
func (s Style) Has(flag Style) bool {
	return s&flag == flag
}

func (s Style) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range styleNames {
		if s.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Snapshot records a window's identity and its OS state at the moment it was
// first managed. Snapshots are values: copies handed out by a Tracker never
// observe later changes to the live window.
type Snapshot struct {
	ID            ID
	Name          string
	OriginalStyle Style
	OriginalRect  Rect
}

// Source captures the current state of a live window.
type Source interface {
	CaptureWindow(id ID) (Snapshot, error)
}

// Restorer applies a snapshot's original style and geometry back to a live window.
type Restorer interface {
	RestoreWindow(s Snapshot) error
}

// Capture reads the live state of id from src. The returned snapshot always
// carries id, even if the source reports a different one.
func Capture(src Source, id ID) (Snapshot, error) {
	if src == nil {
		return Snapshot{}, fmt.Errorf("capture window %d: no window source", id)
	}
	snap, err := src.CaptureWindow(id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture window %d: %w", id, err)
	}
	snap.ID = id
	return snap, nil
}
