package platform

import "github.com/1broseidon/nog/internal/window"

// Backend abstracts the window system for the daemon: it lists live
// windows, captures their original state and restores it on release.
type Backend interface {
	window.Source
	window.Restorer
	ListWindows() ([]window.ID, error)
}
