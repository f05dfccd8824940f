package platform

import "github.com/1broseidon/nog/internal/window"

// stateAtoms maps _NET_WM_STATE atom names to style bits.
var stateAtoms = []struct {
	atom string
	flag window.Style
}{
	{"_NET_WM_STATE_MAXIMIZED_HORZ", window.StyleMaximizedHorz},
	{"_NET_WM_STATE_MAXIMIZED_VERT", window.StyleMaximizedVert},
	{"_NET_WM_STATE_FULLSCREEN", window.StyleFullscreen},
	{"_NET_WM_STATE_HIDDEN", window.StyleHidden},
	{"_NET_WM_STATE_ABOVE", window.StyleAbove},
	{"_NET_WM_STATE_BELOW", window.StyleBelow},
	{"_NET_WM_STATE_STICKY", window.StyleSticky},
	{"_NET_WM_STATE_SHADED", window.StyleShaded},
	{"_NET_WM_STATE_SKIP_TASKBAR", window.StyleSkipTaskbar},
	{"_NET_WM_STATE_SKIP_PAGER", window.StyleSkipPager},
	{"_NET_WM_STATE_MODAL", window.StyleModal},
	{"_NET_WM_STATE_DEMANDS_ATTENTION", window.StyleDemandsAttention},
}

// StyleFromStates folds _NET_WM_STATE atom names into a Style. Unknown atoms
// are ignored.
func StyleFromStates(states []string) window.Style {
	var s window.Style
	for _, name := range states {
		for _, a := range stateAtoms {
			if a.atom == name {
				s |= a.flag
				break
			}
		}
	}
	return s
}

// StateChanges lists the atoms to remove and add to turn current into want.
// Hidden is never returned as an add: the WM only honours iconify requests.
func StateChanges(current, want window.Style) (remove, add []string) {
	for _, a := range stateAtoms {
		has, needs := current.Has(a.flag), want.Has(a.flag)
		switch {
		case has && !needs:
			remove = append(remove, a.atom)
		case !has && needs && a.flag != window.StyleHidden:
			add = append(add, a.atom)
		}
	}
	return remove, add
}
