package hotkeys

import (
	"fmt"
	"log"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/nog/internal/event"
	"github.com/1broseidon/nog/internal/script"
	"github.com/1broseidon/nog/internal/state"
)

const eventSource = "hotkey"

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Grabber installs and removes global key grabs.
type Grabber interface {
	Grab(keys string, onPress func()) error
	Ungrab(keys []string)
}

// Handler maps script keybindings to global hotkeys. A key press never calls
// into Lua; it queues an InvokeCallback event for the daemon's consumer.
type Handler struct {
	st      *state.State
	grabber Grabber

	mu    sync.Mutex
	bound []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler grabbing keys on the backend's root
// window. Backends without X11 access get a handler that binds nothing.
func NewHandler(backend any, st *state.State) *Handler {
	var g Grabber = noopGrabber{}
	if accessor, ok := backend.(x11Accessor); ok && accessor.XUtil() != nil {
		xu := accessor.XUtil()
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
		g = &x11Grabber{xu: xu, root: accessor.RootWindow()}
	}
	return NewHandlerWithGrabber(g, st)
}

// NewHandlerWithGrabber creates a handler on top of an arbitrary grabber.
func NewHandlerWithGrabber(g Grabber, st *state.State) *Handler {
	return &Handler{st: st, grabber: g}
}

// Rebind replaces every previously bound key with bindings. Bindings that
// fail to grab are logged and skipped.
func (h *Handler) Rebind(bindings []script.Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.bound) > 0 {
		h.grabber.Ungrab(h.bound)
		h.bound = nil
	}

	var failed int
	for _, b := range bindings {
		id := b.CallbackID
		keys := b.Keys
		err := h.grabber.Grab(keys, func() {
			if err := h.st.Sender().Send(event.Invoke(id, eventSource)); err != nil {
				log.Printf("Hotkey %s: failed to queue callback %d: %v", keys, id, err)
			}
		})
		if err != nil {
			log.Printf("Warning: Failed to register hotkey %s: %v", keys, err)
			failed++
			continue
		}
		h.bound = append(h.bound, keys)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d hotkeys could not be registered", failed, len(bindings))
	}
	return nil
}

// Bound returns the key sequences currently grabbed.
func (h *Handler) Bound() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.bound))
	copy(out, h.bound)
	return out
}

type x11Grabber struct {
	xu   *xgbutil.XUtil
	root xproto.Window
}

func (g *x11Grabber) Grab(keys string, onPress func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		onPress()
	}).Connect(g.xu, g.root, keys, true)
}

func (g *x11Grabber) Ungrab(keys []string) {
	for _, k := range keys {
		mods, codes, err := keybind.ParseString(g.xu, k)
		if err != nil {
			continue
		}
		for _, code := range codes {
			keybind.Ungrab(g.xu, g.root, mods, code)
		}
	}
	keybind.DetachPress(g.xu, g.root)
}

type noopGrabber struct{}

func (noopGrabber) Grab(string, func()) error { return nil }
func (noopGrabber) Ungrab([]string)           {}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
