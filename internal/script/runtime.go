// Package script embeds the Lua interpreter that runs the user configuration.
//
// gopher-lua's LState is not goroutine-safe. Runtime owns exactly one LState
// and every method that touches it holds the runtime mutex for the whole
// operation, so concurrent callers run strictly one after another.
package script

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/1broseidon/nog/internal/window"
)

// Names of the bootstrap globals.
const (
	GlobalTable   = "nog"
	CallbackTable = "__callbacks"
	SetupField    = "__is_setup"
)

// Binding associates a key sequence with a registered callback.
type Binding struct {
	Keys       string
	CallbackID int
}

// WindowLister returns the snapshots of currently managed windows.
type WindowLister func() []window.Snapshot

// Runtime is the shared handle to the interpreter.
type Runtime struct {
	mu     sync.Mutex
	state  *lua.LState
	closed bool

	// Keybindings declared by the script. Mutated only while mu is held.
	bindings []Binding

	logger  *slog.Logger
	out     io.Writer
	windows WindowLister
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the diagnostic sink.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutput sets the console stream used by PrintCallbacks.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		if w != nil {
			r.out = w
		}
	}
}

// WithWindows exposes managed windows to scripts through nog.windows().
func WithWindows(fn WindowLister) Option {
	return func(r *Runtime) {
		r.windows = fn
	}
}

// New creates a runtime with the full standard library and the nog bootstrap
// table installed.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.state = lua.NewState()
	r.installGlobals(r.state)
	return r
}

// Do runs fn with exclusive access to the interpreter. fn must not call back
// into the Runtime.
func (r *Runtime) Do(fn func(L *lua.LState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	return protect(func() error {
		return fn(r.state)
	})
}

// ExecuteSource runs source under the diagnostic name. Script errors are
// logged and returned as *Error; they never abort the process.
func (r *Runtime) ExecuteSource(name, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.executeLocked(name, source)
}

func (r *Runtime) executeLocked(name, source string) error {
	if r.closed {
		return ErrClosed
	}

	err := protect(func() error {
		fn, err := r.state.Load(strings.NewReader(source), name)
		if err != nil {
			return err
		}
		return r.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
	if err != nil {
		return r.report(name, err)
	}
	return nil
}

// ExecuteFile reads path and executes it with the path as diagnostic name.
// The file is read before the interpreter lock is taken.
func (r *Runtime) ExecuteFile(path string) error {
	name := displayName(path)
	r.logger.Debug("executing", "path", name)

	content, err := os.ReadFile(path)
	if err != nil {
		r.logger.Error("failed to read script", "path", name, "error", err)
		return fmt.Errorf("read %s: %w", name, err)
	}

	err = r.ExecuteSource(name, string(content))
	r.logger.Debug("finished execution", "path", name)
	return err
}

// Reload re-executes the configuration at path from scratch. The callback
// registry and keybindings are cleared first; if the script fails they are
// restored to what they were before the attempt.
func (r *Runtime) Reload(path string) error {
	name := displayName(path)

	content, err := os.ReadFile(path)
	if err != nil {
		r.logger.Error("failed to read script", "path", name, "error", err)
		return fmt.Errorf("read %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	nog, err := nogTable(r.state)
	if err != nil {
		return err
	}
	cbs, err := callbackTable(r.state)
	if err != nil {
		return err
	}
	savedNog := tableEntries(nog)
	saved := tableEntries(cbs)
	savedBindings := r.bindings

	clearTable(cbs)
	r.bindings = nil

	if err := r.executeLocked(name, string(content)); err != nil {
		restoreTable(nog, savedNog)
		r.state.SetGlobal(GlobalTable, nog)
		restoreTable(cbs, saved)
		r.bindings = savedBindings
		r.logger.Warn("reload failed, keeping previous callbacks",
			"path", name,
			"callbacks", len(saved))
		return err
	}

	r.logger.Info("configuration reloaded",
		"path", name,
		"callbacks", rawLen(cbs),
		"bindings", len(r.bindings))
	return nil
}

// restoreTable puts t back to exactly the saved entries. The failed script
// may have replaced nog or nog.__callbacks; the saved nog entries still point
// at the original registry table.
func restoreTable(t *lua.LTable, saved []tableEntry) {
	clearTable(t)
	for _, e := range saved {
		t.RawSet(e.key, e.value)
	}
}

// InvokeCallback calls the callback registered under id with args.
func (r *Runtime) InvokeCallback(id int, args ...lua.LValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	var fn *lua.LFunction
	err := protect(func() error {
		var err error
		fn, err = GetCallback(r.state, id)
		return err
	})
	if err != nil {
		return err
	}

	err = protect(func() error {
		return r.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
	if err != nil {
		return r.report(fmt.Sprintf("callback %d", id), err)
	}
	return nil
}

// EnableSetup marks one-time setup as done for the configuration script.
func (r *Runtime) EnableSetup() error {
	return r.setSetup(true)
}

// DisableSetup clears the setup flag.
func (r *Runtime) DisableSetup() error {
	return r.setSetup(false)
}

func (r *Runtime) setSetup(v bool) error {
	return r.Do(func(L *lua.LState) error {
		nog, err := nogTable(L)
		if err != nil {
			return err
		}
		nog.RawSetString(SetupField, lua.LBool(v))
		return nil
	})
}

// IsSetup reports the current setup flag.
func (r *Runtime) IsSetup() (bool, error) {
	var v bool
	err := r.Do(func(L *lua.LState) error {
		var err error
		v, err = isSetup(L)
		return err
	})
	return v, err
}

func isSetup(L *lua.LState) (bool, error) {
	nog, err := nogTable(L)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(nog.RawGetString(SetupField)), nil
}

// Bindings returns the keybindings declared by the last successful run.
func (r *Runtime) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Close releases the interpreter. Later calls fail with ErrClosed.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.state.Close()
	r.closed = true
}

func (r *Runtime) report(name string, err error) error {
	msg := ErrorMessage(err)
	r.logger.Error("script error", "chunk", name, "error", msg)
	return &Error{Name: name, Message: msg, Err: err}
}

// protect turns Go panics raised while running Lua into errors.
func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if apiErr, ok := rec.(*lua.ApiError); ok {
				err = apiErr
				return
			}
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()
	return fn()
}

func displayName(path string) string {
	return filepath.Clean(path)
}
