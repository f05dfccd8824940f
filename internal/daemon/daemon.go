package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/nog/internal/event"
	"github.com/1broseidon/nog/internal/script"
	"github.com/1broseidon/nog/internal/state"
	"github.com/1broseidon/nog/internal/window"
)

// Binder applies script keybindings to the window system.
type Binder interface {
	Rebind(bindings []script.Binding) error
}

// Options wires the daemon's collaborators.
type Options struct {
	Runtime    *script.Runtime
	State      *state.State
	ConfigPath string
	Binder     Binder          // optional
	Restorer   window.Restorer // optional
	Logger     *slog.Logger
}

// Status is a point-in-time view of the daemon.
type Status struct {
	ConfigPath      string        `json:"config_path"`
	Uptime          time.Duration `json:"uptime"`
	Setup           bool          `json:"setup"`
	Callbacks       int           `json:"callbacks"`
	Bindings        int           `json:"bindings"`
	Windows         int           `json:"windows"`
	Reloads         int           `json:"reloads"`
	LastReloadError string        `json:"last_reload_error,omitempty"`
}

// Daemon is the single consumer of the shared event channel. It owns the
// order in which reloads and callback invocations reach the interpreter.
type Daemon struct {
	rt         *script.Runtime
	st         *state.State
	configPath string
	binder     Binder
	restorer   window.Restorer
	logger     *slog.Logger

	mu        sync.Mutex
	setupDone bool
	reloads   int
	lastErr   string
}

// New validates opts and creates a daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Runtime == nil {
		return nil, errors.New("daemon: runtime is required")
	}
	if opts.State == nil {
		return nil, errors.New("daemon: state is required")
	}
	if opts.ConfigPath == "" {
		return nil, errors.New("daemon: config path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		rt:         opts.Runtime,
		st:         opts.State,
		configPath: opts.ConfigPath,
		binder:     opts.Binder,
		restorer:   opts.Restorer,
		logger:     logger,
	}, nil
}

// LoadInitial executes the configuration for the first time. The script sees
// nog.is_setup() == false; the flag is set once a run has succeeded, so later
// reloads skip one-time setup. A script error is returned but is not fatal.
func (d *Daemon) LoadInitial() error {
	if err := d.rt.DisableSetup(); err != nil {
		return err
	}

	err := d.rt.ExecuteFile(d.configPath)
	d.recordResult(err)
	if err != nil {
		return err
	}
	if err := d.markSetup(); err != nil {
		return err
	}
	d.applyBindings()
	return nil
}

// Run drains the event channel until ctx is done or a Shutdown event
// arrives. The receiver is closed on return so producers see
// event.ErrReceiverClosed instead of blocking.
func (d *Daemon) Run(ctx context.Context) error {
	recv := d.st.EventChannel.Receiver
	defer recv.Close()

	d.logger.Info("event loop started", "config", d.configPath)
	for {
		ev, err := recv.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, event.ErrReceiverClosed) {
				d.logger.Info("event loop stopped")
				return nil
			}
			return err
		}
		if stop := d.handle(ev); stop {
			d.logger.Info("event loop stopped", "reason", "shutdown event")
			return nil
		}
	}
}

func (d *Daemon) handle(ev event.Event) (stop bool) {
	d.logger.Debug("event received", "kind", ev.Kind.String(), "source", ev.Source)

	switch ev.Kind {
	case event.ReloadConfig:
		d.reload()
	case event.InvokeCallback:
		if err := d.rt.InvokeCallback(ev.CallbackID); err != nil {
			// Script errors are already logged by the runtime.
			if errors.Is(err, script.ErrUnknownCallback) {
				d.logger.Warn("callback not registered", "id", ev.CallbackID, "source", ev.Source)
			}
		}
	case event.Shutdown:
		return true
	default:
		d.logger.Warn("unknown event", "kind", ev.Kind.String())
	}
	return false
}

func (d *Daemon) reload() {
	d.mu.Lock()
	firstRun := !d.setupDone
	d.mu.Unlock()

	// A configuration that never loaded successfully still owes its setup.
	if firstRun {
		if err := d.rt.DisableSetup(); err != nil {
			d.logger.Error("reload aborted", "error", err)
			return
		}
	}

	err := d.rt.Reload(d.configPath)
	d.recordResult(err)
	if err != nil {
		return
	}
	if firstRun {
		if err := d.markSetup(); err != nil {
			d.logger.Error("failed to mark setup done", "error", err)
		}
	}
	d.applyBindings()
}

func (d *Daemon) markSetup() error {
	if err := d.rt.EnableSetup(); err != nil {
		return err
	}
	d.mu.Lock()
	d.setupDone = true
	d.mu.Unlock()
	return nil
}

func (d *Daemon) recordResult(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	if err != nil {
		d.lastErr = script.ErrorMessage(err)
	} else {
		d.lastErr = ""
	}
}

func (d *Daemon) applyBindings() {
	if d.binder == nil {
		return
	}
	if err := d.binder.Rebind(d.rt.Bindings()); err != nil {
		d.logger.Warn("keybindings partially applied", "error", err)
	}
}

// RequestReload queues a ReloadConfig event.
func (d *Daemon) RequestReload(source string) error {
	return d.st.Sender().Send(event.Reload(source))
}

// RequestInvoke queues an InvokeCallback event.
func (d *Daemon) RequestInvoke(id int, source string) error {
	return d.st.Sender().Send(event.Invoke(id, source))
}

// RequestShutdown queues a Shutdown event.
func (d *Daemon) RequestShutdown(source string) error {
	return d.st.Sender().Send(event.Event{Kind: event.Shutdown, Source: source})
}

// Eval runs source in the live interpreter and returns the flattened script
// error, if any. Keybindings declared by the chunk are grabbed right away.
func (d *Daemon) Eval(name, source string) error {
	if name == "" {
		name = "eval"
	}
	before := d.rt.Bindings()
	if err := d.rt.ExecuteSource(name, source); err != nil {
		return err
	}
	if !slices.Equal(before, d.rt.Bindings()) {
		d.applyBindings()
	}
	return nil
}

// Callbacks lists registered callback identities.
func (d *Daemon) Callbacks() ([]int, error) {
	return d.rt.Callbacks()
}

// Bindings lists the keybindings declared by the configuration.
func (d *Daemon) Bindings() []script.Binding {
	return d.rt.Bindings()
}

// Windows returns the snapshots of managed windows.
func (d *Daemon) Windows() []window.Snapshot {
	return d.st.Windows.Snapshots()
}

// Status reports the daemon's current state.
func (d *Daemon) Status() Status {
	ids, _ := d.rt.Callbacks()
	setup, _ := d.rt.IsSetup()

	d.mu.Lock()
	reloads, lastErr := d.reloads, d.lastErr
	d.mu.Unlock()

	return Status{
		ConfigPath:      d.configPath,
		Uptime:          d.st.Uptime(),
		Setup:           setup,
		Callbacks:       len(ids),
		Bindings:        len(d.rt.Bindings()),
		Windows:         d.st.Windows.Len(),
		Reloads:         reloads,
		LastReloadError: lastErr,
	}
}

// RestoreAll releases every managed window and puts it back into its
// original state. It returns the number of windows restored.
func (d *Daemon) RestoreAll() (int, error) {
	if d.restorer == nil {
		return 0, nil
	}

	var (
		restored int
		errs     []error
	)
	for _, id := range d.st.Windows.IDs() {
		snap, ok := d.st.Windows.Release(id)
		if !ok {
			continue
		}
		if err := d.restorer.RestoreWindow(snap); err != nil {
			errs = append(errs, fmt.Errorf("restore window %d: %w", id, err))
			continue
		}
		restored++
	}
	if len(errs) > 0 {
		return restored, errors.Join(errs...)
	}
	d.logger.Info("windows restored", "count", restored)
	return restored, nil
}
