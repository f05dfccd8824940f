// Package hotreload watches the configuration script and asks the daemon to
// reload it after the file has been written.
package hotreload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/nog/internal/event"
	"github.com/1broseidon/nog/internal/paths"
	"github.com/1broseidon/nog/internal/state"
)

// DefaultDebounce is the quiet period after the last write before a reload is
// requested. Editors often save in several writes.
const DefaultDebounce = 10 * time.Millisecond

const eventSource = "hotreload"

var (
	// ErrConfigDir means the configuration directory could not be resolved.
	ErrConfigDir = errors.New("cannot resolve configuration directory")

	// ErrSendFailed means the event consumer is gone. The watcher stops.
	ErrSendFailed = errors.New("failed to send reload event")
)

// Watcher turns completed writes of the configuration file into
// ReloadConfig events on the shared event channel.
type Watcher struct {
	st       *state.State
	path     string
	name     string
	debounce time.Duration
	logger   *slog.Logger

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPath watches path instead of the default configuration file.
func WithPath(path string) Option {
	return func(w *Watcher) {
		w.path = path
	}
}

// WithDebounce sets the quiet period. Zero sends one event per write.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New resolves the configuration file and starts watching its directory.
// Directory watching catches editors that replace the file on save.
func New(st *state.State, opts ...Option) (*Watcher, error) {
	if st == nil {
		return nil, errors.New("hotreload: nil state")
	}

	w := &Watcher{
		st:       st,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.path == "" {
		path, err := paths.ConfigFile()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigDir, err)
		}
		w.path = path
	}
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", w.path, err)
	}
	w.path = abs
	w.name = filepath.Base(abs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w.fsw = fsw

	return w, nil
}

// Start creates a watcher and runs it in the background until ctx is done.
// A Run failure is logged; the daemon keeps running without hot reload.
func Start(ctx context.Context, st *state.State, opts ...Option) (*Watcher, error) {
	w, err := New(st, opts...)
	if err != nil {
		return nil, err
	}

	go func() {
		defer w.Close()
		if err := w.Run(ctx); err != nil {
			w.logger.Error("config watcher stopped", "path", w.path, "error", err)
		}
	}()

	w.logger.Info("watching configuration", "path", w.path)
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Run processes file events until ctx is done or the watcher is closed.
// It returns ErrSendFailed if the event consumer has gone away.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("config file changed", "path", w.path, "op", ev.Op.String())
			if w.debounce == 0 {
				if err := w.requestReload(); err != nil {
					return err
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.requestReload(); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "path", w.path, "error", err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

// relevant reports whether ev means the watched file finished being written.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.name {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (w *Watcher) requestReload() error {
	sender := w.st.Sender()
	if err := sender.Send(event.Reload(eventSource)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	w.logger.Debug("reload requested", "path", w.path)
	return nil
}
