package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/nog/internal/window"
)

// WindowLister returns the ids of the windows that currently exist.
type WindowLister func() ([]window.ID, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically brings the window tracker in line with the
// window system: new windows are captured, vanished ones are released.
type Reconciler struct {
	interval    time.Duration
	tracker     *window.Tracker
	source      window.Source
	listWindows WindowLister
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, tracker *window.Tracker, source window.Source, listWindows WindowLister) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:    interval,
		tracker:     tracker,
		source:      source,
		listWindows: listWindows,
		logger:      logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}

func (r *Reconciler) reconcile() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	alive, err := r.listWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}

	for _, snap := range r.tracker.Prune(alive) {
		r.logger.Debug("reconciler: window gone", "window_id", snap.ID, "name", snap.Name)
	}

	for _, id := range alive {
		snap, captured, err := r.tracker.Manage(r.source, id)
		if err != nil {
			// Windows can disappear between listing and capture.
			r.logger.Debug("reconciler: capture failed", "window_id", id, "error", err)
			continue
		}
		if captured {
			r.logger.Info("window managed",
				"window_id", snap.ID,
				"name", snap.Name,
				"style", snap.OriginalStyle.String(),
				"rect", snap.OriginalRect.String())
		}
	}
}
