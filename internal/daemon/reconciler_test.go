package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/nog/internal/window"
)

// stubSource captures every window as a 100x100 square at its id offset.
type stubSource struct{}

func (stubSource) CaptureWindow(id window.ID) (window.Snapshot, error) {
	return window.Snapshot{
		ID:           id,
		Name:         fmt.Sprintf("window-%d", id),
		OriginalRect: window.RectFromBounds(int(id), int(id), 100, 100),
	}, nil
}

// liveSource reports the current geometry of a mutable window set.
type liveSource struct {
	mu      sync.Mutex
	windows map[window.ID]window.Rect
	broken  map[window.ID]bool
}

func (s *liveSource) CaptureWindow(id window.ID) (window.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[id] {
		return window.Snapshot{}, errors.New("BadWindow")
	}
	r, ok := s.windows[id]
	if !ok {
		return window.Snapshot{}, errors.New("no such window")
	}
	return window.Snapshot{ID: id, OriginalRect: r}, nil
}

func (s *liveSource) list() ([]window.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []window.ID
	for id := range s.windows {
		ids = append(ids, id)
	}
	for id := range s.broken {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestReconcileNow_ManagesAndPrunes(t *testing.T) {
	src := &liveSource{
		windows: map[window.ID]window.Rect{
			1: window.RectFromBounds(0, 0, 640, 480),
			2: window.RectFromBounds(640, 0, 640, 480),
		},
		broken: map[window.ID]bool{9: true},
	}
	tracker := window.NewTracker()
	r := NewReconciler(ReconcilerConfig{Logger: quietLogger}, tracker, src, src.list)

	r.ReconcileNow()
	assert.Equal(t, []window.ID{1, 2}, tracker.IDs())

	// Moving a window does not touch its snapshot.
	src.mu.Lock()
	src.windows[1] = window.RectFromBounds(10, 10, 100, 100)
	delete(src.windows, 2)
	src.mu.Unlock()

	r.ReconcileNow()
	assert.Equal(t, []window.ID{1}, tracker.IDs())
	snap, ok := tracker.Get(1)
	require.True(t, ok)
	assert.Equal(t, window.RectFromBounds(0, 0, 640, 480), snap.OriginalRect)
}

func TestReconcileNow_ListErrorKeepsTracker(t *testing.T) {
	tracker := window.NewTracker()
	_, _, err := tracker.Manage(stubSource{}, 4)
	require.NoError(t, err)

	r := NewReconciler(ReconcilerConfig{Logger: quietLogger}, tracker, stubSource{}, func() ([]window.ID, error) {
		return nil, errors.New("display gone")
	})
	r.ReconcileNow()
	assert.Equal(t, 1, tracker.Len())
}

func TestReconcileNow_RecoversPanics(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{Logger: quietLogger}, window.NewTracker(), stubSource{}, func() ([]window.ID, error) {
		panic("boom")
	})
	assert.NotPanics(t, r.ReconcileNow)
}

func TestNewReconciler_DefaultInterval(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{}, window.NewTracker(), stubSource{}, nil)
	assert.Equal(t, 10*time.Second, r.interval)
	assert.NotNil(t, r.logger)
}

func TestReconciler_RunTicks(t *testing.T) {
	tracker := window.NewTracker()
	r := NewReconciler(ReconcilerConfig{Interval: 10 * time.Millisecond, Logger: quietLogger}, tracker, stubSource{}, func() ([]window.ID, error) {
		return []window.ID{7}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return tracker.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
