package window

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource models a live window whose state can change after capture.
type fakeSource struct {
	mu       sync.Mutex
	windows  map[ID]Snapshot
	captures int
	err      error
}

func newFakeSource() *fakeSource {
	return &fakeSource{windows: make(map[ID]Snapshot)}
}

func (f *fakeSource) set(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[s.ID] = s
}

func (f *fakeSource) CaptureWindow(id ID) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.err != nil {
		return Snapshot{}, f.err
	}
	s, ok := f.windows[id]
	if !ok {
		return Snapshot{}, errors.New("no such window")
	}
	return s, nil
}

func TestRect(t *testing.T) {
	r := RectFromBounds(10, 20, 800, 600)
	assert.Equal(t, Rect{Left: 10, Top: 20, Right: 810, Bottom: 620}, r)
	assert.Equal(t, 800, r.Width())
	assert.Equal(t, 600, r.Height())
	assert.Equal(t, "(10,20,810,620)", r.String())
}

func TestStyleString(t *testing.T) {
	tests := []struct {
		style Style
		want  string
	}{
		{0, "none"},
		{StyleFullscreen, "fullscreen"},
		{StyleMaximizedHorz | StyleMaximizedVert, "maximized_horz|maximized_vert"},
		{StyleAbove | StyleSkipTaskbar, "above|skip_taskbar"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.String())
		})
	}
}

func TestStyleHas(t *testing.T) {
	s := StyleMaximizedHorz | StyleSticky
	assert.True(t, s.Has(StyleSticky))
	assert.True(t, s.Has(StyleMaximizedHorz|StyleSticky))
	assert.False(t, s.Has(StyleMaximizedHorz|StyleMaximizedVert))
}

func TestCapture_ForcesRequestedID(t *testing.T) {
	src := newFakeSource()
	src.set(Snapshot{ID: 7, Name: "term"})

	snap, err := Capture(src, 7)
	require.NoError(t, err)
	assert.Equal(t, ID(7), snap.ID)
	assert.Equal(t, "term", snap.Name)

	_, err = Capture(nil, 7)
	assert.Error(t, err)
}

// The snapshot keeps the original rectangle after the live window moves.
func TestTracker_SnapshotSurvivesLiveChanges(t *testing.T) {
	src := newFakeSource()
	src.set(Snapshot{
		ID:            42,
		Name:          "editor",
		OriginalStyle: StyleMaximizedHorz,
		OriginalRect:  Rect{Left: 0, Top: 0, Right: 800, Bottom: 600},
	})

	tr := NewTracker()
	snap, captured, err := tr.Manage(src, 42)
	require.NoError(t, err)
	require.True(t, captured)

	src.set(Snapshot{
		ID:            42,
		Name:          "editor (moved)",
		OriginalStyle: StyleFullscreen,
		OriginalRect:  Rect{Left: 100, Top: 100, Right: 300, Bottom: 300},
	})

	again, captured, err := tr.Manage(src, 42)
	require.NoError(t, err)
	assert.False(t, captured)
	assert.Equal(t, 1, src.captures)

	stored, ok := tr.Get(42)
	require.True(t, ok)
	for _, s := range []Snapshot{snap, again, stored} {
		assert.Equal(t, Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}, s.OriginalRect)
		assert.Equal(t, StyleMaximizedHorz, s.OriginalStyle)
		assert.Equal(t, "editor", s.Name)
	}
}

func TestTracker_ReturnedCopiesAreIndependent(t *testing.T) {
	src := newFakeSource()
	src.set(Snapshot{ID: 1, OriginalRect: Rect{Right: 10, Bottom: 10}})

	tr := NewTracker()
	snap, _, err := tr.Manage(src, 1)
	require.NoError(t, err)

	snap.OriginalRect.Right = 9999
	stored, _ := tr.Get(1)
	assert.Equal(t, 10, stored.OriginalRect.Right)
}

func TestTracker_CaptureErrorDoesNotTrack(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("bad window")

	tr := NewTracker()
	_, _, err := tr.Manage(src, 3)
	require.Error(t, err)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ReleaseAndPrune(t *testing.T) {
	src := newFakeSource()
	for _, id := range []ID{5, 1, 3} {
		src.set(Snapshot{ID: id})
	}

	tr := NewTracker()
	for _, id := range []ID{5, 1, 3} {
		_, _, err := tr.Manage(src, id)
		require.NoError(t, err)
	}
	assert.Equal(t, []ID{1, 3, 5}, tr.IDs())

	snap, ok := tr.Release(3)
	require.True(t, ok)
	assert.Equal(t, ID(3), snap.ID)
	_, ok = tr.Release(3)
	assert.False(t, ok)

	pruned := tr.Prune([]ID{5})
	require.Len(t, pruned, 1)
	assert.Equal(t, ID(1), pruned[0].ID)
	assert.Equal(t, []ID{5}, tr.IDs())
	assert.Len(t, tr.Snapshots(), 1)
}

func TestTracker_ConcurrentManageCapturesOnce(t *testing.T) {
	src := newFakeSource()
	src.set(Snapshot{ID: 9, Name: "first"})

	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = tr.Manage(src, 9)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tr.Len())
	stored, _ := tr.Get(9)
	assert.Equal(t, "first", stored.Name)
}
