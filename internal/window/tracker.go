package window

import (
	"sort"
	"sync"
)

// Tracker holds the snapshots of every managed window. A window is captured
// exactly once, the first time it is managed.
type Tracker struct {
	mu        sync.RWMutex
	snapshots map[ID]Snapshot
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{snapshots: make(map[ID]Snapshot)}
}

// Manage starts tracking id. The first call captures the window through src;
// later calls return the stored snapshot and captured=false.
func (t *Tracker) Manage(src Source, id ID) (snap Snapshot, captured bool, err error) {
	t.mu.RLock()
	existing, ok := t.snapshots[id]
	t.mu.RUnlock()
	if ok {
		return existing, false, nil
	}

	// Capture talks to the display server, so it runs outside the lock.
	fresh, err := Capture(src, id)
	if err != nil {
		return Snapshot{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.snapshots[id]; ok {
		return existing, false, nil
	}
	t.snapshots[id] = fresh
	return fresh, true, nil
}

// Get returns the snapshot for id.
func (t *Tracker) Get(id ID) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap, ok := t.snapshots[id]
	return snap, ok
}

// Release stops tracking id and returns its snapshot for restoration.
func (t *Tracker) Release(id ID) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap, ok := t.snapshots[id]
	if ok {
		delete(t.snapshots, id)
	}
	return snap, ok
}

// IDs returns the tracked window IDs in ascending order.
func (t *Tracker) IDs() []ID {
	t.mu.RLock()
	ids := make([]ID, 0, len(t.snapshots))
	for id := range t.snapshots {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshots returns copies of all tracked snapshots ordered by ID.
func (t *Tracker) Snapshots() []Snapshot {
	ids := t.IDs()
	out := make([]Snapshot, 0, len(ids))
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range ids {
		if snap, ok := t.snapshots[id]; ok {
			out = append(out, snap)
		}
	}
	return out
}

// Len returns the number of tracked windows.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.snapshots)
}

// Prune releases every tracked window that is not in alive and returns the
// released snapshots ordered by ID.
func (t *Tracker) Prune(alive []ID) []Snapshot {
	keep := make(map[ID]bool, len(alive))
	for _, id := range alive {
		keep[id] = true
	}

	t.mu.Lock()
	var pruned []Snapshot
	for id, snap := range t.snapshots {
		if !keep[id] {
			pruned = append(pruned, snap)
			delete(t.snapshots, id)
		}
	}
	t.mu.Unlock()

	sort.Slice(pruned, func(i, j int) bool { return pruned[i].ID < pruned[j].ID })
	return pruned
}
