package state

import (
	"sync"
	"time"

	"github.com/1broseidon/nog/internal/event"
	"github.com/1broseidon/nog/internal/window"
)

// State is the process-wide container shared by the daemon's producers and
// its single event consumer. Fields are guarded by the embedded mutex; hold
// it only long enough to read or clone a field.
type State struct {
	sync.Mutex

	EventChannel *event.Channel
	Windows      *window.Tracker
	StartTime    time.Time
}

// New creates the shared state with an event channel of the given capacity.
func New(capacity int) *State {
	return &State{
		EventChannel: event.NewChannel(capacity),
		Windows:      window.NewTracker(),
		StartTime:    time.Now(),
	}
}

// Sender clones the event sender while holding the state lock.
func (s *State) Sender() event.Sender {
	s.Lock()
	defer s.Unlock()
	return s.EventChannel.Sender.Clone()
}

// Uptime returns the time elapsed since the state was created.
func (s *State) Uptime() time.Duration {
	s.Lock()
	start := s.StartTime
	s.Unlock()
	return time.Since(start)
}
