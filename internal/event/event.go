package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrReceiverClosed is returned by Send once the consumer has shut down.
var ErrReceiverClosed = errors.New("event receiver closed")

// DefaultCapacity is the buffer size used when NewChannel is given a non-positive capacity.
const DefaultCapacity = 64

// Kind identifies the event variant.
type Kind int

const (
	// ReloadConfig asks the consumer to re-execute the user configuration.
	ReloadConfig Kind = iota + 1
	// InvokeCallback asks the consumer to call a registered script callback.
	InvokeCallback
	// Shutdown asks the consumer to stop draining events.
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case ReloadConfig:
		return "ReloadConfig"
	case InvokeCallback:
		return "InvokeCallback"
	case Shutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a tagged value placed on the shared channel.
type Event struct {
	Kind       Kind
	CallbackID int    // InvokeCallback only
	Source     string // producer tag, informational
}

// Reload builds a ReloadConfig event.
func Reload(source string) Event {
	return Event{Kind: ReloadConfig, Source: source}
}

// Invoke builds an InvokeCallback event.
func Invoke(id int, source string) Event {
	return Event{Kind: InvokeCallback, CallbackID: id, Source: source}
}

// Channel is a multi-producer, single-consumer event queue.
type Channel struct {
	Sender   Sender
	Receiver *Receiver
}

// NewChannel creates a channel with the given buffer capacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ch := make(chan Event, capacity)
	done := make(chan struct{})
	return &Channel{
		Sender:   Sender{ch: ch, done: done},
		Receiver: &Receiver{ch: ch, done: done},
	}
}

// Sender is the producer half. It is a small value; copies share the queue.
type Sender struct {
	ch   chan<- Event
	done <-chan struct{}
}

// Clone returns a sender for another producer.
func (s Sender) Clone() Sender {
	return s
}

// Send enqueues ev, blocking while the buffer is full. It fails with
// ErrReceiverClosed when the receiver is gone.
func (s Sender) Send(ev Event) error {
	if s.ch == nil {
		return ErrReceiverClosed
	}
	select {
	case <-s.done:
		return ErrReceiverClosed
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	case <-s.done:
		return ErrReceiverClosed
	}
}

// Receiver is the consumer half, owned by exactly one goroutine.
type Receiver struct {
	ch        <-chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// C exposes the underlying channel for select loops.
func (r *Receiver) C() <-chan Event {
	return r.ch
}

// Recv blocks until an event arrives or ctx is done.
func (r *Receiver) Recv(ctx context.Context) (Event, error) {
	select {
	case ev := <-r.ch:
		return ev, nil
	case <-r.done:
		return Event{}, ErrReceiverClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close marks the receiver as gone. Pending and future sends fail.
func (r *Receiver) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// Closed reports whether Close has been called.
func (r *Receiver) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
