package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "ReloadConfig", ReloadConfig.String())
	assert.Equal(t, "InvokeCallback", InvokeCallback.String())
	assert.Equal(t, "Shutdown", Shutdown.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestChannel_SendRecv(t *testing.T) {
	c := NewChannel(4)
	require.NoError(t, c.Sender.Send(Reload("watcher")))

	ev, err := c.Receiver.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReloadConfig, ev.Kind)
	assert.Equal(t, "watcher", ev.Source)
}

func TestChannel_PerSenderOrder(t *testing.T) {
	c := NewChannel(0)
	s := c.Sender.Clone()
	for i := 1; i <= 10; i++ {
		require.NoError(t, s.Send(Invoke(i, "test")))
	}
	for i := 1; i <= 10; i++ {
		ev := <-c.Receiver.C()
		assert.Equal(t, i, ev.CallbackID)
	}
}

func TestChannel_MultipleProducers(t *testing.T) {
	c := NewChannel(1)
	const producers, perProducer = 4, 25

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		s := c.Sender.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = s.Send(Reload("producer"))
			}
		}()
	}

	got := 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for got < producers*perProducer {
		_, err := c.Receiver.Recv(ctx)
		require.NoError(t, err)
		got++
	}
	wg.Wait()
}

func TestChannel_SendAfterReceiverClosed(t *testing.T) {
	c := NewChannel(1)
	c.Receiver.Close()
	c.Receiver.Close()
	assert.True(t, c.Receiver.Closed())
	assert.ErrorIs(t, c.Sender.Send(Reload("x")), ErrReceiverClosed)
}

func TestChannel_BlockedSendUnblocksOnClose(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.Sender.Send(Reload("fill")))

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Sender.Send(Reload("blocked"))
	}()

	time.Sleep(20 * time.Millisecond)
	c.Receiver.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrReceiverClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not unblock after receiver closed")
	}
}

func TestRecv_ContextCancelled(t *testing.T) {
	c := NewChannel(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Receiver.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroSenderFails(t *testing.T) {
	var s Sender
	assert.ErrorIs(t, s.Send(Reload("x")), ErrReceiverClosed)
}
