package chronicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicledb/chronicle"
)

func TestHubSubscribeAll(t *testing.T) {
	hub := chronicle.NewHub()
	sub := hub.Subscribe(4)
	defer sub.Close()

	hub.Publish(
		counterEvent(eventIncremented, 1),
		counterEvent(eventDecremented, 1),
	)

	assert.Equal(t, eventIncremented, (<-sub.Receive()).Type)
	assert.Equal(t, eventDecremented, (<-sub.Receive()).Type)
}

func TestHubSubscribeByKind(t *testing.T) {
	hub := chronicle.NewHub()
	sub := hub.Subscribe(4, eventDecremented)
	defer sub.Close()

	hub.Publish(
		counterEvent(eventIncremented, 1),
		counterEvent(eventDecremented, 2),
		counterEvent(eventIncremented, 3),
	)

	ev := <-sub.Receive()
	assert.Equal(t, eventDecremented, ev.Type)
	select {
	case extra := <-sub.Receive():
		t.Fatalf("unexpected event: %v", extra.Type)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := chronicle.NewHub()
	sub := hub.Subscribe(1)
	defer sub.Close()

	hub.Publish(
		counterEvent(eventIncremented, 1),
		counterEvent(eventIncremented, 2),
		counterEvent(eventIncremented, 3),
	)

	assert.Equal(t, int64(2), sub.Dropped())
	ev := <-sub.Receive()
	assert.Equal(t, eventIncremented, ev.Type)
}

func TestHubClose(t *testing.T) {
	hub := chronicle.NewHub()
	sub := hub.Subscribe(1)
	sub.Close()
	sub.Close() // idempotent

	// Publishing after close must not panic or deliver
	hub.Publish(counterEvent(eventIncremented, 1))
	_, ok := <-sub.Receive()
	assert.False(t, ok)
}

func TestMakeDispatcher(t *testing.T) {
	var incremented, other int

	dispatch := chronicle.MakeDispatcher(map[chronicle.EventType]chronicle.Handler{
		eventIncremented: chronicle.MakeHandler(
			func(_ *chronicle.Event, d deltaData) error {
				incremented += d.Delta
				return nil
			},
		),
		eventDecremented: func(*chronicle.Event) error {
			other++
			return nil
		},
	})

	require.NoError(t, dispatch(counterEvent(eventIncremented, 5)))
	require.NoError(t, dispatch(counterEvent(eventDecremented, 1)))
	require.NoError(t, dispatch(counterEvent(eventReset, 0)))

	assert.Equal(t, 5, incremented)
	assert.Equal(t, 1, other)
}
