package chronicle_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chronicledb/chronicle"
)

// memoryArchiver collects archived events for inspection
type memoryArchiver struct {
	mu     sync.Mutex
	events []*chronicle.Event
}

func (a *memoryArchiver) Archive(
	_ context.Context, evs []*chronicle.Event,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, evs...)
	return nil
}

func (a *memoryArchiver) Events(
	_ context.Context, id chronicle.ID,
) ([]*chronicle.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []*chronicle.Event
	for _, ev := range a.events {
		if ev.EntityID == id {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (a *memoryArchiver) Close() error {
	return nil
}

func (a *memoryArchiver) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

func TestArchiveWorkerDrainsHub(t *testing.T) {
	hub := chronicle.NewHub()
	archiver := &memoryArchiver{}

	worker := chronicle.NewArchiveWorker(
		archiver, hub, zap.NewNop(), chronicle.DefaultArchiveConfig(),
	)
	defer worker.Stop()

	log := chronicle.NewMemoryLog(hub)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := log.Append(ctx, "counter-1", chronicle.AnyVersion,
			[]*chronicle.Event{counterEvent(eventIncremented, 1)})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return archiver.count() == 5
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), worker.Dropped())
}

func TestBoltArchiver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	archiver, err := chronicle.NewBoltArchiver(path)
	require.NoError(t, err)
	defer func() { _ = archiver.Close() }()

	ctx := context.Background()
	first := counterEvent(eventIncremented, 5)
	first.EntityID = "counter-1"
	first.Sequence = 1
	second := counterEvent(eventDecremented, 2)
	second.EntityID = "counter-1"
	second.Sequence = 2
	other := counterEvent(eventIncremented, 9)
	other.EntityID = "counter-2"
	other.Sequence = 3

	// Written out of order; reads come back in sequence order
	require.NoError(t, archiver.Archive(ctx, []*chronicle.Event{second}))
	require.NoError(t, archiver.Archive(ctx,
		[]*chronicle.Event{first, other}))

	events, err := archiver.Events(ctx, "counter-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Sequence)
	assert.Equal(t, int64(2), events[1].Sequence)
	assert.Equal(t, eventIncremented, events[0].Type)

	none, err := archiver.Events(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBoltArchiverEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	archiver, err := chronicle.NewBoltArchiver(path)
	require.NoError(t, err)
	defer func() { _ = archiver.Close() }()

	hub := chronicle.NewHub()
	worker := chronicle.NewArchiveWorker(
		archiver, hub, zap.NewNop(), chronicle.DefaultArchiveConfig(),
	)
	defer worker.Stop()

	log := chronicle.NewMemoryLog(hub)
	ctx := context.Background()
	err = log.Append(ctx, "counter-1", chronicle.AnyVersion,
		[]*chronicle.Event{
			counterEvent(eventIncremented, 5),
			counterEvent(eventDecremented, 2),
		})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, err := archiver.Events(ctx, "counter-1")
		return err == nil && len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
