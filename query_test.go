package chronicle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicledb/chronicle"
)

func newCounterQuery(
	log chronicle.EventLog,
) *chronicle.Query[*counterState] {
	return chronicle.NewQuery(log, newCounterProjector())
}

func TestQueryCurrentState(t *testing.T) {
	log := chronicle.NewMemoryLog(nil)
	query := newCounterQuery(log)
	ctx := context.Background()

	err := log.Append(ctx, "counter-1", chronicle.AnyVersion,
		[]*chronicle.Event{
			counterEvent(eventIncremented, 5),
			counterEvent(eventDecremented, 2),
		})
	require.NoError(t, err)

	proj, err := query.CurrentState(ctx, "counter-1")
	require.NoError(t, err)
	assert.Equal(t, 3, proj.State.Value)
	assert.Equal(t, int64(2), proj.Version)
}

func TestQueryUnknownEntityIsZeroState(t *testing.T) {
	query := newCounterQuery(chronicle.NewMemoryLog(nil))

	proj, err := query.CurrentState(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, proj.State.Value)
	assert.Equal(t, int64(0), proj.Version)
}

func TestQueryHistory(t *testing.T) {
	log := chronicle.NewMemoryLog(nil)
	query := newCounterQuery(log)
	ctx := context.Background()

	err := log.Append(ctx, "counter-1", chronicle.AnyVersion,
		[]*chronicle.Event{
			counterEvent(eventIncremented, 1),
			counterEvent(eventDecremented, 1),
			counterEvent(eventIncremented, 2),
		})
	require.NoError(t, err)

	history, err := query.History(ctx, "counter-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(1), history[0].Sequence)
	assert.Equal(t, int64(3), history[2].Sequence)

	increments, err := query.HistoryByKind(ctx, "counter-1",
		eventIncremented)
	require.NoError(t, err)
	require.Len(t, increments, 2)
	assert.Equal(t, int64(1), increments[0].Sequence)
	assert.Equal(t, int64(3), increments[1].Sequence)
}

func TestQueryFullLog(t *testing.T) {
	log := chronicle.NewMemoryLog(nil)
	query := newCounterQuery(log)
	ctx := context.Background()

	for _, id := range []chronicle.ID{"a", "b", "a"} {
		err := log.Append(ctx, id, chronicle.AnyVersion,
			[]*chronicle.Event{counterEvent(eventIncremented, 1)})
		require.NoError(t, err)
	}

	events, total, err := query.FullLog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}
}
