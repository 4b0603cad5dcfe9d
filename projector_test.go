package chronicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicledb/chronicle"
)

func TestProjectorZero(t *testing.T) {
	p := newCounterProjector()

	proj, err := p.Project(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, proj.State.Value)
	assert.Equal(t, int64(0), proj.Version)
}

func TestProjectorFold(t *testing.T) {
	p := newCounterProjector()
	events := []*chronicle.Event{
		counterEvent(eventIncremented, 5),
		counterEvent(eventIncremented, 3),
		counterEvent(eventDecremented, 2),
	}

	proj, err := p.Project(events)
	require.NoError(t, err)
	assert.Equal(t, 6, proj.State.Value)
	assert.Equal(t, int64(3), proj.Version)
}

func TestProjectorVersionCountsEveryKind(t *testing.T) {
	p := newCounterProjector()
	events := []*chronicle.Event{
		counterEvent(eventIncremented, 5),
		{Type: eventReset, Data: []byte(`{}`)},
		counterEvent(eventIncremented, 1),
	}

	proj, err := p.Project(events)
	require.NoError(t, err)
	assert.Equal(t, 1, proj.State.Value)
	assert.Equal(t, int64(3), proj.Version)
}

func TestProjectorIdempotentReplay(t *testing.T) {
	p := newCounterProjector()
	events := []*chronicle.Event{
		counterEvent(eventIncremented, 7),
		counterEvent(eventDecremented, 4),
	}

	first, err := p.Project(events)
	require.NoError(t, err)
	second, err := p.Project(events)
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.Version, second.Version)
}

func TestProjectorUnknownKind(t *testing.T) {
	p := newCounterProjector()
	events := []*chronicle.Event{
		counterEvent(eventIncremented, 5),
		{Type: "counter.exploded", Data: []byte(`{}`), Sequence: 2},
	}

	proj, err := p.Project(events)
	require.Error(t, err)
	assert.Nil(t, proj)

	var malformed *chronicle.MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, chronicle.EventType("counter.exploded"), malformed.Type)
	assert.Equal(t, int64(2), malformed.Sequence)
}

func TestProjectorBadPayload(t *testing.T) {
	p := newCounterProjector()
	events := []*chronicle.Event{
		{Type: eventIncremented, Data: []byte(`not json`), Sequence: 1},
	}

	_, err := p.Project(events)
	var malformed *chronicle.MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, eventIncremented, malformed.Type)
	assert.Error(t, malformed.Unwrap())
}

func TestMakeApplier(t *testing.T) {
	t.Run("unmarshals payload and applies", func(t *testing.T) {
		applier := chronicle.MakeApplier(
			func(s *counterState, _ *chronicle.Event, d deltaData) *counterState {
				return &counterState{Value: s.Value + d.Delta}
			},
		)

		next, err := applier(&counterState{Value: 10},
			counterEvent(eventIncremented, 42))
		require.NoError(t, err)
		assert.Equal(t, 52, next.Value)
	})

	t.Run("fails the fold on invalid payload", func(t *testing.T) {
		applier := chronicle.MakeApplier(
			func(s *counterState, _ *chronicle.Event, _ deltaData) *counterState {
				t.Fatal("applier must not run on invalid payload")
				return s
			},
		)

		initial := &counterState{Value: 10}
		next, err := applier(initial, &chronicle.Event{
			Type: eventIncremented,
			Data: []byte(`invalid json`),
		})
		require.Error(t, err)
		assert.Equal(t, initial, next)
	})
}
