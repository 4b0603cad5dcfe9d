package chronicle

import (
	"context"
	"sync"
	"time"
)

// AnyVersion disables the version check on Append
const AnyVersion int64 = -1

type (
	// EventLog is the append-only, ordered store of events, partitioned
	// by entity. Append is the only mutator; events are never changed
	// or removed once stored
	EventLog interface {
		// Append stores evs, assigning each a process-wide strictly
		// increasing sequence number and a RecordedAt timestamp. The
		// assigned fields are written back to the given events. When
		// atVersion is not AnyVersion, the append succeeds only if the
		// entity currently has exactly atVersion events; otherwise a
		// *VersionConflictError is returned and nothing is stored
		Append(ctx context.Context, id ID, atVersion int64, evs []*Event) error

		// EventsFor returns the entity's events in ascending sequence
		// order; empty if the entity has no history
		EventsFor(ctx context.Context, id ID) ([]*Event, error)

		// AllEvents returns the full log in ascending sequence order
		AllEvents(ctx context.Context) ([]*Event, error)

		// Len returns the total number of events in the log
		Len(ctx context.Context) (int64, error)
	}

	// MemoryLog is the in-memory EventLog. A single mutex serializes
	// sequence assignment and storage, so no two appends observe the
	// same next sequence and readers never see a partial append. Reads
	// copy a consistent snapshot and do not block each other
	MemoryLog struct {
		mu     sync.RWMutex
		events []*Event
		byID   map[ID][]*Event
		hub    *Hub
	}
)

// NewMemoryLog creates an empty in-memory log. Appended events are
// published to hub when one is provided
func NewMemoryLog(hub *Hub) *MemoryLog {
	return &MemoryLog{
		byID: map[ID][]*Event{},
		hub:  hub,
	}
}

func (l *MemoryLog) Append(
	_ context.Context, id ID, atVersion int64, evs []*Event,
) error {
	if len(evs) == 0 {
		return nil
	}

	l.mu.Lock()
	current := int64(len(l.byID[id]))
	if atVersion != AnyVersion && atVersion != current {
		conflict := l.conflictLocked(id, atVersion, current)
		l.mu.Unlock()
		return conflict
	}

	now := time.Now()
	stored := make([]*Event, len(evs))
	for i, ev := range evs {
		ev.EntityID = id
		ev.Sequence = int64(len(l.events)) + 1
		ev.RecordedAt = now

		cl := *ev
		stored[i] = &cl
		l.events = append(l.events, &cl)
		l.byID[id] = append(l.byID[id], &cl)
	}
	l.mu.Unlock()

	if l.hub != nil {
		l.hub.Publish(stored...)
	}
	return nil
}

func (l *MemoryLog) conflictLocked(
	id ID, expected, actual int64,
) *VersionConflictError {
	conflict := &VersionConflictError{
		ExpectedVersion: expected,
		ActualVersion:   actual,
	}
	if expected >= 0 && expected < actual {
		conflict.NewEvents = copyEvents(l.byID[id][expected:])
	}
	return conflict
}

func (l *MemoryLog) EventsFor(_ context.Context, id ID) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyEvents(l.byID[id]), nil
}

func (l *MemoryLog) AllEvents(_ context.Context) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyEvents(l.events), nil
}

func (l *MemoryLog) Len(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.events)), nil
}

func copyEvents(evs []*Event) []*Event {
	out := make([]*Event, len(evs))
	copy(out, evs)
	return out
}
