package chronicle

import (
	"context"

	"github.com/samber/lo"
)

// Query is the read-only facade over a log and a projector. Queries never
// mutate the log and never block appends beyond the log's own snapshot
// copy
type Query[T any] struct {
	log       EventLog
	projector *Projector[T]
}

func NewQuery[T any](log EventLog, p *Projector[T]) *Query[T] {
	return &Query[T]{
		log:       log,
		projector: p,
	}
}

// CurrentState projects the entity's full history. An entity with no
// events yields the zero state at version 0, indistinguishable from one
// that never existed; callers needing existence check Version
func (q *Query[T]) CurrentState(
	ctx context.Context, id ID,
) (*Projection[T], error) {
	evs, err := q.log.EventsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return q.projector.Project(evs)
}

// History returns the entity's events in ascending sequence order
func (q *Query[T]) History(ctx context.Context, id ID) ([]*Event, error) {
	return q.log.EventsFor(ctx, id)
}

// HistoryByKind returns the subset of the entity's history matching the
// given event kinds, order preserved
func (q *Query[T]) HistoryByKind(
	ctx context.Context, id ID, kinds ...EventType,
) ([]*Event, error) {
	evs, err := q.log.EventsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return evs, nil
	}
	return lo.Filter(evs, func(ev *Event, _ int) bool {
		return lo.Contains(kinds, ev.Type)
	}), nil
}

// FullLog returns every event in ascending sequence order along with the
// total count
func (q *Query[T]) FullLog(ctx context.Context) ([]*Event, int64, error) {
	evs, err := q.log.AllEvents(ctx)
	if err != nil {
		return nil, 0, err
	}
	return evs, int64(len(evs)), nil
}
