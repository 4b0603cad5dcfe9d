package chronicle

import "encoding/json"

// Recorder tracks events raised while a command runs, folding each into
// the command's working projection as it is raised. It is not safe for
// concurrent use
type Recorder[T any] struct {
	projector *Projector[T]
	proj      *Projection[T]
	id        ID
	enqueued  []*Event
}

func newRecorder[T any](
	id ID, p *Projector[T], proj *Projection[T],
) *Recorder[T] {
	return &Recorder[T]{
		projector: p,
		proj:      proj,
		id:        id,
		enqueued:  []*Event{},
	}
}

// ID returns the entity the command is addressed to
func (r *Recorder[_]) ID() ID {
	return r.id
}

// State returns the working state, including events raised so far
func (r *Recorder[T]) State() T {
	return r.proj.State
}

// Version returns the working projection's version
func (r *Recorder[_]) Version() int64 {
	return r.proj.Version
}

// Enqueued returns the events raised during the current command
func (r *Recorder[_]) Enqueued() []*Event {
	return r.enqueued
}

func (r *Recorder[T]) projection() *Projection[T] {
	return r.proj
}

func (r *Recorder[T]) raise(ev *Event) error {
	next, err := r.projector.fold(r.proj, []*Event{ev})
	if err != nil {
		return err
	}
	r.proj = next
	r.enqueued = append(r.enqueued, ev)
	return nil
}

// Raise marshals value and enqueues an event of the given kind on the
// Recorder. The log assigns Sequence and RecordedAt when the command's
// events are appended
func Raise[T, V any](r *Recorder[T], typ EventType, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.raise(&Event{
		EntityID: r.id,
		Type:     typ,
		Data:     data,
	})
}
