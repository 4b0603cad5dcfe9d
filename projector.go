package chronicle

type (
	// Constructor returns the zero state for an entity kind
	Constructor[T any] func() T

	// Projector folds ordered event sequences into point-in-time state
	// for one entity kind. It holds no state between calls; the same
	// input sequence always yields the same projection
	Projector[T any] struct {
		construct Constructor[T]
		appliers  Appliers[T]
	}

	// Projection is a state snapshot together with the number of events
	// folded to produce it. Version is usable as an optimistic
	// concurrency token: it equals the entity's event count
	Projection[T any] struct {
		State   T
		Version int64
	}
)

func NewProjector[T any](
	cons Constructor[T], apps Appliers[T],
) *Projector[T] {
	return &Projector[T]{
		construct: cons,
		appliers:  apps,
	}
}

// Zero returns the projection of an entity with no history
func (p *Projector[T]) Zero() *Projection[T] {
	return &Projection[T]{State: p.construct()}
}

// Project folds evs left-to-right from the zero state. Version counts
// every event folded, regardless of kind
func (p *Projector[T]) Project(evs []*Event) (*Projection[T], error) {
	return p.fold(p.Zero(), evs)
}

func (p *Projector[T]) fold(
	proj *Projection[T], evs []*Event,
) (*Projection[T], error) {
	state := proj.State
	version := proj.Version
	for _, ev := range evs {
		apply, ok := p.appliers[ev.Type]
		if !ok {
			return nil, &MalformedEventError{
				Type:     ev.Type,
				Sequence: ev.Sequence,
			}
		}
		next, err := apply(state, ev)
		if err != nil {
			return nil, &MalformedEventError{
				Err:      err,
				Type:     ev.Type,
				Sequence: ev.Sequence,
			}
		}
		state = next
		version++
	}
	return &Projection[T]{State: state, Version: version}, nil
}
