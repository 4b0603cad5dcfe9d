package chronicle

import (
	"context"
	"errors"
)

type (
	// Executor turns commands into events. A command validates against a
	// projection of the entity's current history and raises zero or more
	// events; the resulting append is conditional on the version the
	// projection was computed at, so a concurrent append forces a
	// re-validation instead of a lost update. Conflicts are retried up
	// to MaxRetries before ErrBusy is surfaced
	Executor[T any] struct {
		log        EventLog
		projector  *Projector[T]
		cache      *lruCache[*Projection[T]]
		maxRetries int
	}

	// Command inspects state and raises events through the Recorder.
	// Returning an error rejects the command; nothing is appended
	Command[T any] func(T, *Recorder[T]) error

	// Outcome reports the result of a successful command: the state and
	// version after the raised events, and the events themselves with
	// their assigned sequence numbers
	Outcome[T any] struct {
		State   T
		Events  []*Event
		Version int64
	}
)

func NewExecutor[T any](
	log EventLog, p *Projector[T], cfg Config,
) *Executor[T] {
	return &Executor[T]{
		log:        log,
		projector:  p,
		cache:      newLRUCache[*Projection[T]](cfg.CacheSize),
		maxRetries: max(1, cfg.MaxRetries),
	}
}

// Log returns the EventLog the executor appends to
func (e *Executor[_]) Log() EventLog {
	return e.log
}

// Exec runs cmd against the entity's current projection. The projection
// used for validation and the append are tied together by the entity's
// version, so two commands racing on the same entity cannot both pass a
// check that only one of them should
func (e *Executor[T]) Exec(
	ctx context.Context, id ID, cmd Command[T],
) (*Outcome[T], error) {
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		proj, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}

		rec := newRecorder(id, e.projector, proj)
		if err := cmd(rec.State(), rec); err != nil {
			return nil, err
		}

		evs := rec.Enqueued()
		if len(evs) == 0 {
			return &Outcome[T]{State: proj.State, Version: proj.Version}, nil
		}

		err = e.log.Append(ctx, id, proj.Version, evs)
		if err == nil {
			final := rec.projection()
			e.updateCache(id, final)
			return &Outcome[T]{
				State:   final.State,
				Events:  evs,
				Version: final.Version,
			}, nil
		}

		if !e.refreshOnConflict(id, proj, err) {
			return nil, err
		}
	}

	return nil, ErrBusy
}

// refreshOnConflict folds the events the conflicting append missed into
// the cached projection so the retry validates against fresh state. It
// reports whether the error was a version conflict at all
func (e *Executor[T]) refreshOnConflict(
	id ID, proj *Projection[T], err error,
) bool {
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		return false
	}

	if evs := conflict.NewEvents; len(evs) > 0 {
		if updated, ferr := e.projector.fold(proj, evs); ferr == nil {
			e.updateCache(id, updated)
			return true
		}
	}

	// No delta available; drop the cached projection so the retry
	// reloads from the log
	e.invalidate(id)
	return true
}

func (e *Executor[T]) load(
	ctx context.Context, id ID,
) (*Projection[T], error) {
	entry := e.cache.Get(string(id), func() *Projection[T] { return nil })
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.value != nil {
		return entry.value, nil
	}

	evs, err := e.log.EventsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	proj, err := e.projector.Project(evs)
	if err != nil {
		return nil, err
	}
	entry.value = proj
	return proj, nil
}

func (e *Executor[T]) updateCache(id ID, proj *Projection[T]) {
	entry := e.cache.Get(string(id), func() *Projection[T] { return nil })
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.value == nil || proj.Version > entry.value.Version {
		entry.value = proj
	}
}

func (e *Executor[T]) invalidate(id ID) {
	entry := e.cache.Get(string(id), func() *Projection[T] { return nil })
	entry.mu.Lock()
	entry.value = nil
	entry.mu.Unlock()
}
