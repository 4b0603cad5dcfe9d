package chronicle

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

type (
	// Hub fans appended events out to in-process subscribers. Publishing
	// never blocks; a subscriber that falls behind loses events and can
	// detect it through Dropped
	Hub struct {
		mu   sync.RWMutex
		subs map[int64]*Subscription
		next int64
	}

	// Subscription receives events matching its interests
	Subscription struct {
		owner     *Hub
		id        int64
		types     map[EventType]bool // empty = all kinds
		ch        chan *Event
		closeOnce sync.Once
		dropped   atomic.Int64
	}

	// Handler consumes a single event
	Handler func(*Event) error
)

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subs: map[int64]*Subscription{}}
}

// Subscribe registers a subscriber interested in the given event kinds.
// With no kinds, the subscriber receives all events. The buffer bounds
// how far the subscriber may fall behind before events are dropped
func (h *Hub) Subscribe(buffer int, types ...EventType) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}

	s := &Subscription{
		owner: h,
		ch:    make(chan *Event, buffer),
	}
	if len(types) > 0 {
		s.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}

	h.mu.Lock()
	h.next++
	s.id = h.next
	h.subs[s.id] = s
	h.mu.Unlock()
	return s
}

// Publish delivers events to all matching subscribers without blocking
func (h *Hub) Publish(evs ...*Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ev := range evs {
		for _, s := range h.subs {
			if !s.matches(ev) {
				continue
			}
			select {
			case s.ch <- ev:
			default:
				s.dropped.Add(1)
			}
		}
	}
}

// Receive returns the subscriber's event channel. The channel is closed
// when the subscription is closed
func (s *Subscription) Receive() <-chan *Event {
	return s.ch
}

// Dropped reports how many events were lost because the subscriber's
// buffer was full
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.owner.mu.Lock()
		delete(s.owner.subs, s.id)
		close(s.ch)
		s.owner.mu.Unlock()
	})
}

func (s *Subscription) matches(ev *Event) bool {
	return len(s.types) == 0 || s.types[ev.Type]
}

// MakeHandler adapts a typed function into a Handler, unmarshaling the
// event payload before invoking it
func MakeHandler[T any](fn func(*Event, T) error) Handler {
	return func(ev *Event) error {
		var data T
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return err
		}
		return fn(ev, data)
	}
}

// MakeDispatcher routes events to handlers by kind; kinds without a
// handler are ignored
func MakeDispatcher(handlers map[EventType]Handler) Handler {
	return func(ev *Event) error {
		if fn, ok := handlers[ev.Type]; ok {
			return fn(ev)
		}
		return nil
	}
}
