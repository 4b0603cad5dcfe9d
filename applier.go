package chronicle

import "encoding/json"

type (
	// Applier folds a single event into state, returning the next state.
	// State must be treated as immutable; appliers return a new value
	// rather than mutating in place
	Applier[T any] func(T, *Event) (T, error)

	// Appliers maps each event kind to its transition rule. The map is
	// the closed set of kinds a projector understands; folding any other
	// kind fails with *MalformedEventError
	Appliers[T any] map[EventType]Applier[T]
)

// MakeApplier adapts a typed transition function to an Applier. The event
// payload is unmarshaled into Data; a payload that cannot be decoded
// fails the fold rather than being silently skipped
func MakeApplier[T, Data any](fn func(T, *Event, Data) T) Applier[T] {
	return func(val T, ev *Event) (T, error) {
		var data Data
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return val, err
		}
		return fn(val, ev, data), nil
	}
}
