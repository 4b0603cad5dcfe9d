package chronicle

import (
	"encoding/json"
	"time"
)

type (
	// ID identifies the entity an event belongs to
	ID string

	// EventType is a closed tag identifying an event's meaning
	EventType string

	// Event is an immutable fact recorded for one entity. Sequence is
	// assigned by the log at append time and is strictly increasing
	// across all entities. RecordedAt is informational; ordering is
	// always by Sequence
	Event struct {
		RecordedAt time.Time       `json:"recorded_at"`
		EntityID   ID              `json:"entity_id"`
		Type       EventType       `json:"type"`
		Data       json.RawMessage `json:"data"`
		Sequence   int64           `json:"sequence"`
	}
)

// Payload unmarshals the event data into the given type
func Payload[T any](ev *Event) (T, error) {
	var res T
	err := json.Unmarshal(ev.Data, &res)
	return res, err
}
