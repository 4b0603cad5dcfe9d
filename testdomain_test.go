package chronicle_test

import (
	"encoding/json"

	"github.com/chronicledb/chronicle"
)

// Counter domain shared by the core tests

type (
	counterState struct {
		Value int `json:"value"`
	}

	deltaData struct {
		Delta int `json:"delta"`
	}
)

const (
	eventIncremented chronicle.EventType = "counter.incremented"
	eventDecremented chronicle.EventType = "counter.decremented"
	eventReset       chronicle.EventType = "counter.reset"
)

func newCounterState() *counterState {
	return &counterState{}
}

var counterAppliers = chronicle.Appliers[*counterState]{
	eventIncremented: chronicle.MakeApplier(
		func(s *counterState, _ *chronicle.Event, d deltaData) *counterState {
			return &counterState{Value: s.Value + d.Delta}
		},
	),
	eventDecremented: chronicle.MakeApplier(
		func(s *counterState, _ *chronicle.Event, d deltaData) *counterState {
			return &counterState{Value: s.Value - d.Delta}
		},
	),
	eventReset: chronicle.MakeApplier(
		func(*counterState, *chronicle.Event, struct{}) *counterState {
			return &counterState{}
		},
	),
}

func newCounterProjector() *chronicle.Projector[*counterState] {
	return chronicle.NewProjector(newCounterState, counterAppliers)
}

func counterEvent(typ chronicle.EventType, delta int) *chronicle.Event {
	data, _ := json.Marshal(deltaData{Delta: delta})
	return &chronicle.Event{Type: typ, Data: data}
}
