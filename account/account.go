// Package account implements a bank-account domain on the chronicle
// core: a closed set of event kinds, the transition table folding them
// into account state, and a command service enforcing the balance rules.
package account

import (
	"github.com/chronicledb/chronicle"
)

type (
	// State is the projected view of a single account. Balance is in
	// minor currency units
	State struct {
		Owner   string `json:"owner"`
		Balance int64  `json:"balance"`
		Active  bool   `json:"active"`
	}

	// CreatedData opens an account. A Created event over an existing
	// account acts as a reset fact: the applier replaces the prior
	// state wholesale
	CreatedData struct {
		Owner          string `json:"owner"`
		InitialBalance int64  `json:"initial_balance"`
	}

	DepositedData struct {
		Amount int64 `json:"amount"`
	}

	WithdrawnData struct {
		Amount int64 `json:"amount"`
	}

	ClosedData struct{}
)

const (
	Created   chronicle.EventType = "account.created"
	Deposited chronicle.EventType = "account.deposited"
	Withdrawn chronicle.EventType = "account.withdrawn"
	Closed    chronicle.EventType = "account.closed"
)

// NewState returns the zero state: no owner, zero balance, inactive
func NewState() *State {
	return &State{}
}

// Appliers is the closed transition table for account projections
var Appliers = chronicle.Appliers[*State]{
	Created: chronicle.MakeApplier(
		func(_ *State, _ *chronicle.Event, d CreatedData) *State {
			return &State{
				Owner:   d.Owner,
				Balance: d.InitialBalance,
				Active:  true,
			}
		},
	),
	Deposited: chronicle.MakeApplier(
		func(s *State, _ *chronicle.Event, d DepositedData) *State {
			next := *s
			next.Balance += d.Amount
			return &next
		},
	),
	Withdrawn: chronicle.MakeApplier(
		func(s *State, _ *chronicle.Event, d WithdrawnData) *State {
			next := *s
			next.Balance -= d.Amount
			return &next
		},
	),
	Closed: chronicle.MakeApplier(
		func(s *State, _ *chronicle.Event, _ ClosedData) *State {
			next := *s
			next.Active = false
			return &next
		},
	),
}

// NewProjector builds a projector over the account transition table
func NewProjector() *chronicle.Projector[*State] {
	return chronicle.NewProjector(NewState, Appliers)
}
