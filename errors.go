package chronicle

import (
	"errors"
	"fmt"
)

type (
	// Rejection is a domain-rule failure: the caller's intent fails
	// validation against current projected state. No event is appended
	// for a rejected command and the command is never retried
	Rejection struct {
		Code   string
		Reason string
	}

	// MalformedEventError reports an event the projector has no
	// transition rule for, or whose payload cannot be decoded. It is an
	// integrity fault of the single projection being computed; the
	// underlying log is untouched
	MalformedEventError struct {
		Err      error
		Type     EventType
		Sequence int64
	}

	// VersionConflictError reports a conditional append that observed a
	// different entity version than expected. NewEvents carries the
	// events appended since the expected version, when the log can
	// provide them
	VersionConflictError struct {
		NewEvents       []*Event
		ExpectedVersion int64
		ActualVersion   int64
	}
)

// ErrBusy is surfaced when a command keeps conflicting with concurrent
// appends past the executor's retry budget
var ErrBusy = errors.New("too many conflicting appends")

// NewRejection creates a Rejection with a stable code and a human reason
func NewRejection(code, reason string) *Rejection {
	return &Rejection{Code: code, Reason: reason}
}

func (r *Rejection) Error() string {
	return r.Reason
}

// AsRejection unwraps err into a Rejection, if it is one
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"malformed event %q at sequence %d: %s",
			e.Type, e.Sequence, e.Err,
		)
	}
	return fmt.Sprintf(
		"no transition rule for event %q at sequence %d",
		e.Type, e.Sequence,
	)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf(
		"version conflict: expected version %d, but at %d (%d new events)",
		e.ExpectedVersion, e.ActualVersion, len(e.NewEvents),
	)
}
