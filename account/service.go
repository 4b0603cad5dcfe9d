package account

import (
	"context"

	"github.com/chronicledb/chronicle"
)

// Service is the command and query facade over a shared event log. All
// request handlers must share one Service (or at least one log) so the
// append path stays serialized
type Service struct {
	exec  *chronicle.Executor[*State]
	query *chronicle.Query[*State]
}

var (
	// ErrInvalidAmount rejects deposits and withdrawals of zero or
	// negative amounts
	ErrInvalidAmount = chronicle.NewRejection(
		"invalid_amount", "amount must be positive",
	)

	// ErrInsufficientFunds rejects withdrawals exceeding the balance
	ErrInsufficientFunds = chronicle.NewRejection(
		"insufficient_funds", "insufficient funds",
	)
)

func NewService(log chronicle.EventLog, cfg chronicle.Config) *Service {
	p := NewProjector()
	return &Service{
		exec:  chronicle.NewExecutor(log, p, cfg),
		query: chronicle.NewQuery(log, p),
	}
}

// Open records a Created event. Re-opening an existing account is
// permitted: the second Created event is recorded as a reset fact and
// the projection starts over from it
func (s *Service) Open(
	ctx context.Context, id chronicle.ID, owner string, initialBalance int64,
) (*chronicle.Event, error) {
	return s.submit(ctx, id,
		func(_ *State, rec *chronicle.Recorder[*State]) error {
			return chronicle.Raise(rec, Created, CreatedData{
				Owner:          owner,
				InitialBalance: initialBalance,
			})
		},
	)
}

// Deposit adds amount to the balance. Deposits are accepted even on a
// closed account; closing freezes the active flag, not the log
func (s *Service) Deposit(
	ctx context.Context, id chronicle.ID, amount int64,
) (*chronicle.Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.submit(ctx, id,
		func(_ *State, rec *chronicle.Recorder[*State]) error {
			return chronicle.Raise(rec, Deposited, DepositedData{
				Amount: amount,
			})
		},
	)
}

// Withdraw removes amount from the balance. The balance check and the
// append are tied to the same projected version, so concurrent
// withdrawals cannot overdraw the account
func (s *Service) Withdraw(
	ctx context.Context, id chronicle.ID, amount int64,
) (*chronicle.Event, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.submit(ctx, id,
		func(st *State, rec *chronicle.Recorder[*State]) error {
			if st.Balance < amount {
				return ErrInsufficientFunds
			}
			return chronicle.Raise(rec, Withdrawn, WithdrawnData{
				Amount: amount,
			})
		},
	)
}

// Close records a Closed event regardless of the current active flag;
// closing a closed account is an ordinary fact, not an error
func (s *Service) Close(
	ctx context.Context, id chronicle.ID,
) (*chronicle.Event, error) {
	return s.submit(ctx, id,
		func(_ *State, rec *chronicle.Recorder[*State]) error {
			return chronicle.Raise(rec, Closed, ClosedData{})
		},
	)
}

// CurrentState projects the account's full history. An account with no
// events projects to the zero state at version 0
func (s *Service) CurrentState(
	ctx context.Context, id chronicle.ID,
) (*chronicle.Projection[*State], error) {
	return s.query.CurrentState(ctx, id)
}

// History returns the account's events in ascending sequence order
func (s *Service) History(
	ctx context.Context, id chronicle.ID,
) ([]*chronicle.Event, error) {
	return s.query.History(ctx, id)
}

// HistoryByKind filters the account's history to the given event kinds
func (s *Service) HistoryByKind(
	ctx context.Context, id chronicle.ID, kinds ...chronicle.EventType,
) ([]*chronicle.Event, error) {
	return s.query.HistoryByKind(ctx, id, kinds...)
}

// AllEvents returns the full log and its total count
func (s *Service) AllEvents(
	ctx context.Context,
) ([]*chronicle.Event, int64, error) {
	return s.query.FullLog(ctx)
}

func (s *Service) submit(
	ctx context.Context, id chronicle.ID, cmd chronicle.Command[*State],
) (*chronicle.Event, error) {
	out, err := s.exec.Exec(ctx, id, cmd)
	if err != nil {
		return nil, err
	}
	return out.Events[0], nil
}
