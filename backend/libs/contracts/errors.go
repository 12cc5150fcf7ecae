package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is an illegal lifecycle transition. Not retried.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientFunds is a terminal business failure of a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrRateUnavailable means the station rate is missing or stale.
	ErrRateUnavailable = errors.New("rate unavailable")
	// ErrAlreadyApplied is the idempotency short-circuit; callers treat it as success.
	ErrAlreadyApplied = errors.New("operation already applied")
	// ErrIdempotencyConflict means a key was reused for a different operation.
	ErrIdempotencyConflict = errors.New("idempotency key reused with different parameters")
	// ErrNotFound is returned for missing entities.
	ErrNotFound = errors.New("not found")
	// ErrSettlementInProgress means another worker holds the session's settlement.
	ErrSettlementInProgress = errors.New("settlement already in progress")
	// ErrVersionConflict is an optimistic concurrency failure.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// InvalidStateError carries the attempted transition.
type InvalidStateError struct {
	SessionID string
	From      SessionStatus
	Action    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session %s: cannot %s from %s", e.SessionID, e.Action, e.From)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	UserID    int64
	Available Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d: available %s, requested %s",
		e.UserID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// RemoteCallError is a transient failure of a call to another service:
// timeout, connection failure, 5xx or 429. It is retried with backoff.
type RemoteCallError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote call %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote call %s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// IsRemoteCallError reports whether err is transient.
func IsRemoteCallError(err error) bool {
	var rce *RemoteCallError
	return errors.As(err, &rce)
}
