package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvableAmount means a paid amount does not correspond to any
	// plan total within tolerance. Nothing is recorded; the claim must be
	// rejected rather than guessed at.
	ErrUnresolvableAmount = errors.New("billing: amount does not match any plan")

	// ErrGatewayCaptureFailed wraps a processor decline or timeout during
	// order capture. No ledger row is written on this path.
	ErrGatewayCaptureFailed = errors.New("billing: gateway capture failed")

	// ErrInvalidTransition means a review action was attempted on a
	// submission that is not in a state permitting it.
	ErrInvalidTransition = errors.New("billing: invalid review transition")

	// ErrMockTransactionDisabled is returned when an on-chain claim without
	// a transaction id arrives and mock transactions are not enabled.
	ErrMockTransactionDisabled = errors.New("billing: mock transactions are disabled")

	// ErrStorageTransient marks I/O failures against the ledger or
	// subscription store. Callers may retry with backoff.
	ErrStorageTransient = errors.New("billing: transient storage failure")

	// ErrOrderNotFound means a checkout order is unknown, expired, or owned
	// by a different user. Ownership mismatches are deliberately folded in
	// so the response does not reveal whether the order exists.
	ErrOrderNotFound = errors.New("billing: unknown or expired order")
)

// CooldownError is returned when a rejection is attempted before the
// mandatory review cooldown has elapsed. It matches ErrInvalidTransition
// under errors.Is so callers can treat it as a transition failure while
// still surfacing the remaining wait to the reviewer.
type CooldownError struct {
	HoursRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("billing: rejection allowed in %dh", e.HoursRemaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// StorageError wraps an underlying database error with the operation that
// failed. It matches ErrStorageTransient under errors.Is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("billing: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageTransient
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
