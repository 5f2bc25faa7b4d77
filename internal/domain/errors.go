package domain

import (
	"errors"
	"fmt"
)

// Business-rule rejections. Callers branch on these with errors.Is/errors.As;
// none of them may be auto-retried.
var (
	ErrNotFound         = errors.New("not found")
	ErrExpired          = errors.New("code expired")
	ErrTooManyAttempts  = errors.New("maximum attempts exceeded")
	ErrAlreadyFinalized = errors.New("already finalized")
	ErrReferenceTaken   = errors.New("reference already taken")
	ErrValidation       = errors.New("invalid input")

	// ErrConcurrentUpdate means a conditional write lost a race: the record's
	// status changed between read and write. Callers reload before deciding.
	ErrConcurrentUpdate = errors.New("record changed concurrently")
)

// MismatchError is returned on a wrong OTP code. It is retryable until
// AttemptsRemaining reaches zero.
type MismatchError struct {
	AttemptsRemaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("incorrect code, %d attempts remaining", e.AttemptsRemaining)
}

// ConflictError is returned when an active application already exists for the
// same identity and kind. ExistingReference lets the citizen track the prior
// submission instead of resubmitting.
type ConflictError struct {
	ExistingReference string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active application already exists: %s", e.ExistingReference)
}

// InvalidTransitionError is returned when the requested status is not an
// immediate successor of the current one.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// StoreError wraps an infrastructure failure talking to the backing store.
// It is the only error kind retry logic may act on.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a StoreError unless it already carries a
// business-rule meaning.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
