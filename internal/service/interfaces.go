package service

import (
	"context"

	"github.com/sevasetu/sevasetu/internal/models"
)

// OTPStore holds at most one live OTP record per phone. Implementations must
// serialize IncrementAttempts per phone so concurrent retries cannot lose an
// increment.
type OTPStore interface {
	// Put stores record, overwriting any prior record for the same phone.
	Put(ctx context.Context, record models.OTPRecord) error
	// Get returns the live record for phone, or domain.ErrNotFound.
	Get(ctx context.Context, phone string) (*models.OTPRecord, error)
	// Delete removes the record for phone. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, phone string) error
	// IncrementAttempts atomically bumps the attempt counter and returns the
	// new value, or domain.ErrNotFound when the record is gone.
	IncrementAttempts(ctx context.Context, phone string) (int, error)
}

// ApplicationStore persists applications with atomic conditional writes.
type ApplicationStore interface {
	// Create persists a new application together with its active-identity
	// marker. Fails domain.ErrReferenceTaken on a reference collision and
	// *domain.ConflictError when an active application already exists for
	// the same identity fingerprint.
	Create(ctx context.Context, app *models.Application) error
	// Get returns the application for reference, or domain.ErrNotFound.
	Get(ctx context.Context, reference string) (*models.Application, error)
	// Update writes app conditionally on the stored status still being
	// expectedStatus; otherwise fails domain.ErrConcurrentUpdate. A
	// transition to rejected clears the active-identity marker in the same
	// atomic write.
	Update(ctx context.Context, app *models.Application, expectedStatus models.Status) error
	// ActiveReference returns the reference of the active application for
	// fingerprint, or "" when none exists.
	ActiveReference(ctx context.Context, fingerprint string) (string, error)
	// ApplyConfirmation records confirmationID and writes app in one atomic
	// unit, conditionally on the stored status still being expectedStatus.
	// Fails domain.ErrAlreadyFinalized when confirmationID was applied
	// before, domain.ErrConcurrentUpdate when the status condition fails.
	ApplyConfirmation(ctx context.Context, confirmationID string, app *models.Application, expectedStatus models.Status) error
	// ConfirmationApplied reports whether confirmationID was applied before.
	ConfirmationApplied(ctx context.Context, confirmationID string) (bool, error)
}
