package repository

import (
	"context"
	"sync"

	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/models"
)

// In-memory stores mirror the DynamoDB conditional-write semantics behind a
// mutex. They back unit tests and single-instance local development.

type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]models.OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		records: make(map[string]models.OTPRecord),
	}
}

func (s *MemoryOTPStore) Put(_ context.Context, record models.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Phone] = record
	return nil
}

func (s *MemoryOTPStore) Get(_ context.Context, phone string) (*models.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := record
	return &copied, nil
}

func (s *MemoryOTPStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, phone)
	return nil
}

func (s *MemoryOTPStore) IncrementAttempts(_ context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[phone]
	if !ok {
		return 0, domain.ErrNotFound
	}
	record.Attempts++
	s.records[phone] = record
	return record.Attempts, nil
}

type MemoryApplicationStore struct {
	mu            sync.Mutex
	applications  map[string]models.Application
	activeMarkers map[string]string
	confirmations map[string]string
}

func NewMemoryApplicationStore() *MemoryApplicationStore {
	return &MemoryApplicationStore{
		applications:  make(map[string]models.Application),
		activeMarkers: make(map[string]string),
		confirmations: make(map[string]string),
	}
}

func cloneApplication(app models.Application) models.Application {
	copied := app
	copied.Timeline = make([]models.TimelineEntry, len(app.Timeline))
	copy(copied.Timeline, app.Timeline)
	if app.Payload != nil {
		copied.Payload = make(map[string]string, len(app.Payload))
		for k, v := range app.Payload {
			copied.Payload[k] = v
		}
	}
	return copied
}

func (s *MemoryApplicationStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.Reference]; exists {
		return domain.ErrReferenceTaken
	}
	if existing, exists := s.activeMarkers[app.IdentityFingerprint]; exists {
		return &domain.ConflictError{ExistingReference: existing}
	}

	s.applications[app.Reference] = cloneApplication(*app)
	s.activeMarkers[app.IdentityFingerprint] = app.Reference
	return nil
}

func (s *MemoryApplicationStore) Get(_ context.Context, reference string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := cloneApplication(app)
	return &copied, nil
}

func (s *MemoryApplicationStore) Update(_ context.Context, app *models.Application, expectedStatus models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.applications[app.Reference]
	if !ok || stored.Status != expectedStatus {
		return domain.ErrConcurrentUpdate
	}

	s.applications[app.Reference] = cloneApplication(*app)
	if app.Status == models.StatusRejected {
		delete(s.activeMarkers, app.IdentityFingerprint)
	}
	return nil
}

func (s *MemoryApplicationStore) ActiveReference(_ context.Context, fingerprint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeMarkers[fingerprint], nil
}

func (s *MemoryApplicationStore) ConfirmationApplied(_ context.Context, confirmationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, applied := s.confirmations[confirmationID]
	return applied, nil
}

func (s *MemoryApplicationStore) ApplyConfirmation(_ context.Context, confirmationID string, app *models.Application, expectedStatus models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, applied := s.confirmations[confirmationID]; applied {
		return domain.ErrAlreadyFinalized
	}

	stored, ok := s.applications[app.Reference]
	if !ok || stored.Status != expectedStatus {
		return domain.ErrConcurrentUpdate
	}

	s.confirmations[confirmationID] = app.Reference
	s.applications[app.Reference] = cloneApplication(*app)
	if app.Status == models.StatusRejected {
		delete(s.activeMarkers, app.IdentityFingerprint)
	}
	return nil
}
