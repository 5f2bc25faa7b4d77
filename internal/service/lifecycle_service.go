package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/models"
)

// referenceCharset excludes nothing: references are case-insensitive
// alphanumerics as printed on citizen receipts.
const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const referenceMintRetries = 5

// LifecycleService owns the application state machine and its audit timeline.
// Every status change goes through a conditional write keyed on the prior
// status, so no code path can change the status without appending a timeline
// entry, even under concurrent or replayed calls.
type LifecycleService struct {
	store     ApplicationStore
	duplicate *DuplicateGuard
	catalog   *config.StatusCatalog
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

func NewLifecycleService(
	store ApplicationStore,
	duplicate *DuplicateGuard,
	catalog *config.StatusCatalog,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:     store,
		duplicate: duplicate,
		catalog:   catalog,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitInput carries the citizen-provided fields of a new application.
type SubmitInput struct {
	Kind                models.Kind
	Name                string
	Phone               string
	Payload             map[string]string
	IdentityFingerprint string
}

// Submit creates a new application in status submitted. The duplicate guard
// runs first; the store's transactional create closes the window between the
// guard check and the write.
func (s *LifecycleService) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	if !input.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown service kind %q", domain.ErrValidation, input.Kind)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if input.Phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}
	if input.IdentityFingerprint == "" {
		return nil, fmt.Errorf("%w: identity fingerprint is required", domain.ErrValidation)
	}

	if err := s.duplicate.Check(ctx, input.IdentityFingerprint); err != nil {
		return nil, err
	}

	submittedAt := s.now()

	for i := 0; i < referenceMintRetries; i++ {
		reference, err := s.mintReference(input.Kind, submittedAt)
		if err != nil {
			return nil, err
		}

		app := &models.Application{
			Reference:           reference,
			Kind:                input.Kind,
			IdentityFingerprint: input.IdentityFingerprint,
			Status:              models.StatusSubmitted,
			Name:                input.Name,
			Phone:               input.Phone,
			Payload:             input.Payload,
			SubmittedAt:         submittedAt,
			UpdatedAt:           submittedAt,
			Timeline: []models.TimelineEntry{
				{
					Status:    models.StatusSubmitted,
					Label:     s.catalog.Label(string(models.StatusSubmitted)),
					Timestamp: submittedAt,
					Actor:     models.ActorCitizen,
				},
			},
		}

		err = s.store.Create(ctx, app)
		if errors.Is(err, domain.ErrReferenceTaken) {
			// Random-suffix collision; mint a fresh one.
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.ApplicationsSubmitted.Inc()
		s.logger.WithFields(logrus.Fields{
			"reference": reference,
			"kind":      input.Kind,
		}).Info("Application submitted")
		return app, nil
	}

	return nil, domain.NewStoreError("create application", domain.ErrReferenceTaken)
}

// Transition advances an application one step along the pipeline. The note is
// the only free-form field an officer may touch; everything else the citizen
// submitted is immutable here.
func (s *LifecycleService) Transition(ctx context.Context, reference string, newStatus models.Status, actor models.Actor, note string) (*models.Application, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, newStatus)
	}

	app, err := s.store.Get(ctx, reference)
	if err != nil {
		return nil, err
	}

	previous := app.Status
	if !previous.CanTransitionTo(newStatus) {
		return nil, &domain.InvalidTransitionError{From: string(previous), To: string(newStatus)}
	}

	changedAt := s.now()
	app.Status = newStatus
	app.UpdatedAt = changedAt
	if note != "" {
		app.Note = note
	}
	app.Timeline = append(app.Timeline, models.TimelineEntry{
		Status:    newStatus,
		Label:     s.catalog.Label(string(newStatus)),
		Timestamp: changedAt,
		Actor:     actor,
	})

	if err := s.store.Update(ctx, app, previous); err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			// Lost the race. Report against the status that actually won.
			current, getErr := s.store.Get(ctx, reference)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &domain.InvalidTransitionError{From: string(current.Status), To: string(newStatus)}
		}
		return nil, err
	}

	s.metrics.TransitionsApplied.Inc()
	s.logger.WithFields(logrus.Fields{
		"reference": reference,
		"from":      previous,
		"to":        newStatus,
		"actor":     actor,
	}).Info("Application transitioned")

	return app, nil
}

// Query returns the application for reference, or domain.ErrNotFound.
func (s *LifecycleService) Query(ctx context.Context, reference string) (*models.Application, error) {
	return s.store.Get(ctx, reference)
}

// mintReference builds <KIND>-<YYYYMMDD>-<RAND6> with a fresh random suffix.
func (s *LifecycleService) mintReference(kind models.Kind, submittedAt time.Time) (string, error) {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to mint reference: %w", err)
		}
		suffix[i] = referenceCharset[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", kind.Code(), submittedAt.Format("20060102"), suffix), nil
}
