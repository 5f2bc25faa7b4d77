package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/config"
	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/models"
)

// Confirmation outcomes delivered by asynchronous collaborators. Each maps to
// a single pipeline step performed on behalf of the system actor.
const (
	OutcomeDelivered = "delivered"
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
)

var outcomeTargets = map[string]models.Status{
	OutcomeDelivered: models.StatusDelivered,
	OutcomeApproved:  models.StatusApproved,
	OutcomeRejected:  models.StatusRejected,
}

// ConfirmationService enforces at-most-once effect for asynchronously
// delivered confirmations: a payment callback retried by the gateway or a
// verification result resubmitted by the central authority must finalize the
// application exactly once.
type ConfirmationService struct {
	store   ApplicationStore
	catalog *config.StatusCatalog
	metrics *metrics.Metrics
	logger  *logrus.Logger
	now     func() time.Time
}

func NewConfirmationService(
	store ApplicationStore,
	catalog *config.StatusCatalog,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		store:   store,
		catalog: catalog,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Apply finalizes the application named by reference with the given outcome.
// Repeated delivery of the same confirmation, and any confirmation against an
// already-terminal application, fails domain.ErrAlreadyFinalized without
// mutating anything.
func (s *ConfirmationService) Apply(ctx context.Context, confirmationID, reference, outcome string) (*models.Application, error) {
	if confirmationID == "" {
		return nil, fmt.Errorf("%w: confirmation id is required", domain.ErrValidation)
	}

	target, ok := outcomeTargets[outcome]
	if !ok {
		return nil, fmt.Errorf("%w: unknown outcome %q", domain.ErrValidation, outcome)
	}

	// A replayed confirmation must come back AlreadyFinalized even after the
	// application moved past the outcome's target status.
	applied, err := s.store.ConfirmationApplied(ctx, confirmationID)
	if err != nil {
		return nil, err
	}
	if applied {
		s.metrics.ConfirmationsDuplicate.Inc()
		s.logger.WithFields(logrus.Fields{
			"confirmation_id": confirmationID,
			"reference":       reference,
		}).Info("Duplicate confirmation ignored")
		return nil, domain.ErrAlreadyFinalized
	}

	app, err := s.store.Get(ctx, reference)
	if err != nil {
		return nil, err
	}

	previous := app.Status
	if previous.IsTerminal() {
		s.metrics.ConfirmationsDuplicate.Inc()
		return nil, domain.ErrAlreadyFinalized
	}
	if !previous.CanTransitionTo(target) {
		return nil, &domain.InvalidTransitionError{From: string(previous), To: string(target)}
	}

	appliedAt := s.now()
	app.Status = target
	app.UpdatedAt = appliedAt
	app.Timeline = append(app.Timeline, models.TimelineEntry{
		Status:    target,
		Label:     s.catalog.Label(string(target)),
		Timestamp: appliedAt,
		Actor:     models.ActorSystem,
	})

	if err := s.store.ApplyConfirmation(ctx, confirmationID, app, previous); err != nil {
		if errors.Is(err, domain.ErrAlreadyFinalized) {
			s.metrics.ConfirmationsDuplicate.Inc()
			s.logger.WithFields(logrus.Fields{
				"confirmation_id": confirmationID,
				"reference":       reference,
			}).Info("Duplicate confirmation ignored")
			return nil, domain.ErrAlreadyFinalized
		}
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			// The status moved underneath us. A replayed confirmation that
			// raced its twin lands here; anything else is an illegal step.
			current, getErr := s.store.Get(ctx, reference)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == target || current.Status.IsTerminal() {
				s.metrics.ConfirmationsDuplicate.Inc()
				return nil, domain.ErrAlreadyFinalized
			}
			return nil, &domain.InvalidTransitionError{From: string(current.Status), To: string(target)}
		}
		return nil, err
	}

	s.metrics.ConfirmationsApplied.Inc()
	s.logger.WithFields(logrus.Fields{
		"confirmation_id": confirmationID,
		"reference":       reference,
		"outcome":         outcome,
	}).Info("Confirmation applied")

	return app, nil
}
