package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/domain"
)

// DuplicateGuard rejects a new submission while an active application exists
// for the same identity fingerprint. Kiosk sessions are retried freely after
// network failures; this is the sole defense against duplicate backlog
// entries for the same real request.
type DuplicateGuard struct {
	store  ApplicationStore
	logger *logrus.Logger
}

func NewDuplicateGuard(store ApplicationStore, logger *logrus.Logger) *DuplicateGuard {
	return &DuplicateGuard{
		store:  store,
		logger: logger,
	}
}

// Check fails with a ConflictError carrying the existing reference when the
// fingerprint already has a live application. A prior rejected application
// does not block: its marker is cleared on the transition into rejected.
func (g *DuplicateGuard) Check(ctx context.Context, fingerprint string) error {
	existing, err := g.store.ActiveReference(ctx, fingerprint)
	if err != nil {
		return err
	}
	if existing != "" {
		g.logger.WithField("reference", existing).Info("Duplicate submission blocked")
		return &domain.ConflictError{ExistingReference: existing}
	}
	return nil
}
