package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/metrics"
	"github.com/sevasetu/sevasetu/internal/models"
	"github.com/sevasetu/sevasetu/internal/repository"
)

func newTestConfirmationService(t *testing.T) (*ConfirmationService, *LifecycleService) {
	t.Helper()
	store := repository.NewMemoryApplicationStore()
	logger := testLogger()
	catalog := testCatalog(t)
	reg := metrics.New(prometheus.NewRegistry())
	lifecycle := NewLifecycleService(store, NewDuplicateGuard(store, logger), catalog, reg, logger)
	confirmations := NewConfirmationService(store, catalog, reg, logger)
	return confirmations, lifecycle
}

func advanceTo(t *testing.T, lifecycle *LifecycleService, reference string, target models.Status) {
	t.Helper()
	ctx := context.Background()
	for _, status := range []models.Status{
		models.StatusFieldPending,
		models.StatusFieldVerified,
		models.StatusCentralReview,
		models.StatusApproved,
		models.StatusDocumentPrinted,
		models.StatusDispatched,
	} {
		_, err := lifecycle.Transition(ctx, reference, status, models.ActorOfficer, "")
		require.NoError(t, err)
		if status == target {
			return
		}
	}
}

func TestConfirmationAppliesExactlyOnce(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)
	advanceTo(t, lifecycle, app.Reference, models.StatusDispatched)

	finalized, err := confirmations.Apply(ctx, "conf-1", app.Reference, OutcomeDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, finalized.Status)
	assert.Equal(t, models.ActorSystem, finalized.Timeline[len(finalized.Timeline)-1].Actor)

	// Replayed delivery of the identical confirmation is a safe no-op.
	_, err = confirmations.Apply(ctx, "conf-1", app.Reference, OutcomeDelivered)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	stored, err := lifecycle.Query(ctx, app.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)
	assert.Equal(t, len(finalized.Timeline), len(stored.Timeline))
}

func TestConfirmationReplayAfterNonTerminalOutcome(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)
	advanceTo(t, lifecycle, app.Reference, models.StatusCentralReview)

	approved, err := confirmations.Apply(ctx, "review-1", app.Reference, OutcomeApproved)
	require.NoError(t, err)
	require.Equal(t, models.StatusApproved, approved.Status)

	// Approved is not terminal, so the replay cannot rely on the terminal
	// check; the recorded confirmation id must carry it.
	_, err = confirmations.Apply(ctx, "review-1", app.Reference, OutcomeApproved)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	// Still a no-op after the pipeline moved on.
	_, err = lifecycle.Transition(ctx, app.Reference, models.StatusDocumentPrinted, models.ActorOfficer, "")
	require.NoError(t, err)
	_, err = confirmations.Apply(ctx, "review-1", app.Reference, OutcomeApproved)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	stored, err := lifecycle.Query(ctx, app.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDocumentPrinted, stored.Status)
	assert.Len(t, stored.Timeline, 6)
}

func TestConfirmationAgainstTerminalApplication(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)
	advanceTo(t, lifecycle, app.Reference, models.StatusDispatched)

	_, err = confirmations.Apply(ctx, "conf-1", app.Reference, OutcomeDelivered)
	require.NoError(t, err)

	// A different confirmation id still cannot re-finalize.
	_, err = confirmations.Apply(ctx, "conf-2", app.Reference, OutcomeDelivered)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestConfirmationReviewOutcomes(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)
	advanceTo(t, lifecycle, app.Reference, models.StatusCentralReview)

	approved, err := confirmations.Apply(ctx, "review-1", app.Reference, OutcomeApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
}

func TestConfirmationRejectionFreesIdentity(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)
	advanceTo(t, lifecycle, app.Reference, models.StatusCentralReview)

	rejected, err := confirmations.Apply(ctx, "review-1", app.Reference, OutcomeRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	// The rejected outcome clears the duplicate guard.
	_, err = lifecycle.Submit(ctx, submitInput("f1"))
	assert.NoError(t, err)
}

func TestConfirmationValidation(t *testing.T) {
	confirmations, lifecycle := newTestConfirmationService(t)
	ctx := context.Background()

	app, err := lifecycle.Submit(ctx, submitInput("f1"))
	require.NoError(t, err)

	_, err = confirmations.Apply(ctx, "", app.Reference, OutcomeDelivered)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = confirmations.Apply(ctx, "conf-1", app.Reference, "paid")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = confirmations.Apply(ctx, "conf-1", "NEW-20250614-ZZZZZZ", OutcomeDelivered)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Delivery cannot be confirmed before dispatch.
	_, err = confirmations.Apply(ctx, "conf-1", app.Reference, OutcomeDelivered)
	var invalid *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}
