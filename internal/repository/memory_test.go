package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/models"
)

func testApplication(reference, fingerprint string) *models.Application {
	now := time.Now()
	return &models.Application{
		Reference:           reference,
		Kind:                models.KindNewID,
		IdentityFingerprint: fingerprint,
		Status:              models.StatusSubmitted,
		Name:                "Asha",
		Phone:               "9876543210",
		SubmittedAt:         now,
		UpdatedAt:           now,
		Timeline: []models.TimelineEntry{
			{Status: models.StatusSubmitted, Timestamp: now, Actor: models.ActorCitizen},
		},
	}
}

func TestMemoryStoreCreateConditions(t *testing.T) {
	store := NewMemoryApplicationStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testApplication("NEW-20250614-AB12XZ", "f1")))

	// Same reference, different identity: a minting collision.
	err := store.Create(ctx, testApplication("NEW-20250614-AB12XZ", "f2"))
	assert.ErrorIs(t, err, domain.ErrReferenceTaken)

	// Same identity, different reference: a duplicate submission.
	err = store.Create(ctx, testApplication("NEW-20250614-CD34QP", "f1"))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "NEW-20250614-AB12XZ", conflict.ExistingReference)
}

func TestMemoryStoreUpdateIsConditional(t *testing.T) {
	store := NewMemoryApplicationStore()
	ctx := context.Background()

	app := testApplication("NEW-20250614-AB12XZ", "f1")
	require.NoError(t, store.Create(ctx, app))

	app.Status = models.StatusFieldPending
	app.Timeline = append(app.Timeline, models.TimelineEntry{Status: models.StatusFieldPending, Actor: models.ActorOfficer})

	// Stale expectation loses.
	err := store.Update(ctx, app, models.StatusFieldPending)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	require.NoError(t, store.Update(ctx, app, models.StatusSubmitted))

	got, err := store.Get(ctx, app.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFieldPending, got.Status)
	assert.Len(t, got.Timeline, 2)
}

func TestMemoryStoreRejectionClearsMarker(t *testing.T) {
	store := NewMemoryApplicationStore()
	ctx := context.Background()

	app := testApplication("NEW-20250614-AB12XZ", "f1")
	require.NoError(t, store.Create(ctx, app))

	ref, err := store.ActiveReference(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, app.Reference, ref)

	app.Status = models.StatusRejected
	app.Timeline = append(app.Timeline, models.TimelineEntry{Status: models.StatusRejected, Actor: models.ActorOfficer})
	require.NoError(t, store.Update(ctx, app, models.StatusSubmitted))

	ref, err = store.ActiveReference(ctx, "f1")
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestMemoryStoreApplyConfirmationOnce(t *testing.T) {
	store := NewMemoryApplicationStore()
	ctx := context.Background()

	app := testApplication("NEW-20250614-AB12XZ", "f1")
	app.Status = models.StatusDispatched
	require.NoError(t, store.Create(ctx, app))

	updated := *app
	updated.Status = models.StatusDelivered
	updated.Timeline = append([]models.TimelineEntry{}, app.Timeline...)
	updated.Timeline = append(updated.Timeline, models.TimelineEntry{Status: models.StatusDelivered, Actor: models.ActorSystem})

	require.NoError(t, store.ApplyConfirmation(ctx, "conf-1", &updated, models.StatusDispatched))

	applied, err := store.ConfirmationApplied(ctx, "conf-1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.ConfirmationApplied(ctx, "conf-2")
	require.NoError(t, err)
	assert.False(t, applied)

	err = store.ApplyConfirmation(ctx, "conf-1", &updated, models.StatusDispatched)
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	// A new id against a moved status loses the conditional write.
	err = store.ApplyConfirmation(ctx, "conf-2", &updated, models.StatusDispatched)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryApplicationStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testApplication("NEW-20250614-AB12XZ", "f1")))

	first, err := store.Get(ctx, "NEW-20250614-AB12XZ")
	require.NoError(t, err)
	first.Timeline = append(first.Timeline, models.TimelineEntry{Status: models.StatusFieldPending})

	second, err := store.Get(ctx, "NEW-20250614-AB12XZ")
	require.NoError(t, err)
	assert.Len(t, second.Timeline, 1)
}
