package store

import (
	"context"
	"testing"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingReservation(userID int64) *models.Reservation {
	return &models.Reservation{
		LodgeID:    1,
		RoomTypeID: 100,
		UserID:     userID,
		CheckIn:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		Adults:     2,
		RoomCount:  1,
		TotalPrice: 2000,
		Status:     models.ReservationStatusPending,
	}
}

func TestSweepOnlyTouchesStalePending(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()

	pending := newPendingReservation(42)
	require.NoError(t, store.CreateReservation(ctx, pending))

	// A cutoff in the past matches nothing.
	swept, err := store.SweepExpiredReservations(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, swept)

	// A cutoff in the future sweeps the pending reservation.
	swept, err = store.SweepExpiredReservations(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, pending.ID, swept[0].ID)
	assert.Equal(t, pending.UserID, swept[0].UserID)

	// Swept reservations are CANCELLED/AUTO_EXPIRED and re-sweeping
	// finds nothing.
	r, err := store.GetReservationByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, r.Status)
	require.NotNil(t, r.CancelReason)
	assert.Equal(t, models.CancelReasonAutoExpired, *r.CancelReason)

	swept, err = store.SweepExpiredReservations(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, swept)
}

func TestUserListingHidesAutoExpired(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()

	expired := newPendingReservation(43)
	require.NoError(t, store.CreateReservation(ctx, expired))

	_, err := store.SweepExpiredReservations(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)

	listed, err := store.GetReservationsByUserID(ctx, 43)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Direct lookup still works.
	r, err := store.GetReservationByID(ctx, expired.ID)
	assert.NoError(t, err)
	assert.NotNil(t, r)
}

func TestTransitionIsConditional(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()

	r := newPendingReservation(44)
	require.NoError(t, store.CreateReservation(ctx, r))

	// Transition guarded on the wrong expected status flips nothing.
	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		flipped, err := store.TransitionReservationTx(ctx, tx, r.ID,
			models.ReservationStatusConfirmed, models.ReservationStatusCancelled, nil)
		require.NoError(t, err)
		assert.False(t, flipped)

		flipped, err = store.TransitionReservationTx(ctx, tx, r.ID,
			models.ReservationStatusPending, models.ReservationStatusConfirmed, nil)
		require.NoError(t, err)
		assert.True(t, flipped)
		return nil
	})
	require.NoError(t, err)
}

func TestTransitionGuardSeesConcurrentFlip(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()

	r := newPendingReservation(45)
	require.NoError(t, store.CreateReservation(ctx, r))

	// Read PENDING inside a transaction, then let another session flip
	// the row before the guarded update runs. The update must re-evaluate
	// its status guard against the committed row and report no match;
	// callers treat flipped=false as a lost race, never as success.
	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		got, err := store.GetReservationByIDTx(ctx, tx, r.ID)
		require.NoError(t, err)
		require.Equal(t, models.ReservationStatusPending, got.Status)

		swept, err := store.SweepExpiredReservations(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NotEmpty(t, swept)

		flipped, err := store.TransitionReservationTx(ctx, tx, r.ID,
			models.ReservationStatusPending, models.ReservationStatusCancelled, nil)
		require.NoError(t, err)
		assert.False(t, flipped)
		return nil
	})
	require.NoError(t, err)
}
