package service

import (
	"context"
	"os"
	"testing"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/pricing"
	"reservation-service/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStayDates(t *testing.T) {
	in, out, err := parseStayDates("2025-07-01", "2025-07-03")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", in.Format("2006-01-02"))
	assert.Equal(t, "2025-07-03", out.Format("2006-01-02"))
}

func TestParseStayDatesRejectsBadInput(t *testing.T) {
	_, _, err := parseStayDates("01-07-2025", "2025-07-03")
	assert.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "check_in", vErr.Field)
}

func TestParseStayDatesRejectsInvertedRange(t *testing.T) {
	_, _, err := parseStayDates("2025-07-03", "2025-07-01")
	assert.Error(t, err)

	// Zero-night stays are rejected too.
	_, _, err = parseStayDates("2025-07-01", "2025-07-01")
	assert.Error(t, err)
}

func TestCancelReservationRejectsUnknownReason(t *testing.T) {
	s := &ReservationService{}

	_, err := s.CancelReservation(context.Background(), 1, "CHANGED_MY_MIND")
	assert.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cancel_reason", vErr.Field)
}

func TestValidCancelReason(t *testing.T) {
	assert.True(t, models.ValidCancelReason(models.CancelReasonUserRequested))
	assert.True(t, models.ValidCancelReason(models.CancelReasonAdminForced))
	assert.True(t, models.ValidCancelReason(models.CancelReasonAutoExpired))
	assert.False(t, models.ValidCancelReason("user_requested"))
	assert.False(t, models.ValidCancelReason(""))
}

// testReservationService wires a service against TEST_DATABASE_URL, skipping
// when the variable is unset. Event publishes go to a local broker address;
// publish failures are logged, not fatal, so no Kafka is required.
func testReservationService(t *testing.T) (*ReservationService, *store.Store) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set TEST_DATABASE_URL to run database tests")
	}
	st, err := store.NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	publisher := broker.NewEventPublisher(broker.NewProducer([]string{"localhost:9092"}, "reservation-events-test"))
	return NewReservationService(st, nil, publisher, 3), st
}

func seedRoomType(t *testing.T, st *store.Store, totalRooms int) (*models.Lodge, *models.RoomType) {
	t.Helper()
	ctx := context.Background()

	lodge := &models.Lodge{
		Name:              "Fjellstua",
		Address:           "Mountain Road 1",
		AccommodationType: "LODGE",
	}
	rt := &models.RoomType{
		Name:       "Cabin",
		BasePrice:  1000,
		MaxAdults:  2,
		TotalRooms: totalRooms,
	}

	in, out, err := parseStayDates("2025-07-01", "2025-07-03")
	require.NoError(t, err)

	err = st.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := st.CreateLodgeTx(ctx, tx, lodge); err != nil {
			return err
		}
		rt.LodgeID = lodge.ID
		if err := st.CreateRoomTypeTx(ctx, tx, rt); err != nil {
			return err
		}
		return st.EnsureRoomInventoryTx(ctx, tx, lodge.ID, rt.ID, pricing.Nights(in, out), totalRooms)
	})
	require.NoError(t, err)
	return lodge, rt
}

func TestReservationLifecycle(t *testing.T) {
	svc, st := testReservationService(t)
	ctx := context.Background()

	lodge, rt := seedRoomType(t, st, 1)

	created, err := svc.CreateReservation(ctx, &CreateReservationRequest{
		LodgeID:    lodge.ID,
		RoomTypeID: rt.ID,
		UserID:     7,
		CheckIn:    "2025-07-01",
		CheckOut:   "2025-07-03",
		Adults:     2,
		RoomCount:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, created.Status)
	assert.Equal(t, int64(2000), created.TotalPrice)

	confirmed, err := svc.ConfirmReservation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, confirmed.Status)

	// Confirming twice must fail; the ledger was debited exactly once.
	_, err = svc.ConfirmReservation(ctx, created.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	// The last unit is held, so a rival reservation cannot confirm.
	rival, err := svc.CreateReservation(ctx, &CreateReservationRequest{
		LodgeID:    lodge.ID,
		RoomTypeID: rt.ID,
		UserID:     8,
		CheckIn:    "2025-07-01",
		CheckOut:   "2025-07-03",
		Adults:     2,
		RoomCount:  1,
	})
	require.NoError(t, err)
	_, err = svc.ConfirmReservation(ctx, rival.ID)
	assert.ErrorIs(t, err, store.ErrInsufficientInventory)

	cancelled, err := svc.CancelReservation(ctx, created.ID, models.CancelReasonUserRequested)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)

	// Repeating the cancel is a no-op; the credit must not double.
	again, err := svc.CancelReservation(ctx, created.ID, models.CancelReasonUserRequested)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, again.Status)

	// The credited unit is available to the rival now.
	rivalConfirmed, err := svc.ConfirmReservation(ctx, rival.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, rivalConfirmed.Status)
}

func TestCancelPendingReportsLostRace(t *testing.T) {
	svc, st := testReservationService(t)
	ctx := context.Background()

	lodge, rt := seedRoomType(t, st, 1)

	created, err := svc.CreateReservation(ctx, &CreateReservationRequest{
		LodgeID:    lodge.ID,
		RoomTypeID: rt.ID,
		UserID:     9,
		CheckIn:    "2025-07-01",
		CheckOut:   "2025-07-03",
		Adults:     2,
		RoomCount:  1,
	})
	require.NoError(t, err)

	// Flip the row out from under a PENDING-guarded transition; the
	// cancel path must surface the lost race instead of reporting
	// success against a row it never changed.
	err = st.WithTx(ctx, func(tx *sqlx.Tx) error {
		flipped, err := st.TransitionReservationTx(ctx, tx, created.ID,
			models.ReservationStatusPending, models.ReservationStatusConfirmed, nil)
		require.NoError(t, err)
		require.True(t, flipped)
		return nil
	})
	require.NoError(t, err)

	err = st.WithTx(ctx, func(tx *sqlx.Tx) error {
		reason := models.CancelReasonUserRequested
		flipped, err := st.TransitionReservationTx(ctx, tx, created.ID,
			models.ReservationStatusPending, models.ReservationStatusCancelled, &reason)
		require.NoError(t, err)
		assert.False(t, flipped)
		return nil
	})
	require.NoError(t, err)

	// The service path resolves the same state correctly: the row is
	// CONFIRMED now, so cancelling credits and succeeds.
	cancelled, err := svc.CancelReservation(ctx, created.ID, models.CancelReasonUserRequested)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)
}
