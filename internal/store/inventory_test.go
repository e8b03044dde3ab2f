package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to the database named by TEST_DATABASE_URL, skipping
// the test when the variable is unset.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set TEST_DATABASE_URL to run database tests")
	}
	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDates(n int) []time.Time {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

func TestDebitRejectsOverCapacity(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()
	dates := testDates(2)

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.EnsureRoomInventoryTx(ctx, tx, 1, 100, dates, 5)
	})
	require.NoError(t, err)

	// Debiting 5 of 5 succeeds, a second debit of 1 must fail and
	// leave the transaction rolled back.
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.DebitRoomsTx(ctx, tx, 100, dates, 5)
	})
	assert.NoError(t, err)

	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.DebitRoomsTx(ctx, tx, 100, dates, 1)
	})
	assert.ErrorIs(t, err, ErrInsufficientInventory)
}

func TestDebitIsAllOrNothing(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()
	dates := testDates(3)

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.EnsureRoomInventoryTx(ctx, tx, 1, 101, dates, 2)
	})
	require.NoError(t, err)

	// Exhaust the middle date only.
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.DebitRoomsTx(ctx, tx, 101, dates[1:2], 2)
	})
	require.NoError(t, err)

	// A debit spanning all three dates fails on the middle one; the
	// rollback must restore the first date's count.
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.DebitRoomsTx(ctx, tx, 101, dates, 1)
	})
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	ok, err := store.CheckRoomAvailability(ctx, 101, dates[0:1], 2)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestCreditClampsAtTotal(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()
	dates := testDates(1)

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.EnsureRoomInventoryTx(ctx, tx, 1, 102, dates, 3)
	})
	require.NoError(t, err)

	// Crediting a full ledger must not push available past total.
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.CreditRoomsTx(ctx, tx, 102, dates, 2)
	})
	assert.NoError(t, err)

	rows, err := store.GetRoomInventory(ctx, 102, dates[0], dates[0].AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].AvailableRooms)
}

func TestReconcileCapacityPreservesHolds(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()
	dates := testDates(1)

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.EnsureRoomInventoryTx(ctx, tx, 1, 103, dates, 10); err != nil {
			return err
		}
		// 4 rooms held.
		return store.DebitRoomsTx(ctx, tx, 103, dates, 4)
	})
	require.NoError(t, err)

	// Shrinking total to 5 leaves 5-4=1 available, not 5-(10-6).
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := store.ReconcileRoomCapacityTx(ctx, tx, 103, dates[0], 5)
		return err
	})
	require.NoError(t, err)

	rows, err := store.GetRoomInventory(ctx, 103, dates[0], dates[0].AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].TotalRooms)
	assert.Equal(t, 1, rows[0].AvailableRooms)
}

func TestTicketDebitCoversBothPools(t *testing.T) {
	store := testStore(t)

	ctx := context.Background()
	date := testDates(1)[0]

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.EnsureTicketInventoryTx(ctx, tx, 200, []time.Time{date}, 10, 2)
	})
	require.NoError(t, err)

	// Adults fit but children do not; neither pool may change.
	err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return store.DebitTicketsTx(ctx, tx, 200, date, 1, 3)
	})
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	inv, err := store.GetTicketInventory(ctx, 200, date)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.AvailableAdultTickets)
	assert.Equal(t, 2, inv.AvailableChildTickets)
}
