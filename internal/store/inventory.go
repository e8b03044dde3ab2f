package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// The inventory ledger: one row per (product, date), mutated only through
// conditional statements so that concurrent confirms cannot debit past zero.
// Debits guard with "available >= n" and check the affected row count;
// credits clamp at total so available never exceeds capacity.

// EnsureRoomInventoryTx bulk-creates one ledger row per date. A row that
// already exists for a (room type, date) pair surfaces as
// ErrDuplicateInventory rather than being overwritten.
func (s *Store) EnsureRoomInventoryTx(ctx context.Context, tx *sqlx.Tx, lodgeID, roomTypeID int64, dates []time.Time, totalRooms int) error {
	query := `
		INSERT INTO room_inventory (lodge_id, room_type_id, date, total_rooms, available_rooms)
		VALUES ($1, $2, $3, $4, $4)`

	for _, d := range dates {
		if _, err := tx.ExecContext(ctx, query, lodgeID, roomTypeID, d, totalRooms); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("room inventory %d@%s: %w", roomTypeID, d.Format("2006-01-02"), ErrDuplicateInventory)
			}
			return err
		}
	}
	return nil
}

// EnsureTicketInventoryTx bulk-creates ticket ledger rows with independent
// adult and child pools.
func (s *Store) EnsureTicketInventoryTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID int64, dates []time.Time, totalAdult, totalChild int) error {
	query := `
		INSERT INTO ticket_inventory (ticket_type_id, date, total_adult_tickets, available_adult_tickets, total_child_tickets, available_child_tickets)
		VALUES ($1, $2, $3, $3, $4, $4)`

	for _, d := range dates {
		if _, err := tx.ExecContext(ctx, query, ticketTypeID, d, totalAdult, totalChild); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("ticket inventory %d@%s: %w", ticketTypeID, d.Format("2006-01-02"), ErrDuplicateInventory)
			}
			return err
		}
	}
	return nil
}

// CheckRoomAvailabilityTx reports whether every date has available >= rooms.
// A missing ledger row counts as unavailable. Run inside the same transaction
// as the subsequent debit to avoid check-then-act races.
func (s *Store) CheckRoomAvailabilityTx(ctx context.Context, tx *sqlx.Tx, roomTypeID int64, dates []time.Time, rooms int) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM room_inventory
		WHERE room_type_id = $1 AND date = ANY($2) AND available_rooms >= $3`,
		roomTypeID, pq.Array(dates), rooms)
	if err != nil {
		return false, err
	}
	return n == len(dates), nil
}

// CheckRoomAvailability is the read-only variant used by search previews.
func (s *Store) CheckRoomAvailability(ctx context.Context, roomTypeID int64, dates []time.Time, rooms int) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM room_inventory
		WHERE room_type_id = $1 AND date = ANY($2) AND available_rooms >= $3`,
		roomTypeID, pq.Array(dates), rooms)
	if err != nil {
		return false, err
	}
	return n == len(dates), nil
}

// DebitRoomsTx decrements available_rooms for every date. Each decrement is
// conditional on sufficient capacity; a zero row count on any date returns
// ErrInsufficientInventory and the caller must roll back the transaction,
// undoing the dates already debited (partial debits are forbidden).
func (s *Store) DebitRoomsTx(ctx context.Context, tx *sqlx.Tx, roomTypeID int64, dates []time.Time, rooms int) error {
	query := `
		UPDATE room_inventory
		SET available_rooms = available_rooms - $1, updated_at = NOW()
		WHERE room_type_id = $2 AND date = $3 AND available_rooms >= $1`

	for _, d := range dates {
		res, err := tx.ExecContext(ctx, query, rooms, roomTypeID, d)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("room type %d on %s: %w", roomTypeID, d.Format("2006-01-02"), ErrInsufficientInventory)
		}
	}
	return nil
}

// CreditRoomsTx increments available_rooms for every date, clamped at
// total_rooms so the ledger invariant holds even against double-credit bugs.
func (s *Store) CreditRoomsTx(ctx context.Context, tx *sqlx.Tx, roomTypeID int64, dates []time.Time, rooms int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE room_inventory
		SET available_rooms = LEAST(available_rooms + $1, total_rooms), updated_at = NOW()
		WHERE room_type_id = $2 AND date = ANY($3)`,
		rooms, roomTypeID, pq.Array(dates))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(dates)) {
		return fmt.Errorf("room type %d: credited %d of %d dates: %w",
			roomTypeID, affected, len(dates), ErrLedgerInconsistent)
	}
	return nil
}

// DebitTicketsTx decrements both ticket pools for a single date in one
// conditional statement; either both pools have capacity or nothing changes.
func (s *Store) DebitTicketsTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID int64, date time.Time, adults, children int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_inventory
		SET available_adult_tickets = available_adult_tickets - $1,
		    available_child_tickets = available_child_tickets - $2,
		    updated_at = NOW()
		WHERE ticket_type_id = $3 AND date = $4
		  AND available_adult_tickets >= $1 AND available_child_tickets >= $2`,
		adults, children, ticketTypeID, date)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("ticket type %d on %s: %w", ticketTypeID, date.Format("2006-01-02"), ErrInsufficientInventory)
	}
	return nil
}

// CreditTicketsTx increments both pools, each clamped at its own total.
func (s *Store) CreditTicketsTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID int64, date time.Time, adults, children int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_inventory
		SET available_adult_tickets = LEAST(available_adult_tickets + $1, total_adult_tickets),
		    available_child_tickets = LEAST(available_child_tickets + $2, total_child_tickets),
		    updated_at = NOW()
		WHERE ticket_type_id = $3 AND date = $4`,
		adults, children, ticketTypeID, date)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return fmt.Errorf("ticket type %d: credited %d rows: %w", ticketTypeID, affected, ErrLedgerInconsistent)
	}
	return nil
}

// CheckTicketAvailabilityTx reports whether both pools can cover the request.
func (s *Store) CheckTicketAvailabilityTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID int64, date time.Time, adults, children int) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM ticket_inventory
		WHERE ticket_type_id = $1 AND date = $2
		  AND available_adult_tickets >= $3 AND available_child_tickets >= $4`,
		ticketTypeID, date, adults, children)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReconcileRoomCapacityTx applies a total_rooms change to ledger rows from a
// given date forward. The new available count is recomputed from what is
// currently reserved, never from the raw delta, so in-flight holds survive:
// new_available = max(new_total - (old_total - old_available), 0).
func (s *Store) ReconcileRoomCapacityTx(ctx context.Context, tx *sqlx.Tx, roomTypeID int64, from time.Time, newTotal int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE room_inventory
		SET available_rooms = GREATEST($1 - (total_rooms - available_rooms), 0),
		    total_rooms = $1,
		    updated_at = NOW()
		WHERE room_type_id = $2 AND date >= $3`,
		newTotal, roomTypeID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReconcileTicketCapacityTx is the ticket-pool analogue of
// ReconcileRoomCapacityTx, applied to each pool independently.
func (s *Store) ReconcileTicketCapacityTx(ctx context.Context, tx *sqlx.Tx, ticketTypeID int64, from time.Time, newAdultTotal, newChildTotal int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_inventory
		SET available_adult_tickets = GREATEST($1 - (total_adult_tickets - available_adult_tickets), 0),
		    total_adult_tickets = $1,
		    available_child_tickets = GREATEST($2 - (total_child_tickets - available_child_tickets), 0),
		    total_child_tickets = $2,
		    updated_at = NOW()
		WHERE ticket_type_id = $3 AND date >= $4`,
		newAdultTotal, newChildTotal, ticketTypeID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetRoomInventory lists ledger rows for a room type, optionally bounded.
func (s *Store) GetRoomInventory(ctx context.Context, roomTypeID int64, from, to time.Time) ([]models.RoomInventory, error) {
	var rows []models.RoomInventory
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM room_inventory
		WHERE room_type_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`,
		roomTypeID, from, to)
	return rows, err
}

// GetTicketInventory retrieves the ledger row for a ticket type and date.
func (s *Store) GetTicketInventory(ctx context.Context, ticketTypeID int64, date time.Time) (*models.TicketInventory, error) {
	var inv models.TicketInventory
	err := s.db.GetContext(ctx, &inv,
		"SELECT * FROM ticket_inventory WHERE ticket_type_id = $1 AND date = $2", ticketTypeID, date)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket inventory %d@%s: %w", ticketTypeID, date.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// OverrideRoomAvailability sets available_rooms directly for one row,
// clamped into [0, total_rooms]. Admin-only escape hatch.
func (s *Store) OverrideRoomAvailability(ctx context.Context, inventoryID int64, available int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE room_inventory
		SET available_rooms = LEAST(GREATEST($1, 0), total_rooms), updated_at = NOW()
		WHERE id = $2`,
		available, inventoryID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("room inventory %d: %w", inventoryID, ErrNotFound)
	}
	return nil
}
