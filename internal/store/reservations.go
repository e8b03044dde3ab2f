package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateReservation persists a new room reservation in PENDING state.
// The ledger is untouched; inventory is debited at confirmation.
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (lodge_id, room_type_id, user_id, check_in, check_out, adults, children, room_count, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, r, query,
		r.LodgeID, r.RoomTypeID, r.UserID, r.CheckIn, r.CheckOut,
		r.Adults, r.Children, r.RoomCount, r.TotalPrice, r.Status)
}

// GetReservationByID retrieves a room reservation by ID
func (s *Store) GetReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReservationByIDTx is GetReservationByID inside a transaction.
func (s *Store) GetReservationByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Reservation, error) {
	var r models.Reservation
	err := tx.GetContext(ctx, &r, "SELECT * FROM reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// TransitionReservationTx flips a reservation's status only if it currently
// holds the expected status, and reports whether the guard matched. Every
// state-machine edge goes through this conditional update, which is what
// makes confirm/cancel/sweep idempotent under concurrency.
func (s *Store) TransitionReservationTx(ctx context.Context, tx *sqlx.Tx, id int64, fromStatus, toStatus string, cancelReason *string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1, cancel_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		toStatus, cancelReason, id, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetReservationsByUserID lists a user's room reservations, newest first.
// Auto-expired cancellations are hidden; they were never acted on by anyone.
func (s *Store) GetReservationsByUserID(ctx context.Context, userID int64) ([]models.Reservation, error) {
	var rs []models.Reservation
	err := s.db.SelectContext(ctx, &rs, `
		SELECT * FROM reservations
		WHERE user_id = $1
		  AND (status <> 'CANCELLED' OR cancel_reason IS DISTINCT FROM 'AUTO_EXPIRED')
		ORDER BY created_at DESC`,
		userID)
	return rs, err
}

// GetAllReservations lists every room reservation, newest first (admin view).
func (s *Store) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	var rs []models.Reservation
	err := s.db.SelectContext(ctx, &rs, "SELECT * FROM reservations ORDER BY created_at DESC")
	return rs, err
}

// GetLiveReservationsByUserID lists a user's non-cancelled room reservations.
// Used by the user-deletion cascade.
func (s *Store) GetLiveReservationsByUserID(ctx context.Context, userID int64) ([]models.Reservation, error) {
	var rs []models.Reservation
	err := s.db.SelectContext(ctx, &rs,
		"SELECT * FROM reservations WHERE user_id = $1 AND status <> 'CANCELLED' ORDER BY id", userID)
	return rs, err
}

// SweptReservation identifies a reservation expired by the sweeper.
type SweptReservation struct {
	ID        int64 `db:"id"`
	UserID    int64 `db:"user_id"`
	ProductID int64 `db:"product_id"`
}

// SweepExpiredReservations transitions every PENDING room reservation created
// before cutoff to CANCELLED/AUTO_EXPIRED in one conditional statement. No
// ledger mutation: PENDING reservations never debited inventory. The status
// guard makes overlapping sweeps find nothing left to do.
func (s *Store) SweepExpiredReservations(ctx context.Context, cutoff time.Time) ([]SweptReservation, error) {
	var swept []SweptReservation
	err := s.db.SelectContext(ctx, &swept, `
		UPDATE reservations
		SET status = 'CANCELLED', cancel_reason = 'AUTO_EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND created_at < $1
		RETURNING id, user_id, room_type_id AS product_id`,
		cutoff)
	return swept, err
}

// CreateTicketReservation persists a new ticket reservation in PENDING state.
func (s *Store) CreateTicketReservation(ctx context.Context, r *models.TicketReservation) error {
	query := `
		INSERT INTO ticket_reservations (ticket_type_id, user_id, date, adults, children, first_name, last_name, email, phone_number, nationality, special_requests, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, r, query,
		r.TicketTypeID, r.UserID, r.Date, r.Adults, r.Children,
		r.FirstName, r.LastName, r.Email, r.PhoneNumber, r.Nationality,
		r.SpecialRequests, r.TotalPrice, r.Status)
}

// GetTicketReservationByID retrieves a ticket reservation by ID
func (s *Store) GetTicketReservationByID(ctx context.Context, id int64) (*models.TicketReservation, error) {
	var r models.TicketReservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM ticket_reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetTicketReservationByIDTx is GetTicketReservationByID inside a transaction.
func (s *Store) GetTicketReservationByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.TicketReservation, error) {
	var r models.TicketReservation
	err := tx.GetContext(ctx, &r, "SELECT * FROM ticket_reservations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket reservation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// TransitionTicketReservationTx is the ticket analogue of TransitionReservationTx.
func (s *Store) TransitionTicketReservationTx(ctx context.Context, tx *sqlx.Tx, id int64, fromStatus, toStatus string, cancelReason *string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_reservations
		SET status = $1, cancel_reason = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		toStatus, cancelReason, id, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetTicketReservationsByUserID lists a user's ticket reservations, newest
// first, hiding auto-expired cancellations.
func (s *Store) GetTicketReservationsByUserID(ctx context.Context, userID int64) ([]models.TicketReservation, error) {
	var rs []models.TicketReservation
	err := s.db.SelectContext(ctx, &rs, `
		SELECT * FROM ticket_reservations
		WHERE user_id = $1
		  AND (status <> 'CANCELLED' OR cancel_reason IS DISTINCT FROM 'AUTO_EXPIRED')
		ORDER BY created_at DESC`,
		userID)
	return rs, err
}

// GetLiveTicketReservationsByUserID lists a user's non-cancelled ticket reservations.
func (s *Store) GetLiveTicketReservationsByUserID(ctx context.Context, userID int64) ([]models.TicketReservation, error) {
	var rs []models.TicketReservation
	err := s.db.SelectContext(ctx, &rs,
		"SELECT * FROM ticket_reservations WHERE user_id = $1 AND status <> 'CANCELLED' ORDER BY id", userID)
	return rs, err
}

// SweepExpiredTicketReservations is the ticket analogue of SweepExpiredReservations.
func (s *Store) SweepExpiredTicketReservations(ctx context.Context, cutoff time.Time) ([]SweptReservation, error) {
	var swept []SweptReservation
	err := s.db.SelectContext(ctx, &swept, `
		UPDATE ticket_reservations
		SET status = 'CANCELLED', cancel_reason = 'AUTO_EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND created_at < $1
		RETURNING id, user_id, ticket_type_id AS product_id`,
		cutoff)
	return swept, err
}
