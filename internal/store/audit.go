package store

import (
	"context"

	"reservation-service/internal/models"
)

// RecordReservationEvent appends a lifecycle event to the audit table.
func (s *Store) RecordReservationEvent(ctx context.Context, rec *models.ReservationAuditRecord) error {
	query := `
		INSERT INTO reservation_events (event_id, event_type, kind, reservation_id, user_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, recorded_at`

	return s.db.GetContext(ctx, rec, query,
		rec.EventID, rec.EventType, rec.Kind, rec.ReservationID, rec.UserID,
		rec.Payload, rec.OccurredAt)
}

// GetReservationEvents lists the audit trail for one reservation.
func (s *Store) GetReservationEvents(ctx context.Context, kind string, reservationID int64) ([]models.ReservationAuditRecord, error) {
	var recs []models.ReservationAuditRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM reservation_events
		WHERE kind = $1 AND reservation_id = $2
		ORDER BY occurred_at`,
		kind, reservationID)
	return recs, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
