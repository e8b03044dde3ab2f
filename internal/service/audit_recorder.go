package service

import (
	"context"
	"encoding/json"
	"fmt"

	"reservation-service/internal/models"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// AuditRecorder consumes reservation lifecycle events and appends them to the
// reservation_events audit table. Kafka delivers at least once, so every
// handler checks processed_events by event ID before writing.
type AuditRecorder struct {
	store  *store.Store
	logger *zap.Logger
}

// NewAuditRecorder creates a new audit recorder
func NewAuditRecorder(store *store.Store) *AuditRecorder {
	return &AuditRecorder{
		store:  store,
		logger: util.GetLogger(),
	}
}

func (ar *AuditRecorder) record(ctx context.Context, base models.BaseEvent, kind string, reservationID, userID int64, event interface{}) error {
	processed, err := ar.store.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ar.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	rec := &models.ReservationAuditRecord{
		EventID:       base.EventID,
		EventType:     base.EventType,
		Kind:          kind,
		ReservationID: reservationID,
		UserID:        userID,
		Payload:       payload,
		OccurredAt:    base.Timestamp,
	}
	if err := ar.store.RecordReservationEvent(ctx, rec); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	if err := ar.store.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		ar.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	ar.logger.Info("Audit event recorded",
		zap.String("event_type", base.EventType),
		zap.String("kind", kind),
		zap.Int64("reservation_id", reservationID))
	return nil
}

// HandleReservationCreated records a ReservationCreated event
func (ar *AuditRecorder) HandleReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditRecorder.HandleReservationCreated")
	defer span.End()
	return ar.record(ctx, event.BaseEvent, event.Kind, event.ReservationID, event.UserID, event)
}

// HandleReservationConfirmed records a ReservationConfirmed event
func (ar *AuditRecorder) HandleReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditRecorder.HandleReservationConfirmed")
	defer span.End()
	return ar.record(ctx, event.BaseEvent, event.Kind, event.ReservationID, event.UserID, event)
}

// HandleReservationCancelled records a ReservationCancelled event
func (ar *AuditRecorder) HandleReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditRecorder.HandleReservationCancelled")
	defer span.End()
	return ar.record(ctx, event.BaseEvent, event.Kind, event.ReservationID, event.UserID, event)
}

// HandleReservationExpired records a ReservationExpired event
func (ar *AuditRecorder) HandleReservationExpired(ctx context.Context, event *models.ReservationExpiredEvent) error {
	ctx, span := util.StartSpan(ctx, "AuditRecorder.HandleReservationExpired")
	defer span.End()
	return ar.record(ctx, event.BaseEvent, event.Kind, event.ReservationID, event.UserID, event)
}

// GetAuditTrail lists recorded events for one reservation in time order.
func (ar *AuditRecorder) GetAuditTrail(ctx context.Context, kind string, reservationID int64) ([]models.ReservationAuditRecord, error) {
	if kind != models.ReservationKindRoom && kind != models.ReservationKindTicket {
		return nil, invalidField("kind", "must be ROOM or TICKET")
	}
	return ar.store.GetReservationEvents(ctx, kind, reservationID)
}
