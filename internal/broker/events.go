package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"reservation-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing reservation lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Events for the same reservation share a key so consumers see them in order.
func reservationKey(kind string, reservationID int64) string {
	return fmt.Sprintf("reservation-%s-%d", kind, reservationID)
}

// PublishReservationCreated publishes ReservationCreated event
func (ep *EventPublisher) PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.Kind, event.ReservationID), event)
}

// PublishReservationConfirmed publishes ReservationConfirmed event
func (ep *EventPublisher) PublishReservationConfirmed(ctx context.Context, event *models.ReservationConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.Kind, event.ReservationID), event)
}

// PublishReservationCancelled publishes ReservationCancelled event
func (ep *EventPublisher) PublishReservationCancelled(ctx context.Context, event *models.ReservationCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.Kind, event.ReservationID), event)
}

// PublishReservationExpired publishes ReservationExpired event
func (ep *EventPublisher) PublishReservationExpired(ctx context.Context, event *models.ReservationExpiredEvent) error {
	return ep.producer.PublishEvent(ctx, reservationKey(event.Kind, event.ReservationID), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onCreated   func(context.Context, *models.ReservationCreatedEvent) error
	onConfirmed func(context.Context, *models.ReservationConfirmedEvent) error
	onCancelled func(context.Context, *models.ReservationCancelledEvent) error
	onExpired   func(context.Context, *models.ReservationExpiredEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnReservationCreated registers a handler for ReservationCreated events
func (eh *EventHandler) OnReservationCreated(handler func(context.Context, *models.ReservationCreatedEvent) error) {
	eh.onCreated = handler
}

// OnReservationConfirmed registers a handler for ReservationConfirmed events
func (eh *EventHandler) OnReservationConfirmed(handler func(context.Context, *models.ReservationConfirmedEvent) error) {
	eh.onConfirmed = handler
}

// OnReservationCancelled registers a handler for ReservationCancelled events
func (eh *EventHandler) OnReservationCancelled(handler func(context.Context, *models.ReservationCancelledEvent) error) {
	eh.onCancelled = handler
}

// OnReservationExpired registers a handler for ReservationExpired events
func (eh *EventHandler) OnReservationExpired(handler func(context.Context, *models.ReservationExpiredEvent) error) {
	eh.onExpired = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeReservationCreated:
		if eh.onCreated != nil {
			var event models.ReservationCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationCreated event: %w", err)
			}
			return eh.onCreated(ctx, &event)
		}

	case models.EventTypeReservationConfirmed:
		if eh.onConfirmed != nil {
			var event models.ReservationConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationConfirmed event: %w", err)
			}
			return eh.onConfirmed(ctx, &event)
		}

	case models.EventTypeReservationCancelled:
		if eh.onCancelled != nil {
			var event models.ReservationCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationCancelled event: %w", err)
			}
			return eh.onCancelled(ctx, &event)
		}

	case models.EventTypeReservationExpired:
		if eh.onExpired != nil {
			var event models.ReservationExpiredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReservationExpired event: %w", err)
			}
			return eh.onExpired(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
