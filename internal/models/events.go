package models

import "time"

// Event types
const (
	EventTypeReservationCreated   = "RESERVATION_CREATED"
	EventTypeReservationConfirmed = "RESERVATION_CONFIRMED"
	EventTypeReservationCancelled = "RESERVATION_CANCELLED"
	EventTypeReservationExpired   = "RESERVATION_EXPIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCreatedEvent published when a reservation enters PENDING
type ReservationCreatedEvent struct {
	BaseEvent
	Kind          string `json:"kind"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	ProductID     int64  `json:"product_id"`
	TotalPrice    int64  `json:"total_price"`
}

// ReservationConfirmedEvent published after a successful ledger debit
type ReservationConfirmedEvent struct {
	BaseEvent
	Kind          string `json:"kind"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	ProductID     int64  `json:"product_id"`
	TotalPrice    int64  `json:"total_price"`
}

// ReservationCancelledEvent published on cancellation; Credited reports
// whether the ledger was credited back (only when cancelling a CONFIRMED
// reservation for a user or admin reason).
type ReservationCancelledEvent struct {
	BaseEvent
	Kind          string `json:"kind"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	ProductID     int64  `json:"product_id"`
	CancelReason  string `json:"cancel_reason"`
	Credited      bool   `json:"credited"`
}

// ReservationExpiredEvent published per reservation swept by the expiry job
type ReservationExpiredEvent struct {
	BaseEvent
	Kind          string `json:"kind"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	ProductID     int64  `json:"product_id"`
}
