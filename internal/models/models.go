package models

import "time"

// Lodge is the owning entity for room types and ticket types.
type Lodge struct {
	ID                int64     `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Address           string    `db:"address" json:"address"`
	Description       string    `db:"description" json:"description"`
	AccommodationType string    `db:"accommodation_type" json:"accommodation_type"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// RoomType is a reservable room category belonging to a lodge.
// WeekendPrice is optional; when nil the base price applies on weekends too.
type RoomType struct {
	ID           int64     `db:"id" json:"id"`
	LodgeID      int64     `db:"lodge_id" json:"lodge_id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	BasePrice    int64     `db:"base_price" json:"base_price"`
	WeekendPrice *int64    `db:"weekend_price" json:"weekend_price,omitempty"`
	MaxAdults    int       `db:"max_adults" json:"max_adults"`
	MaxChildren  int       `db:"max_children" json:"max_children"`
	TotalRooms   int       `db:"total_rooms" json:"total_rooms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SeasonalPricing overrides a room type's prices inside [From, To] inclusive.
// Ranges are kept as an ordered list; the first range containing a date wins.
type SeasonalPricing struct {
	ID           int64     `db:"id" json:"id"`
	RoomTypeID   int64     `db:"room_type_id" json:"room_type_id"`
	From         time.Time `db:"from_date" json:"from"`
	To           time.Time `db:"to_date" json:"to"`
	BasePrice    int64     `db:"base_price" json:"base_price"`
	WeekendPrice int64     `db:"weekend_price" json:"weekend_price"`
	Position     int       `db:"position" json:"position"`
}

// TicketType is a reservable day-ticket category belonging to a lodge.
// Tickets are single-day only and carry separate adult and child pools.
type TicketType struct {
	ID                int64     `db:"id" json:"id"`
	LodgeID           int64     `db:"lodge_id" json:"lodge_id"`
	Name              string    `db:"name" json:"name"`
	Description       string    `db:"description" json:"description"`
	AdultPrice        int64     `db:"adult_price" json:"adult_price"`
	ChildPrice        int64     `db:"child_price" json:"child_price"`
	TotalAdultTickets int       `db:"total_adult_tickets" json:"total_adult_tickets"`
	TotalChildTickets int       `db:"total_child_tickets" json:"total_child_tickets"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// RoomInventory is the per-(room type, date) capacity ledger row.
// Invariant: 0 <= available_rooms <= total_rooms.
type RoomInventory struct {
	ID             int64     `db:"id" json:"id"`
	LodgeID        int64     `db:"lodge_id" json:"lodge_id"`
	RoomTypeID     int64     `db:"room_type_id" json:"room_type_id"`
	Date           time.Time `db:"date" json:"date"`
	TotalRooms     int       `db:"total_rooms" json:"total_rooms"`
	AvailableRooms int       `db:"available_rooms" json:"available_rooms"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TicketInventory is the per-(ticket type, date) ledger row with independent
// adult and child pools, each with its own 0 <= available <= total invariant.
type TicketInventory struct {
	ID                    int64     `db:"id" json:"id"`
	TicketTypeID          int64     `db:"ticket_type_id" json:"ticket_type_id"`
	Date                  time.Time `db:"date" json:"date"`
	TotalAdultTickets     int       `db:"total_adult_tickets" json:"total_adult_tickets"`
	AvailableAdultTickets int       `db:"available_adult_tickets" json:"available_adult_tickets"`
	TotalChildTickets     int       `db:"total_child_tickets" json:"total_child_tickets"`
	AvailableChildTickets int       `db:"available_child_tickets" json:"available_child_tickets"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Reservation is a room booking. CheckIn is inclusive, CheckOut exclusive:
// a 07-01..07-03 stay occupies inventory on 07-01 and 07-02 only.
type Reservation struct {
	ID           int64     `db:"id" json:"id"`
	LodgeID      int64     `db:"lodge_id" json:"lodge_id"`
	RoomTypeID   int64     `db:"room_type_id" json:"room_type_id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	CheckIn      time.Time `db:"check_in" json:"check_in"`
	CheckOut     time.Time `db:"check_out" json:"check_out"`
	Adults       int       `db:"adults" json:"adults"`
	Children     int       `db:"children" json:"children"`
	RoomCount    int       `db:"room_count" json:"room_count"`
	TotalPrice   int64     `db:"total_price" json:"total_price"`
	Status       string    `db:"status" json:"status"`
	CancelReason *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TicketReservation is a single-date ticket booking.
type TicketReservation struct {
	ID              int64     `db:"id" json:"id"`
	TicketTypeID    int64     `db:"ticket_type_id" json:"ticket_type_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Date            time.Time `db:"date" json:"date"`
	Adults          int       `db:"adults" json:"adults"`
	Children        int       `db:"children" json:"children"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Email           string    `db:"email" json:"email,omitempty"`
	PhoneNumber     string    `db:"phone_number" json:"phone_number"`
	Nationality     string    `db:"nationality" json:"nationality,omitempty"`
	SpecialRequests string    `db:"special_requests" json:"special_requests,omitempty"`
	TotalPrice      int64     `db:"total_price" json:"total_price"`
	Status          string    `db:"status" json:"status"`
	CancelReason    *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Reservation statuses
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusCancelled = "CANCELLED"
)

// Cancel reasons
const (
	CancelReasonUserRequested = "USER_REQUESTED"
	CancelReasonAdminForced   = "ADMIN_FORCED"
	CancelReasonAutoExpired   = "AUTO_EXPIRED"
)

// ValidCancelReason reports whether reason is one of the known enum values.
func ValidCancelReason(reason string) bool {
	switch reason {
	case CancelReasonUserRequested, CancelReasonAdminForced, CancelReasonAutoExpired:
		return true
	}
	return false
}

// ReservationKind distinguishes room and ticket reservations in events and audit rows.
const (
	ReservationKindRoom   = "ROOM"
	ReservationKindTicket = "TICKET"
)

// ReservationAuditRecord is a row in the reservation_events audit table,
// written by the audit worker from consumed lifecycle events.
type ReservationAuditRecord struct {
	ID            int64     `db:"id"`
	EventID       string    `db:"event_id"`
	EventType     string    `db:"event_type"`
	Kind          string    `db:"kind"`
	ReservationID int64     `db:"reservation_id"`
	UserID        int64     `db:"user_id"`
	Payload       []byte    `db:"payload"`
	OccurredAt    time.Time `db:"occurred_at"`
	RecordedAt    time.Time `db:"recorded_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
