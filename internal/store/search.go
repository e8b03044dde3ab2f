package store

import (
	"context"
	"time"

	"github.com/lib/pq"
)

// Read-side availability queries. These use the same every-date-in-range
// semantics as the ledger's availability check so search never surfaces a
// product that a subsequent confirm would reject.

// RoomSearchRow is a room type joined with its lodge and the minimum
// available count across the requested dates.
type RoomSearchRow struct {
	RoomTypeID     int64  `db:"room_type_id"`
	LodgeID        int64  `db:"lodge_id"`
	LodgeName      string `db:"lodge_name"`
	LodgeAddress   string `db:"lodge_address"`
	Name           string `db:"name"`
	Description    string `db:"description"`
	BasePrice      int64  `db:"base_price"`
	WeekendPrice   *int64 `db:"weekend_price"`
	MaxAdults      int    `db:"max_adults"`
	MaxChildren    int    `db:"max_children"`
	TotalRooms     int    `db:"total_rooms"`
	AvailableRooms int    `db:"available_rooms"`
}

// SearchAvailableRooms returns room types whose capacity fits the party and
// whose ledger shows available >= rooms on every requested date. A room
// type missing a ledger row for any date is excluded by the COUNT guard.
func (s *Store) SearchAvailableRooms(ctx context.Context, dates []time.Time, adults, children, rooms int, lodgeID int64, region string) ([]RoomSearchRow, error) {
	query := `
		SELECT rt.id AS room_type_id, rt.lodge_id, l.name AS lodge_name, l.address AS lodge_address,
		       rt.name, rt.description, rt.base_price, rt.weekend_price,
		       rt.max_adults, rt.max_children, rt.total_rooms,
		       MIN(ri.available_rooms) AS available_rooms
		FROM room_types rt
		JOIN lodges l ON l.id = rt.lodge_id
		JOIN room_inventory ri ON ri.room_type_id = rt.id
		WHERE ri.date = ANY($1)
		  AND rt.max_adults >= $2 AND rt.max_children >= $3
		  AND ($4 = 0 OR rt.lodge_id = $4)
		  AND ($5 = '' OR l.address ILIKE '%' || $5 || '%')
		GROUP BY rt.id, l.id
		HAVING COUNT(ri.id) = $6 AND MIN(ri.available_rooms) >= $7
		ORDER BY rt.id`

	var rows []RoomSearchRow
	err := s.db.SelectContext(ctx, &rows, query,
		pq.Array(dates), adults, children, lodgeID, region, len(dates), rooms)
	return rows, err
}

// TicketSearchRow is a ticket type joined with its lodge and the pool
// availability on the requested date.
type TicketSearchRow struct {
	TicketTypeID          int64  `db:"ticket_type_id"`
	LodgeID               int64  `db:"lodge_id"`
	LodgeName             string `db:"lodge_name"`
	LodgeAddress          string `db:"lodge_address"`
	Name                  string `db:"name"`
	Description           string `db:"description"`
	AdultPrice            int64  `db:"adult_price"`
	ChildPrice            int64  `db:"child_price"`
	AvailableAdultTickets int    `db:"available_adult_tickets"`
	AvailableChildTickets int    `db:"available_child_tickets"`
}

// SearchAvailableTickets returns ticket types with enough capacity in both
// pools on the requested date.
func (s *Store) SearchAvailableTickets(ctx context.Context, date time.Time, adults, children int, region string) ([]TicketSearchRow, error) {
	query := `
		SELECT tt.id AS ticket_type_id, tt.lodge_id, l.name AS lodge_name, l.address AS lodge_address,
		       tt.name, tt.description, tt.adult_price, tt.child_price,
		       ti.available_adult_tickets, ti.available_child_tickets
		FROM ticket_inventory ti
		JOIN ticket_types tt ON tt.id = ti.ticket_type_id
		JOIN lodges l ON l.id = tt.lodge_id
		WHERE ti.date = $1
		  AND ti.available_adult_tickets >= $2
		  AND ti.available_child_tickets >= $3
		  AND ($4 = '' OR l.address ILIKE '%' || $4 || '%')
		ORDER BY tt.id`

	var rows []TicketSearchRow
	err := s.db.SelectContext(ctx, &rows, query, date, adults, children, region)
	return rows, err
}
