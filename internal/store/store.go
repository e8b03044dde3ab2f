package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reservation-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise. Read-then-write sequences against the ledger must go
// through here so availability checks and debits see the same snapshot.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateLodgeTx inserts a lodge within a transaction.
func (s *Store) CreateLodgeTx(ctx context.Context, tx *sqlx.Tx, lodge *models.Lodge) error {
	query := `
		INSERT INTO lodges (name, address, description, accommodation_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return tx.GetContext(ctx, lodge, query,
		lodge.Name, lodge.Address, lodge.Description, lodge.AccommodationType)
}

// GetLodgeByID retrieves a lodge by ID
func (s *Store) GetLodgeByID(ctx context.Context, id int64) (*models.Lodge, error) {
	var lodge models.Lodge
	err := s.db.GetContext(ctx, &lodge, "SELECT * FROM lodges WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lodge %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &lodge, nil
}

// GetLodges retrieves all lodges
func (s *Store) GetLodges(ctx context.Context) ([]models.Lodge, error) {
	var lodges []models.Lodge
	err := s.db.SelectContext(ctx, &lodges, "SELECT * FROM lodges ORDER BY id")
	return lodges, err
}

// CreateRoomTypeTx inserts a room type within a transaction.
func (s *Store) CreateRoomTypeTx(ctx context.Context, tx *sqlx.Tx, rt *models.RoomType) error {
	query := `
		INSERT INTO room_types (lodge_id, name, description, base_price, weekend_price, max_adults, max_children, total_rooms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return tx.GetContext(ctx, rt, query,
		rt.LodgeID, rt.Name, rt.Description, rt.BasePrice, rt.WeekendPrice,
		rt.MaxAdults, rt.MaxChildren, rt.TotalRooms)
}

// GetRoomTypeByID retrieves a room type by ID
func (s *Store) GetRoomTypeByID(ctx context.Context, id int64) (*models.RoomType, error) {
	var rt models.RoomType
	err := s.db.GetContext(ctx, &rt, "SELECT * FROM room_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room type %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// GetRoomTypesByLodge retrieves all room types for a lodge
func (s *Store) GetRoomTypesByLodge(ctx context.Context, lodgeID int64) ([]models.RoomType, error) {
	var rts []models.RoomType
	err := s.db.SelectContext(ctx, &rts,
		"SELECT * FROM room_types WHERE lodge_id = $1 ORDER BY id", lodgeID)
	return rts, err
}

// UpdateRoomTypeTx updates a room type's attributes within a transaction.
// Callers changing total_rooms must also reconcile the inventory ledger in
// the same transaction (see ReconcileRoomCapacityTx).
func (s *Store) UpdateRoomTypeTx(ctx context.Context, tx *sqlx.Tx, rt *models.RoomType) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE room_types
		SET name = $1, description = $2, base_price = $3, weekend_price = $4,
		    max_adults = $5, max_children = $6, total_rooms = $7
		WHERE id = $8`,
		rt.Name, rt.Description, rt.BasePrice, rt.WeekendPrice,
		rt.MaxAdults, rt.MaxChildren, rt.TotalRooms, rt.ID)
	return err
}

// CreateSeasonalPricingTx inserts seasonal pricing rows within a transaction.
// Position preserves list order; resolution is first match by date containment.
func (s *Store) CreateSeasonalPricingTx(ctx context.Context, tx *sqlx.Tx, rows []models.SeasonalPricing) error {
	for i := range rows {
		query := `
			INSERT INTO seasonal_pricing (room_type_id, from_date, to_date, base_price, weekend_price, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		if err := tx.GetContext(ctx, &rows[i].ID, query,
			rows[i].RoomTypeID, rows[i].From, rows[i].To,
			rows[i].BasePrice, rows[i].WeekendPrice, rows[i].Position); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSeasonalPricingTx removes all seasonal pricing for a room type, used
// when the list is replaced wholesale.
func (s *Store) DeleteSeasonalPricingTx(ctx context.Context, tx *sqlx.Tx, roomTypeID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM seasonal_pricing WHERE room_type_id = $1", roomTypeID)
	return err
}

// GetSeasonalPricing retrieves seasonal pricing for a room type in list order.
func (s *Store) GetSeasonalPricing(ctx context.Context, roomTypeID int64) ([]models.SeasonalPricing, error) {
	var rows []models.SeasonalPricing
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM seasonal_pricing WHERE room_type_id = $1 ORDER BY position, id", roomTypeID)
	return rows, err
}

// CreateTicketTypeTx inserts a ticket type within a transaction.
func (s *Store) CreateTicketTypeTx(ctx context.Context, tx *sqlx.Tx, tt *models.TicketType) error {
	query := `
		INSERT INTO ticket_types (lodge_id, name, description, adult_price, child_price, total_adult_tickets, total_child_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return tx.GetContext(ctx, tt, query,
		tt.LodgeID, tt.Name, tt.Description, tt.AdultPrice, tt.ChildPrice,
		tt.TotalAdultTickets, tt.TotalChildTickets)
}

// GetTicketTypeByID retrieves a ticket type by ID
func (s *Store) GetTicketTypeByID(ctx context.Context, id int64) (*models.TicketType, error) {
	var tt models.TicketType
	err := s.db.GetContext(ctx, &tt, "SELECT * FROM ticket_types WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket type %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tt, nil
}
