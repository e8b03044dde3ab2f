package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/pricing"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CatalogService owns product administration: lodges, room types, ticket
// types, seasonal pricing, and the inventory ledger bootstrap. Creating a
// product and seeding its ledger happen in one transaction so a product can
// never exist without inventory rows.
type CatalogService struct {
	store       *store.Store
	logger      *zap.Logger
	horizonDays int
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store, horizonDays int) *CatalogService {
	return &CatalogService{
		store:       store,
		logger:      util.GetLogger(),
		horizonDays: horizonDays,
	}
}

// SeasonalPricingInput is one seasonal override range, inclusive on both ends.
type SeasonalPricingInput struct {
	From         string `json:"from" binding:"required"`
	To           string `json:"to" binding:"required"`
	BasePrice    int64  `json:"base_price" binding:"required,min=0"`
	WeekendPrice int64  `json:"weekend_price" binding:"required,min=0"`
}

// RoomTypeInput describes a room type nested under a lodge creation request.
type RoomTypeInput struct {
	Name            string                 `json:"name" binding:"required"`
	Description     string                 `json:"description"`
	BasePrice       int64                  `json:"base_price" binding:"required,min=0"`
	WeekendPrice    *int64                 `json:"weekend_price"`
	MaxAdults       int                    `json:"max_adults" binding:"required,min=1"`
	MaxChildren     int                    `json:"max_children" binding:"min=0"`
	TotalRooms      int                    `json:"total_rooms" binding:"required,min=1"`
	SeasonalPricing []SeasonalPricingInput `json:"seasonal_pricing"`
}

// CreateLodgeRequest creates a lodge together with its room types.
type CreateLodgeRequest struct {
	Name              string          `json:"name" binding:"required"`
	Address           string          `json:"address" binding:"required"`
	Description       string          `json:"description"`
	AccommodationType string          `json:"accommodation_type" binding:"required"`
	RoomTypes         []RoomTypeInput `json:"room_types"`
}

// CreateLodge inserts the lodge, its room types, their seasonal pricing, and
// a full inventory horizon per room type, all in one transaction.
func (s *CatalogService) CreateLodge(ctx context.Context, req *CreateLodgeRequest) (*models.Lodge, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateLodge")
	defer span.End()

	lodge := &models.Lodge{
		Name:              req.Name,
		Address:           req.Address,
		Description:       req.Description,
		AccommodationType: req.AccommodationType,
	}

	seasonRows := make([][]models.SeasonalPricing, len(req.RoomTypes))
	for i, rtIn := range req.RoomTypes {
		rows, err := parseSeasonalPricing(rtIn.SeasonalPricing)
		if err != nil {
			return nil, err
		}
		seasonRows[i] = rows
	}

	dates := pricing.HorizonDates(time.Now(), s.horizonDays)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.CreateLodgeTx(ctx, tx, lodge); err != nil {
			return fmt.Errorf("failed to create lodge: %w", err)
		}

		for i := range req.RoomTypes {
			rtIn := &req.RoomTypes[i]
			rt := &models.RoomType{
				LodgeID:      lodge.ID,
				Name:         rtIn.Name,
				Description:  rtIn.Description,
				BasePrice:    rtIn.BasePrice,
				WeekendPrice: rtIn.WeekendPrice,
				MaxAdults:    rtIn.MaxAdults,
				MaxChildren:  rtIn.MaxChildren,
				TotalRooms:   rtIn.TotalRooms,
			}
			if err := s.store.CreateRoomTypeTx(ctx, tx, rt); err != nil {
				return fmt.Errorf("failed to create room type %q: %w", rt.Name, err)
			}

			for j := range seasonRows[i] {
				seasonRows[i][j].RoomTypeID = rt.ID
			}
			if err := s.store.CreateSeasonalPricingTx(ctx, tx, seasonRows[i]); err != nil {
				return fmt.Errorf("failed to create seasonal pricing for %q: %w", rt.Name, err)
			}

			if err := s.store.EnsureRoomInventoryTx(ctx, tx, lodge.ID, rt.ID, dates, rt.TotalRooms); err != nil {
				return fmt.Errorf("failed to seed inventory for %q: %w", rt.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lodge created",
		zap.Int64("lodge_id", lodge.ID),
		zap.Int("room_types", len(req.RoomTypes)),
		zap.Int("horizon_days", s.horizonDays))

	return lodge, nil
}

// GetLodge returns one lodge with its room types.
func (s *CatalogService) GetLodge(ctx context.Context, id int64) (*models.Lodge, []models.RoomType, error) {
	lodge, err := s.store.GetLodgeByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("lodge %d: %w", id, ErrProductNotFound)
		}
		return nil, nil, err
	}
	rts, err := s.store.GetRoomTypesByLodge(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return lodge, rts, nil
}

// ListLodges returns all lodges.
func (s *CatalogService) ListLodges(ctx context.Context) ([]models.Lodge, error) {
	return s.store.GetLodges(ctx)
}

// UpdateRoomTypeRequest carries the updatable room type attributes.
type UpdateRoomTypeRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	BasePrice    int64  `json:"base_price" binding:"required,min=0"`
	WeekendPrice *int64 `json:"weekend_price"`
	MaxAdults    int    `json:"max_adults" binding:"required,min=1"`
	MaxChildren  int    `json:"max_children" binding:"min=0"`
	TotalRooms   int    `json:"total_rooms" binding:"required,min=1"`
}

// UpdateRoomType updates a room type. If total_rooms changes, ledger rows
// from today forward are reconciled in the same transaction so rooms already
// held by confirmed reservations stay held.
func (s *CatalogService) UpdateRoomType(ctx context.Context, roomTypeID int64, req *UpdateRoomTypeRequest) (*models.RoomType, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateRoomType")
	defer span.End()

	rt, err := s.store.GetRoomTypeByID(ctx, roomTypeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("room type %d: %w", roomTypeID, ErrProductNotFound)
		}
		return nil, err
	}

	capacityChanged := rt.TotalRooms != req.TotalRooms

	rt.Name = req.Name
	rt.Description = req.Description
	rt.BasePrice = req.BasePrice
	rt.WeekendPrice = req.WeekendPrice
	rt.MaxAdults = req.MaxAdults
	rt.MaxChildren = req.MaxChildren
	rt.TotalRooms = req.TotalRooms

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.UpdateRoomTypeTx(ctx, tx, rt); err != nil {
			return err
		}
		if capacityChanged {
			affected, err := s.store.ReconcileRoomCapacityTx(ctx, tx, rt.ID, pricing.DateOnly(time.Now()), rt.TotalRooms)
			if err != nil {
				return fmt.Errorf("failed to reconcile room capacity: %w", err)
			}
			s.logger.Info("Room capacity reconciled",
				zap.Int64("room_type_id", rt.ID),
				zap.Int("new_total", rt.TotalRooms),
				zap.Int64("ledger_rows", affected))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rt, nil
}

// ReplaceSeasonalPricing validates and replaces the full seasonal pricing
// list for a room type. Existing reservations keep their locked-in prices.
func (s *CatalogService) ReplaceSeasonalPricing(ctx context.Context, roomTypeID int64, inputs []SeasonalPricingInput) ([]models.SeasonalPricing, error) {
	if _, err := s.store.GetRoomTypeByID(ctx, roomTypeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("room type %d: %w", roomTypeID, ErrProductNotFound)
		}
		return nil, err
	}

	rows, err := parseSeasonalPricing(inputs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].RoomTypeID = roomTypeID
	}

	err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.DeleteSeasonalPricingTx(ctx, tx, roomTypeID); err != nil {
			return err
		}
		return s.store.CreateSeasonalPricingTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateTicketTypeRequest creates a ticket type with its inventory horizon.
type CreateTicketTypeRequest struct {
	LodgeID           int64  `json:"lodge_id" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	AdultPrice        int64  `json:"adult_price" binding:"required,min=0"`
	ChildPrice        int64  `json:"child_price" binding:"min=0"`
	TotalAdultTickets int    `json:"total_adult_tickets" binding:"required,min=1"`
	TotalChildTickets int    `json:"total_child_tickets" binding:"min=0"`
}

// CreateTicketType inserts the ticket type and seeds its ledger in one
// transaction.
func (s *CatalogService) CreateTicketType(ctx context.Context, req *CreateTicketTypeRequest) (*models.TicketType, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateTicketType")
	defer span.End()

	if _, err := s.store.GetLodgeByID(ctx, req.LodgeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lodge %d: %w", req.LodgeID, ErrProductNotFound)
		}
		return nil, err
	}

	tt := &models.TicketType{
		LodgeID:           req.LodgeID,
		Name:              req.Name,
		Description:       req.Description,
		AdultPrice:        req.AdultPrice,
		ChildPrice:        req.ChildPrice,
		TotalAdultTickets: req.TotalAdultTickets,
		TotalChildTickets: req.TotalChildTickets,
	}
	dates := pricing.HorizonDates(time.Now(), s.horizonDays)

	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.CreateTicketTypeTx(ctx, tx, tt); err != nil {
			return fmt.Errorf("failed to create ticket type: %w", err)
		}
		if err := s.store.EnsureTicketInventoryTx(ctx, tx, tt.ID, dates, tt.TotalAdultTickets, tt.TotalChildTickets); err != nil {
			return fmt.Errorf("failed to seed ticket inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ticket type created",
		zap.Int64("ticket_type_id", tt.ID),
		zap.Int64("lodge_id", tt.LodgeID))

	return tt, nil
}

// UpdateTicketCapacity changes the pool totals and reconciles ledger rows
// from today forward.
func (s *CatalogService) UpdateTicketCapacity(ctx context.Context, ticketTypeID int64, newAdultTotal, newChildTotal int) error {
	if newAdultTotal < 0 || newChildTotal < 0 {
		return invalidField("total_tickets", "must not be negative")
	}
	if _, err := s.store.GetTicketTypeByID(ctx, ticketTypeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("ticket type %d: %w", ticketTypeID, ErrProductNotFound)
		}
		return err
	}

	return s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		affected, err := s.store.ReconcileTicketCapacityTx(ctx, tx, ticketTypeID, pricing.DateOnly(time.Now()), newAdultTotal, newChildTotal)
		if err != nil {
			return fmt.Errorf("failed to reconcile ticket capacity: %w", err)
		}
		s.logger.Info("Ticket capacity reconciled",
			zap.Int64("ticket_type_id", ticketTypeID),
			zap.Int64("ledger_rows", affected))
		return nil
	})
}

// GetRoomInventory lists ledger rows for a room type in [from, to).
func (s *CatalogService) GetRoomInventory(ctx context.Context, roomTypeID int64, from, to string) ([]models.RoomInventory, error) {
	f, t, err := parseStayDates(from, to)
	if err != nil {
		return nil, err
	}
	return s.store.GetRoomInventory(ctx, roomTypeID, f, t)
}

// OverrideRoomAvailability sets one ledger row's available count directly.
// The store clamps the value into [0, total].
func (s *CatalogService) OverrideRoomAvailability(ctx context.Context, inventoryID int64, available int) error {
	err := s.store.OverrideRoomAvailability(ctx, inventoryID, available)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("inventory row %d: %w", inventoryID, ErrProductNotFound)
	}
	if err == nil {
		s.logger.Warn("Room availability overridden",
			zap.Int64("inventory_id", inventoryID),
			zap.Int("available", available))
	}
	return err
}

// parseSeasonalPricing validates date formats, range order, and pairwise
// non-overlap, and assigns list positions.
func parseSeasonalPricing(inputs []SeasonalPricingInput) ([]models.SeasonalPricing, error) {
	rows := make([]models.SeasonalPricing, 0, len(inputs))
	for i, in := range inputs {
		from, err := time.Parse("2006-01-02", in.From)
		if err != nil {
			return nil, invalidField("seasonal_pricing.from", "must be YYYY-MM-DD")
		}
		to, err := time.Parse("2006-01-02", in.To)
		if err != nil {
			return nil, invalidField("seasonal_pricing.to", "must be YYYY-MM-DD")
		}
		from, to = pricing.DateOnly(from), pricing.DateOnly(to)
		if to.Before(from) {
			return nil, invalidField("seasonal_pricing", "range end before start")
		}
		for _, prev := range rows {
			if pricing.Overlaps(prev.From, prev.To, from, to) {
				return nil, invalidField("seasonal_pricing", "ranges must not overlap")
			}
		}
		rows = append(rows, models.SeasonalPricing{
			From:         from,
			To:           to,
			BasePrice:    in.BasePrice,
			WeekendPrice: in.WeekendPrice,
			Position:     i,
		})
	}
	return rows, nil
}
