package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/models"
	"reservation-service/internal/pricing"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"go.uber.org/zap"
)

// AvailabilityService answers the read-side question "what is available, at
// what price, for these dates and this party". It never mutates the ledger;
// quoted prices are projections, locked in only at reservation creation.
type AvailabilityService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(store *store.Store, redis *redisclient.Client) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

const searchCacheTTL = 30 * time.Second

// RoomSearchCriteria filters the room availability search.
type RoomSearchCriteria struct {
	CheckIn   string `form:"check_in" binding:"required"`
	CheckOut  string `form:"check_out" binding:"required"`
	Adults    int    `form:"adults" binding:"required,min=1"`
	Children  int    `form:"children" binding:"min=0"`
	RoomCount int    `form:"room_count" binding:"min=1"`
	LodgeID   int64  `form:"lodge_id"`
	Region    string `form:"region"`
}

// RoomSearchResult is a bookable room type with a computed stay price.
type RoomSearchResult struct {
	RoomTypeID     int64  `json:"room_type_id"`
	LodgeID        int64  `json:"lodge_id"`
	LodgeName      string `json:"lodge_name"`
	LodgeAddress   string `json:"lodge_address"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	MaxAdults      int    `json:"max_adults"`
	MaxChildren    int    `json:"max_children"`
	AvailableRooms int    `json:"available_rooms"`
	TotalPrice     int64  `json:"total_price"`
}

// SearchRooms lists room types bookable for the whole stay, augmented with
// the current total price for the requested room count.
func (s *AvailabilityService) SearchRooms(ctx context.Context, criteria *RoomSearchCriteria) ([]RoomSearchResult, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.SearchRooms")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SearchLatency.Observe(time.Since(start).Seconds())
	}()

	checkIn, checkOut, err := parseStayDates(criteria.CheckIn, criteria.CheckOut)
	if err != nil {
		return nil, err
	}
	if criteria.RoomCount < 1 {
		criteria.RoomCount = 1
	}

	cacheKey := fmt.Sprintf("search:rooms:%s:%s:%d:%d:%d:%d:%s",
		criteria.CheckIn, criteria.CheckOut, criteria.Adults, criteria.Children,
		criteria.RoomCount, criteria.LodgeID, criteria.Region)
	var cached []RoomSearchResult
	if ok, err := s.redis.GetCachedSearch(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	nights := pricing.Nights(checkIn, checkOut)
	rows, err := s.store.SearchAvailableRooms(ctx, nights,
		criteria.Adults, criteria.Children, criteria.RoomCount, criteria.LodgeID, criteria.Region)
	if err != nil {
		return nil, fmt.Errorf("room search failed: %w", err)
	}

	results := make([]RoomSearchResult, 0, len(rows))
	for _, row := range rows {
		rt := &models.RoomType{
			ID:           row.RoomTypeID,
			LodgeID:      row.LodgeID,
			BasePrice:    row.BasePrice,
			WeekendPrice: row.WeekendPrice,
		}
		seasons, err := s.store.GetSeasonalPricing(ctx, row.RoomTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load seasonal pricing: %w", err)
		}

		results = append(results, RoomSearchResult{
			RoomTypeID:     row.RoomTypeID,
			LodgeID:        row.LodgeID,
			LodgeName:      row.LodgeName,
			LodgeAddress:   row.LodgeAddress,
			Name:           row.Name,
			Description:    row.Description,
			MaxAdults:      row.MaxAdults,
			MaxChildren:    row.MaxChildren,
			AvailableRooms: row.AvailableRooms,
			TotalPrice:     pricing.TotalRoomPrice(rt, seasons, checkIn, checkOut, criteria.RoomCount),
		})
	}

	if err := s.redis.SetCachedSearch(ctx, cacheKey, results, searchCacheTTL); err != nil {
		s.logger.Warn("Failed to cache search results", zap.Error(err))
	}

	return results, nil
}

// TicketSearchCriteria filters the ticket availability search.
type TicketSearchCriteria struct {
	Date     string `form:"date" binding:"required"`
	Adults   int    `form:"adults" binding:"required,min=1"`
	Children int    `form:"children" binding:"min=0"`
	Region   string `form:"region"`
}

// TicketSearchResult is a bookable ticket type with a computed party price.
type TicketSearchResult struct {
	TicketTypeID          int64  `json:"ticket_type_id"`
	LodgeID               int64  `json:"lodge_id"`
	LodgeName             string `json:"lodge_name"`
	LodgeAddress          string `json:"lodge_address"`
	Name                  string `json:"name"`
	Description           string `json:"description"`
	AdultPrice            int64  `json:"adult_price"`
	ChildPrice            int64  `json:"child_price"`
	AvailableAdultTickets int    `json:"available_adult_tickets"`
	AvailableChildTickets int    `json:"available_child_tickets"`
	TotalPrice            int64  `json:"total_price"`
}

// SearchTickets lists ticket types with capacity in both pools on the date.
func (s *AvailabilityService) SearchTickets(ctx context.Context, criteria *TicketSearchCriteria) ([]TicketSearchResult, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.SearchTickets")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SearchLatency.Observe(time.Since(start).Seconds())
	}()

	date, err := time.Parse("2006-01-02", criteria.Date)
	if err != nil {
		return nil, invalidField("date", "must be YYYY-MM-DD")
	}
	date = pricing.DateOnly(date)

	cacheKey := fmt.Sprintf("search:tickets:%s:%d:%d:%s",
		criteria.Date, criteria.Adults, criteria.Children, criteria.Region)
	var cached []TicketSearchResult
	if ok, err := s.redis.GetCachedSearch(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	rows, err := s.store.SearchAvailableTickets(ctx, date, criteria.Adults, criteria.Children, criteria.Region)
	if err != nil {
		return nil, fmt.Errorf("ticket search failed: %w", err)
	}

	results := make([]TicketSearchResult, 0, len(rows))
	for _, row := range rows {
		tt := &models.TicketType{AdultPrice: row.AdultPrice, ChildPrice: row.ChildPrice}
		results = append(results, TicketSearchResult{
			TicketTypeID:          row.TicketTypeID,
			LodgeID:               row.LodgeID,
			LodgeName:             row.LodgeName,
			LodgeAddress:          row.LodgeAddress,
			Name:                  row.Name,
			Description:           row.Description,
			AdultPrice:            row.AdultPrice,
			ChildPrice:            row.ChildPrice,
			AvailableAdultTickets: row.AvailableAdultTickets,
			AvailableChildTickets: row.AvailableChildTickets,
			TotalPrice:            pricing.TotalTicketPrice(tt, criteria.Adults, criteria.Children),
		})
	}

	if err := s.redis.SetCachedSearch(ctx, cacheKey, results, searchCacheTTL); err != nil {
		s.logger.Warn("Failed to cache search results", zap.Error(err))
	}

	return results, nil
}

// QuoteRoomPrice computes the current total price for a prospective stay
// without creating anything. The quote is not locked in.
func (s *AvailabilityService) QuoteRoomPrice(ctx context.Context, roomTypeID int64, checkIn, checkOut string, roomCount int) (int64, error) {
	in, out, err := parseStayDates(checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	if roomCount < 1 {
		return 0, invalidField("room_count", "must be at least 1")
	}

	rt, err := s.store.GetRoomTypeByID(ctx, roomTypeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("room type %d: %w", roomTypeID, ErrProductNotFound)
		}
		return 0, err
	}
	seasons, err := s.store.GetSeasonalPricing(ctx, roomTypeID)
	if err != nil {
		return 0, err
	}

	return pricing.TotalRoomPrice(rt, seasons, in, out, roomCount), nil
}
