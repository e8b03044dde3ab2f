package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/pricing"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ReservationService drives the room reservation state machine:
// create (PENDING, price locked in, no ledger effect), confirm (live
// availability re-check + debit, atomically), cancel (credit back only when
// leaving CONFIRMED for a user or admin reason).
type ReservationService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	maxRetries     int
}

// NewReservationService creates a new reservation service
func NewReservationService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	maxRetries int,
) *ReservationService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ReservationService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		maxRetries:     maxRetries,
	}
}

// CreateReservationRequest represents a request to create a room reservation
type CreateReservationRequest struct {
	LodgeID        int64  `json:"lodge_id" binding:"required"`
	RoomTypeID     int64  `json:"room_type_id" binding:"required"`
	UserID         int64  `json:"-"`
	CheckIn        string `json:"check_in" binding:"required"`
	CheckOut       string `json:"check_out" binding:"required"`
	Adults         int    `json:"adults" binding:"required,min=1"`
	Children       int    `json:"children" binding:"min=0"`
	RoomCount      int    `json:"room_count" binding:"required,min=1"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CreateReservation creates a room reservation in PENDING state. The total
// price is computed from current product and seasonal data and locked in;
// later pricing edits never change it. Inventory is not debited here.
func (s *ReservationService) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CreateReservation")
	defer span.End()

	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if req.UserID == 0 {
		return nil, invalidField("user_id", "required")
	}

	if req.IdempotencyKey != "" {
		if id, ok, err := s.redis.GetIdempotentResult(ctx, req.IdempotencyKey); err == nil && ok {
			s.logger.Info("Duplicate reservation request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("reservation_id", id))
			return s.store.GetReservationByID(ctx, id)
		}
	}

	rt, err := s.store.GetRoomTypeByID(ctx, req.RoomTypeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("room type %d: %w", req.RoomTypeID, ErrProductNotFound)
		}
		return nil, err
	}
	if rt.LodgeID != req.LodgeID {
		return nil, invalidField("lodge_id", "room type belongs to a different lodge")
	}

	seasons, err := s.store.GetSeasonalPricing(ctx, rt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seasonal pricing: %w", err)
	}

	reservation := &models.Reservation{
		LodgeID:    req.LodgeID,
		RoomTypeID: req.RoomTypeID,
		UserID:     req.UserID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     req.Adults,
		Children:   req.Children,
		RoomCount:  req.RoomCount,
		TotalPrice: pricing.TotalRoomPrice(rt, seasons, checkIn, checkOut, req.RoomCount),
		Status:     models.ReservationStatusPending,
	}

	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if req.IdempotencyKey != "" {
		if err := s.redis.SetIdempotentResult(ctx, req.IdempotencyKey, reservation.ID, 24*time.Hour); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	util.ReservationsCreatedTotal.WithLabelValues(models.ReservationKindRoom).Inc()
	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("room_type_id", reservation.RoomTypeID),
		zap.Int64("total_price", reservation.TotalPrice))

	event := &models.ReservationCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationCreated,
			Timestamp: time.Now(),
		},
		Kind:          models.ReservationKindRoom,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		ProductID:     reservation.RoomTypeID,
		TotalPrice:    reservation.TotalPrice,
	}
	if err := s.eventPublisher.PublishReservationCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationCreated event", zap.Error(err))
	}

	return reservation, nil
}

// ConfirmReservation transitions PENDING -> CONFIRMED. Availability is
// re-checked against live ledger data and every night is debited inside one
// transaction; if any date is short the transaction rolls back and the
// reservation stays PENDING. Serialization conflicts are retried with
// backoff a bounded number of times.
func (s *ReservationService) ConfirmReservation(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.ConfirmReservation")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ConfirmLatency.Observe(time.Since(start).Seconds())
	}()

	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.confirmTx(ctx, tx, reservationID)
		})
		if err != nil && store.IsSerializationFailure(err) && attempt < s.maxRetries {
			s.logger.Warn("Confirm transaction conflict, retrying",
				zap.Int64("reservation_id", reservationID),
				zap.Int("attempt", attempt))
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
			continue
		}
		break
	}
	if err != nil {
		if store.IsSerializationFailure(err) {
			util.ReservationsFailedTotal.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTransientConflict, err)
		}
		if errors.Is(err, store.ErrInsufficientInventory) {
			util.InventoryDebitsFailed.WithLabelValues("insufficient").Inc()
			util.ReservationsFailedTotal.WithLabelValues("insufficient_inventory").Inc()
		}
		return nil, err
	}

	reservation, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	util.ReservationsConfirmedTotal.WithLabelValues(models.ReservationKindRoom).Inc()
	s.logger.Info("Reservation confirmed", zap.Int64("reservation_id", reservationID))

	event := &models.ReservationConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationConfirmed,
			Timestamp: time.Now(),
		},
		Kind:          models.ReservationKindRoom,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		ProductID:     reservation.RoomTypeID,
		TotalPrice:    reservation.TotalPrice,
	}
	if err := s.eventPublisher.PublishReservationConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationConfirmed event", zap.Error(err))
	}

	return reservation, nil
}

func (s *ReservationService) confirmTx(ctx context.Context, tx *sqlx.Tx, reservationID int64) error {
	reservation, err := s.store.GetReservationByIDTx(ctx, tx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reservation %d: %w", reservationID, ErrReservationNotFound)
		}
		return err
	}
	if reservation.Status != models.ReservationStatusPending {
		return fmt.Errorf("confirm from %s: %w", reservation.Status, ErrInvalidStateTransition)
	}

	nights := pricing.Nights(reservation.CheckIn, reservation.CheckOut)

	ok, err := s.store.CheckRoomAvailabilityTx(ctx, tx, reservation.RoomTypeID, nights, reservation.RoomCount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("room type %d: %w", reservation.RoomTypeID, store.ErrInsufficientInventory)
	}

	if err := s.store.DebitRoomsTx(ctx, tx, reservation.RoomTypeID, nights, reservation.RoomCount); err != nil {
		return err
	}

	flipped, err := s.store.TransitionReservationTx(ctx, tx, reservationID,
		models.ReservationStatusPending, models.ReservationStatusConfirmed, nil)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
	}
	return nil
}

// CancelReservation transitions to CANCELLED. Cancelling an already
// CANCELLED reservation is a no-op returning the current state. The ledger
// is credited back only when leaving CONFIRMED for a user or admin reason,
// clamped at total capacity; a PENDING reservation never debited anything,
// so nothing is credited.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID int64, reason string) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CancelReservation")
	defer span.End()

	if !models.ValidCancelReason(reason) {
		return nil, invalidField("cancel_reason", "must be one of USER_REQUESTED, ADMIN_FORCED, AUTO_EXPIRED")
	}

	credited := false
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.store.GetReservationByIDTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("reservation %d: %w", reservationID, ErrReservationNotFound)
			}
			return err
		}

		switch reservation.Status {
		case models.ReservationStatusCancelled:
			// Idempotent: repeated cancels leave state and ledger untouched.
			return nil

		case models.ReservationStatusPending:
			flipped, err := s.store.TransitionReservationTx(ctx, tx, reservationID,
				models.ReservationStatusPending, models.ReservationStatusCancelled, &reason)
			if err != nil {
				return err
			}
			if !flipped {
				return fmt.Errorf("reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
			}
			return nil

		case models.ReservationStatusConfirmed:
			if reason == models.CancelReasonAutoExpired {
				// Confirmed reservations do not expire. Leave state alone.
				s.logger.Error("Expiry cancel reached a CONFIRMED reservation",
					zap.Int64("reservation_id", reservationID))
				return nil
			}
			nights := pricing.Nights(reservation.CheckIn, reservation.CheckOut)
			if err := s.store.CreditRoomsTx(ctx, tx, reservation.RoomTypeID, nights, reservation.RoomCount); err != nil {
				return err
			}
			flipped, err := s.store.TransitionReservationTx(ctx, tx, reservationID,
				models.ReservationStatusConfirmed, models.ReservationStatusCancelled, &reason)
			if err != nil {
				return err
			}
			if !flipped {
				return fmt.Errorf("reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
			}
			credited = true
			return nil

		default:
			return fmt.Errorf("cancel from %s: %w", reservation.Status, ErrInvalidStateTransition)
		}
	})
	if err != nil {
		return nil, err
	}

	reservation, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status == models.ReservationStatusCancelled {
		util.ReservationsCancelledTotal.WithLabelValues(models.ReservationKindRoom, reason).Inc()
		s.logger.Info("Reservation cancelled",
			zap.Int64("reservation_id", reservationID),
			zap.String("reason", reason),
			zap.Bool("credited", credited))

		event := &models.ReservationCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeReservationCancelled,
				Timestamp: time.Now(),
			},
			Kind:          models.ReservationKindRoom,
			ReservationID: reservation.ID,
			UserID:        reservation.UserID,
			ProductID:     reservation.RoomTypeID,
			CancelReason:  reason,
			Credited:      credited,
		}
		if err := s.eventPublisher.PublishReservationCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReservationCancelled event", zap.Error(err))
		}
	}

	return reservation, nil
}

// CancelAllForUser cancels every live reservation owned by a user with
// reason ADMIN_FORCED, crediting back CONFIRMED ones. Called from the
// user-deletion cascade.
func (s *ReservationService) CancelAllForUser(ctx context.Context, userID int64) (int, error) {
	live, err := s.store.GetLiveReservationsByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, r := range live {
		if _, err := s.CancelReservation(ctx, r.ID, models.CancelReasonAdminForced); err != nil {
			s.logger.Error("Failed to cancel reservation during user cleanup",
				zap.Int64("user_id", userID),
				zap.Int64("reservation_id", r.ID),
				zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// GetReservation retrieves a room reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	reservation, err := s.store.GetReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("reservation %d: %w", reservationID, ErrReservationNotFound)
		}
		return nil, err
	}
	return reservation, nil
}

// ListReservations lists a user's reservations, hiding auto-expired ones.
func (s *ReservationService) ListReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return s.store.GetReservationsByUserID(ctx, userID)
}

// ListAllReservations lists every reservation for the admin view.
func (s *ReservationService) ListAllReservations(ctx context.Context) ([]models.Reservation, error) {
	return s.store.GetAllReservations(ctx)
}

func parseStayDates(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := time.Parse("2006-01-02", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, invalidField("check_in", "must be YYYY-MM-DD")
	}
	out, err := time.Parse("2006-01-02", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, invalidField("check_out", "must be YYYY-MM-DD")
	}
	in, out = pricing.DateOnly(in), pricing.DateOnly(out)
	if !in.Before(out) {
		return time.Time{}, time.Time{}, invalidField("check_out", "must be after check_in")
	}
	return in, out, nil
}
