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

// TicketService drives the ticket reservation state machine. Tickets are
// single-day and draw from two independent pools (adult, child); a confirm
// debits both pools atomically or neither.
type TicketService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	maxRetries     int
}

// NewTicketService creates a new ticket reservation service
func NewTicketService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	maxRetries int,
) *TicketService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TicketService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		maxRetries:     maxRetries,
	}
}

// CreateTicketReservationRequest represents a request to create a ticket reservation
type CreateTicketReservationRequest struct {
	TicketTypeID    int64  `json:"ticket_type_id" binding:"required"`
	UserID          int64  `json:"-"`
	Date            string `json:"date" binding:"required"`
	Adults          int    `json:"adults" binding:"min=0"`
	Children        int    `json:"children" binding:"min=0"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Email           string `json:"email,omitempty"`
	PhoneNumber     string `json:"phone_number" binding:"required"`
	Nationality     string `json:"nationality,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// CreateTicketReservation creates a ticket reservation in PENDING state with
// the price locked in. Inventory is not debited here.
func (s *TicketService) CreateTicketReservation(ctx context.Context, req *CreateTicketReservationRequest) (*models.TicketReservation, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CreateTicketReservation")
	defer span.End()

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, invalidField("date", "must be YYYY-MM-DD")
	}
	date = pricing.DateOnly(date)
	if req.UserID == 0 {
		return nil, invalidField("user_id", "required")
	}
	if req.Adults+req.Children < 1 {
		return nil, invalidField("adults", "party must include at least one person")
	}

	if req.IdempotencyKey != "" {
		if id, ok, err := s.redis.GetIdempotentResult(ctx, req.IdempotencyKey); err == nil && ok {
			s.logger.Info("Duplicate ticket reservation request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("reservation_id", id))
			return s.store.GetTicketReservationByID(ctx, id)
		}
	}

	tt, err := s.store.GetTicketTypeByID(ctx, req.TicketTypeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("ticket type %d: %w", req.TicketTypeID, ErrProductNotFound)
		}
		return nil, err
	}

	reservation := &models.TicketReservation{
		TicketTypeID:    req.TicketTypeID,
		UserID:          req.UserID,
		Date:            date,
		Adults:          req.Adults,
		Children:        req.Children,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		Nationality:     req.Nationality,
		SpecialRequests: req.SpecialRequests,
		TotalPrice:      pricing.TotalTicketPrice(tt, req.Adults, req.Children),
		Status:          models.ReservationStatusPending,
	}

	if err := s.store.CreateTicketReservation(ctx, reservation); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create ticket reservation: %w", err)
	}

	if req.IdempotencyKey != "" {
		if err := s.redis.SetIdempotentResult(ctx, req.IdempotencyKey, reservation.ID, 24*time.Hour); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	util.ReservationsCreatedTotal.WithLabelValues(models.ReservationKindTicket).Inc()
	s.logger.Info("Ticket reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("ticket_type_id", reservation.TicketTypeID))

	event := &models.ReservationCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationCreated,
			Timestamp: time.Now(),
		},
		Kind:          models.ReservationKindTicket,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		ProductID:     reservation.TicketTypeID,
		TotalPrice:    reservation.TotalPrice,
	}
	if err := s.eventPublisher.PublishReservationCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationCreated event", zap.Error(err))
	}

	return reservation, nil
}

// ConfirmTicketReservation transitions PENDING -> CONFIRMED, debiting both
// ticket pools in one transaction with a live availability re-check.
func (s *TicketService) ConfirmTicketReservation(ctx context.Context, reservationID int64) (*models.TicketReservation, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.ConfirmTicketReservation")
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

	reservation, err := s.store.GetTicketReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	util.ReservationsConfirmedTotal.WithLabelValues(models.ReservationKindTicket).Inc()
	s.logger.Info("Ticket reservation confirmed", zap.Int64("reservation_id", reservationID))

	event := &models.ReservationConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationConfirmed,
			Timestamp: time.Now(),
		},
		Kind:          models.ReservationKindTicket,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		ProductID:     reservation.TicketTypeID,
		TotalPrice:    reservation.TotalPrice,
	}
	if err := s.eventPublisher.PublishReservationConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationConfirmed event", zap.Error(err))
	}

	return reservation, nil
}

func (s *TicketService) confirmTx(ctx context.Context, tx *sqlx.Tx, reservationID int64) error {
	reservation, err := s.store.GetTicketReservationByIDTx(ctx, tx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("ticket reservation %d: %w", reservationID, ErrReservationNotFound)
		}
		return err
	}
	if reservation.Status != models.ReservationStatusPending {
		return fmt.Errorf("confirm from %s: %w", reservation.Status, ErrInvalidStateTransition)
	}

	ok, err := s.store.CheckTicketAvailabilityTx(ctx, tx, reservation.TicketTypeID,
		reservation.Date, reservation.Adults, reservation.Children)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ticket type %d: %w", reservation.TicketTypeID, store.ErrInsufficientInventory)
	}

	if err := s.store.DebitTicketsTx(ctx, tx, reservation.TicketTypeID,
		reservation.Date, reservation.Adults, reservation.Children); err != nil {
		return err
	}

	flipped, err := s.store.TransitionTicketReservationTx(ctx, tx, reservationID,
		models.ReservationStatusPending, models.ReservationStatusConfirmed, nil)
	if err != nil {
		return err
	}
	if !flipped {
		return fmt.Errorf("ticket reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
	}
	return nil
}

// CancelTicketReservation mirrors room cancellation: idempotent on
// CANCELLED, no ledger effect from PENDING, credit back (both pools,
// clamped) only when leaving CONFIRMED for a user or admin reason.
func (s *TicketService) CancelTicketReservation(ctx context.Context, reservationID int64, reason string) (*models.TicketReservation, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CancelTicketReservation")
	defer span.End()

	if !models.ValidCancelReason(reason) {
		return nil, invalidField("cancel_reason", "must be one of USER_REQUESTED, ADMIN_FORCED, AUTO_EXPIRED")
	}

	credited := false
	err := s.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		reservation, err := s.store.GetTicketReservationByIDTx(ctx, tx, reservationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("ticket reservation %d: %w", reservationID, ErrReservationNotFound)
			}
			return err
		}

		switch reservation.Status {
		case models.ReservationStatusCancelled:
			return nil

		case models.ReservationStatusPending:
			flipped, err := s.store.TransitionTicketReservationTx(ctx, tx, reservationID,
				models.ReservationStatusPending, models.ReservationStatusCancelled, &reason)
			if err != nil {
				return err
			}
			if !flipped {
				return fmt.Errorf("ticket reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
			}
			return nil

		case models.ReservationStatusConfirmed:
			if reason == models.CancelReasonAutoExpired {
				s.logger.Error("Expiry cancel reached a CONFIRMED ticket reservation",
					zap.Int64("reservation_id", reservationID))
				return nil
			}
			if err := s.store.CreditTicketsTx(ctx, tx, reservation.TicketTypeID,
				reservation.Date, reservation.Adults, reservation.Children); err != nil {
				return err
			}
			flipped, err := s.store.TransitionTicketReservationTx(ctx, tx, reservationID,
				models.ReservationStatusConfirmed, models.ReservationStatusCancelled, &reason)
			if err != nil {
				return err
			}
			if !flipped {
				return fmt.Errorf("ticket reservation %d status changed concurrently: %w", reservationID, ErrInvalidStateTransition)
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

	reservation, err := s.store.GetTicketReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status == models.ReservationStatusCancelled {
		util.ReservationsCancelledTotal.WithLabelValues(models.ReservationKindTicket, reason).Inc()
		s.logger.Info("Ticket reservation cancelled",
			zap.Int64("reservation_id", reservationID),
			zap.String("reason", reason),
			zap.Bool("credited", credited))

		event := &models.ReservationCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeReservationCancelled,
				Timestamp: time.Now(),
			},
			Kind:          models.ReservationKindTicket,
			ReservationID: reservation.ID,
			UserID:        reservation.UserID,
			ProductID:     reservation.TicketTypeID,
			CancelReason:  reason,
			Credited:      credited,
		}
		if err := s.eventPublisher.PublishReservationCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReservationCancelled event", zap.Error(err))
		}
	}

	return reservation, nil
}

// CancelAllForUser cancels a user's live ticket reservations with reason
// ADMIN_FORCED. Called from the user-deletion cascade.
func (s *TicketService) CancelAllForUser(ctx context.Context, userID int64) (int, error) {
	live, err := s.store.GetLiveTicketReservationsByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, r := range live {
		if _, err := s.CancelTicketReservation(ctx, r.ID, models.CancelReasonAdminForced); err != nil {
			s.logger.Error("Failed to cancel ticket reservation during user cleanup",
				zap.Int64("user_id", userID),
				zap.Int64("reservation_id", r.ID),
				zap.Error(err))
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// GetTicketReservation retrieves a ticket reservation by ID.
func (s *TicketService) GetTicketReservation(ctx context.Context, reservationID int64) (*models.TicketReservation, error) {
	reservation, err := s.store.GetTicketReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("ticket reservation %d: %w", reservationID, ErrReservationNotFound)
		}
		return nil, err
	}
	return reservation, nil
}

// ListTicketReservations lists a user's ticket reservations, hiding
// auto-expired ones.
func (s *TicketService) ListTicketReservations(ctx context.Context, userID int64) ([]models.TicketReservation, error) {
	return s.store.GetTicketReservationsByUserID(ctx, userID)
}
