package service

import (
	"context"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/models"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiryService sweeps PENDING reservations older than the hold threshold
// into CANCELLED with reason AUTO_EXPIRED. PENDING reservations never touched
// the ledger, so a sweep mutates reservation rows only. The sweep is a single
// conditional UPDATE per table; a reservation confirmed between cutoff
// computation and execution no longer matches and is left alone.
type ExpiryService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	holdDuration   time.Duration
	lockTTL        time.Duration
}

// NewExpiryService creates a new expiry service. The lock TTL tracks the
// sweep interval so a crashed sweeper blocks other replicas for at most
// about one cycle.
func NewExpiryService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	holdDuration time.Duration,
	sweepInterval time.Duration,
) *ExpiryService {
	lockTTL := sweepInterval
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &ExpiryService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		holdDuration:   holdDuration,
		lockTTL:        lockTTL,
	}
}

const sweepLockKey = "expiry-sweep"

// SweepExpired runs one sweep cycle over both reservation tables. A Redis
// lock keeps concurrent replicas from sweeping the same window; losing the
// lock is a skip, not an error.
func (s *ExpiryService) SweepExpired(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "ExpiryService.SweepExpired")
	defer span.End()

	acquired, err := s.redis.AcquireLock(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		s.logger.Warn("Failed to acquire sweep lock", zap.Error(err))
		util.SweepCyclesTotal.WithLabelValues("error").Inc()
		return err
	}
	if !acquired {
		util.SweepCyclesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer func() {
		if err := s.redis.ReleaseLock(ctx, sweepLockKey); err != nil {
			s.logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	cutoff := time.Now().Add(-s.holdDuration)

	rooms, err := s.store.SweepExpiredReservations(ctx, cutoff)
	if err != nil {
		util.SweepCyclesTotal.WithLabelValues("error").Inc()
		return err
	}
	tickets, err := s.store.SweepExpiredTicketReservations(ctx, cutoff)
	if err != nil {
		util.SweepCyclesTotal.WithLabelValues("error").Inc()
		return err
	}

	for _, r := range rooms {
		s.publishExpired(ctx, models.ReservationKindRoom, r)
	}
	for _, r := range tickets {
		s.publishExpired(ctx, models.ReservationKindTicket, r)
	}

	util.SweepCyclesTotal.WithLabelValues("ok").Inc()
	if n := len(rooms) + len(tickets); n > 0 {
		util.SweepExpiredReservations.Add(float64(n))
		util.ReservationsExpiredTotal.WithLabelValues(models.ReservationKindRoom).Add(float64(len(rooms)))
		util.ReservationsExpiredTotal.WithLabelValues(models.ReservationKindTicket).Add(float64(len(tickets)))
		s.logger.Info("Expiry sweep completed",
			zap.Time("cutoff", cutoff),
			zap.Int("rooms_expired", len(rooms)),
			zap.Int("tickets_expired", len(tickets)))
	}
	return nil
}

func (s *ExpiryService) publishExpired(ctx context.Context, kind string, r store.SweptReservation) {
	event := &models.ReservationExpiredEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationExpired,
			Timestamp: time.Now(),
		},
		Kind:          kind,
		ReservationID: r.ID,
		UserID:        r.UserID,
		ProductID:     r.ProductID,
	}
	if err := s.eventPublisher.PublishReservationExpired(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationExpired event",
			zap.Int64("reservation_id", r.ID),
			zap.Error(err))
	}
}
