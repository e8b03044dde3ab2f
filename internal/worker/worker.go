package worker

import (
	"context"
	"log"
	"time"

	"reservation-service/internal/broker"
	"reservation-service/internal/service"

	"github.com/go-co-op/gocron/v2"
)

// AuditWorker consumes reservation lifecycle events and feeds the audit trail
type AuditWorker struct {
	consumer      *broker.Consumer
	eventHandler  *broker.EventHandler
	auditRecorder *service.AuditRecorder
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(
	consumer *broker.Consumer,
	auditRecorder *service.AuditRecorder,
) *AuditWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnReservationCreated(auditRecorder.HandleReservationCreated)
	eventHandler.OnReservationConfirmed(auditRecorder.HandleReservationConfirmed)
	eventHandler.OnReservationCancelled(auditRecorder.HandleReservationCancelled)
	eventHandler.OnReservationExpired(auditRecorder.HandleReservationExpired)

	return &AuditWorker{
		consumer:      consumer,
		eventHandler:  eventHandler,
		auditRecorder: auditRecorder,
	}
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}

// SweeperWorker runs the expiry sweep on a fixed interval
type SweeperWorker struct {
	scheduler gocron.Scheduler
	expiry    *service.ExpiryService
	interval  time.Duration
}

// NewSweeperWorker creates a new sweeper worker
func NewSweeperWorker(expiry *service.ExpiryService, interval time.Duration) (*SweeperWorker, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &SweeperWorker{
		scheduler: scheduler,
		expiry:    expiry,
		interval:  interval,
	}, nil
}

// Start schedules the sweep job and starts the scheduler
func (sw *SweeperWorker) Start(ctx context.Context) error {
	_, err := sw.scheduler.NewJob(
		gocron.DurationJob(sw.interval),
		gocron.NewTask(func() {
			if err := sw.expiry.SweepExpired(ctx); err != nil {
				log.Printf("Expiry sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	log.Printf("Starting sweeper worker (interval %s)...", sw.interval)
	sw.scheduler.Start()
	return nil
}

// Stop shuts down the scheduler, waiting for a running sweep to finish
func (sw *SweeperWorker) Stop() error {
	log.Println("Stopping sweeper worker...")
	return sw.scheduler.Shutdown()
}
