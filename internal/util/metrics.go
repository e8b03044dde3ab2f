package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	}, []string{"kind"})

	ReservationsConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed",
	}, []string{"kind"})

	ReservationsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total number of reservations cancelled",
	}, []string{"kind", "reason"})

	ReservationsExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Total number of pending reservations auto-expired by the sweeper",
	}, []string{"kind"})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of failed reservation operations",
	}, []string{"reason"})

	ConfirmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reservation_confirm_latency_seconds",
		Help:    "Latency of reservation confirmation (availability check plus ledger debit)",
		Buckets: prometheus.DefBuckets,
	})

	InventoryDebitsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_debits_failed_total",
		Help: "Total number of ledger debits rejected",
	}, []string{"reason"})

	SweepCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_cycles_total",
		Help: "Total number of expiry sweep cycles",
	}, []string{"outcome"})

	SweepExpiredReservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_expired_reservations_total",
		Help: "Total number of reservations transitioned to CANCELLED by the sweeper",
	})

	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_search_latency_seconds",
		Help:    "Latency of availability search queries",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
