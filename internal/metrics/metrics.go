package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gatisathi"

// Reservation outcomes.
const (
	OutcomeBooked           = "booked"
	OutcomeRideNotFound     = "ride_not_found"
	OutcomeRideNotActive    = "ride_not_active"
	OutcomeRideFull         = "ride_full"
	OutcomePersistenceError = "persistence_error"
	OutcomeRejected         = "rejected"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Seat reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_duration_seconds",
			Help:      "Latency of seat reservations end to end.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_compensations_total",
			Help:      "Seat releases issued after a failed ledger write.",
		},
		[]string{"result"},
	)

	eventPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publishes_total",
			Help:      "Domain events relayed to the broker by result.",
		},
		[]string{"type", "result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservations, reservationLatency, compensations, eventPublishes)
	})
}

// IncHTTP increments the request counter.
func IncHTTP(method, route, status string) {
	httpRequests.WithLabelValues(method, route, status).Inc()
}

// ObserveReservation records the outcome and latency of one BookSeat call.
func ObserveReservation(outcome string, started time.Time) {
	reservations.WithLabelValues(outcome).Inc()
	reservationLatency.Observe(time.Since(started).Seconds())
}

// IncCompensation records a compensating release; result is "released" or "failed".
func IncCompensation(result string) {
	compensations.WithLabelValues(result).Inc()
}

// IncEventPublish records a relay attempt result for an event type.
func IncEventPublish(eventType, result string) {
	eventPublishes.WithLabelValues(eventType, result).Inc()
}
