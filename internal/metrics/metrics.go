package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "staygo"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"route", "status"},
	)

	holds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_total",
			Help:      "Hold lifecycle events by outcome.",
		},
		[]string{"outcome"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking lifecycle events by outcome.",
		},
		[]string{"outcome"},
	)

	adjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_total",
			Help:      "Manual blocks and unblocks.",
		},
		[]string{"kind"},
	)

	lockTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Inventory writes that gave up waiting for per-day locks.",
		},
	)
)

// Hold outcomes.
const (
	HoldCreated  = "created"
	HoldRejected = "rejected"
	HoldReleased = "released"
	HoldExpired  = "expired"
	HoldConsumed = "consumed"
)

// Booking outcomes.
const (
	BookingCommitted = "committed"
	BookingDirect    = "direct"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingFailed    = "payment_failed"
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, holds, bookings, adjustments, lockTimeouts)
	})
}

func IncHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func IncHold(outcome string) {
	holds.WithLabelValues(outcome).Inc()
}

func AddHolds(outcome string, n int) {
	holds.WithLabelValues(outcome).Add(float64(n))
}

func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func IncAdjustment(kind string) {
	adjustments.WithLabelValues(kind).Inc()
}

func IncLockTimeout() {
	lockTimeouts.Inc()
}
