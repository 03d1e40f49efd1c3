package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "airport_shuttle"

var (
	TripsCreated  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trips_created_total", Help: "Total number of shared trips created"})
	TripJoins     = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "trip_joins_total", Help: "Join attempts by result"}, []string{"result"})
	TripConflicts = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trip_version_conflicts_total", Help: "Optimistic concurrency conflicts on trip updates"})
	TripsClosed   = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "trips_closed_total", Help: "Trips moved to a terminal state"}, []string{"status"})
	JoinLatency   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "trip_join_latency_seconds", Help: "Join latency seconds"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "bookings_created_total", Help: "Total number of individual bookings"})
	Payments        = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "payments_total", Help: "Payment attempts by outcome"}, []string{"status"})

	NotificationsSent   = promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "notifications_sent_total", Help: "Notifications handed to a dispatcher"}, []string{"type"})
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "notifications_failed_total", Help: "Notifications a dispatcher could not deliver"})
	WSSessions          = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_sessions", Help: "Number of connected websocket sessions"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
