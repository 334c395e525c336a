// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SocketConnectionsActive tracks live websocket connections.
	SocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// EventsPushedTotal tracks live events pushed to clients, by event name.
	EventsPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_pushed_total",
			Help: "Total live events pushed to connected clients",
		},
		[]string{"event"},
	)

	// NotificationJobDuration tracks notification fan-out processing time.
	NotificationJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_job_duration_seconds",
			Help:    "Notification job processing duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// JobRetriesTotal tracks whole-job retries in the worker.
	JobRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_retries_total",
			Help: "Total notification job retry attempts",
		},
	)

	// ChannelFailuresTotal tracks per-channel delivery failures inside jobs.
	ChannelFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_failures_total",
			Help: "Total channel-level delivery failures",
		},
		[]string{"channel"},
	)
)
