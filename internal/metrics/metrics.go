package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal cuenta eventos de mensaje creado por resultado (replied, missing, ignored_role, duplicate, busy, failed).
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat_responder",
			Name:      "events_total",
			Help:      "Message-created events handled, by outcome",
		},
		[]string{"source", "outcome"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat_responder",
			Name:      "completion_duration_seconds",
			Help:      "Latency of chat completion calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model", "status"},
	)

	PacingDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat_responder",
			Name:      "pacing_delay_seconds",
			Help:      "Simulated reading and typing delays",
			Buckets:   []float64{0, 0.25, 0.5, 1, 2, 3, 5, 7.5, 10},
		},
		[]string{"kind"},
	)

	ListenerReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat_responder",
			Name:      "listener_reconnects_total",
			Help:      "Times the LISTEN connection was re-established",
		},
	)
)
