package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DialogTurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_dialog_turns_total",
			Help: "Total number of conversation turns handled, by intent",
		},
		[]string{"intent"},
	)

	RequestsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_requests_enqueued_total",
			Help: "Total number of finalized requests placed on the queue",
		},
	)

	QueueRedeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_queue_redeliveries_total",
			Help: "Total number of requests redelivered after visibility expiry",
		},
	)

	RequestsDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_requests_dead_lettered_total",
			Help: "Total number of requests moved to the dead-letter path",
		},
	)

	FulfillmentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_fulfillment_outcomes_total",
			Help: "Total number of fulfillment passes, by outcome status",
		},
		[]string{"status"},
	)

	FulfillmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "concierge_fulfillment_duration_seconds",
			Help: "Duration of one fulfillment pass over one request",
		},
		[]string{"status"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_emails_sent_total",
			Help: "Total number of emails dispatched, by kind",
		},
		[]string{"kind"},
	)
)
