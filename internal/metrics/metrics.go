package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	PollCycles       prometheus.Counter
	PollFailures     prometheus.Counter
	MessagesSeen     prometheus.Counter
	MessagesSkipped  prometheus.Counter
	RepliesIngested  prometheus.Counter
	RepliesDuplicate prometheus.Counter
	CycleDuration    prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PollCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_poll_cycles_total",
			Help: "Total number of reply poll cycles started",
		}),
		PollFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_poll_failures_total",
			Help: "Total number of reply poll cycles that aborted with an error",
		}),
		MessagesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_messages_seen_total",
			Help: "Total number of changed messages returned by the mailbox delta feed",
		}),
		MessagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_messages_skipped_total",
			Help: "Total number of messages skipped for lacking an invoice correlation tag",
		}),
		RepliesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_replies_ingested_total",
			Help: "Total number of correlated replies persisted as notes",
		}),
		RepliesDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "invoice_dashboard_replies_duplicate_total",
			Help: "Total number of replies already ingested under the same message id",
		}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoice_dashboard_poll_cycle_duration_seconds",
			Help:    "Time spent per reply poll cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
