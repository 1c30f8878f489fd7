package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MailboxesAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempmail_mailboxes_allocated_total",
			Help: "Mailboxes successfully allocated, by provider.",
		},
		[]string{"provider"},
	)

	AllocationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempmail_allocation_failures_total",
			Help: "Failed mailbox allocations, by provider.",
		},
		[]string{"provider"},
	)

	MailboxesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tempmail_mailboxes_expired_total",
		Help: "Sessions that reached their deadline.",
	})

	Polls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempmail_polls_total",
			Help: "Message list polls, by outcome (ok, error, stale).",
		},
		[]string{"outcome"},
	)

	MessagesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tempmail_messages_opened_total",
		Help: "Message details fetched.",
	})

	ActiveTickers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tempmail_active_tickers",
		Help: "Countdown and poll tickers currently running.",
	})

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tempmail_provider_request_duration_seconds",
			Help:    "Upstream provider request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tempmail_websocket_clients",
		Help: "Connected browser clients.",
	})
)
