// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client layer. A nil *Metrics
// is valid everywhere and records nothing.
type Metrics struct {
	// Transaction lifecycle
	TxSubmitted *prometheus.CounterVec
	TxConfirmed *prometheus.CounterVec
	TxFailed    *prometheus.CounterVec
	ConfirmTime *prometheus.HistogramVec

	// Repository
	FetchDuration  *prometheus.HistogramVec
	FetchesSkipped prometheus.Counter
	CacheSize      prometheus.Gauge

	// Notifications
	ActiveNotifications prometheus.Gauge

	// Wallet
	Connects    prometheus.Counter
	Disconnects prometheus.Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bounty_board"
	}

	return &Metrics{
		TxSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_submitted_total",
			Help:      "Mutating calls submitted to the ledger, by action.",
		}, []string{"action"}),
		TxConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_confirmed_total",
			Help:      "Mutating calls confirmed on the ledger, by action.",
		}, []string{"action"}),
		TxFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_failed_total",
			Help:      "Mutating calls that failed, by action and stage.",
		}, []string{"action", "stage"}),
		ConfirmTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_confirm_seconds",
			Help:      "Time from submission to confirmation, by action.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"action"}),
		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of repository fetch operations, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		FetchesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_records_skipped_total",
			Help:      "Records omitted from a batch fetch because they failed.",
		}),
		CacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_bounties",
			Help:      "Number of bounty records in the cache.",
		}),
		ActiveNotifications: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_active",
			Help:      "Notifications currently queued.",
		}),
		Connects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_connects_total",
			Help:      "Successful wallet connections.",
		}),
		Disconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_disconnects_total",
			Help:      "Wallet disconnections.",
		}),
	}
}

// Handler returns an HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
