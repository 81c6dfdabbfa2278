package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the federation layer.
type Metrics struct {
	HandlesOpened        prometheus.Counter
	HandlesReleased      prometheus.Counter
	StoreConnectFailures prometheus.Counter
	TenantQueriesTotal   *prometheus.CounterVec
	FanoutDuration       prometheus.Histogram
	AccountCacheHits     prometheus.Counter
	AccountCacheMisses   prometheus.Counter
}

// New initializes and registers the Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		HandlesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "store",
			Name:      "handles_opened_total",
			Help:      "Total number of tenant store handles opened.",
		}),
		HandlesReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "store",
			Name:      "handles_released_total",
			Help:      "Total number of tenant store handles released.",
		}),
		StoreConnectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "store",
			Name:      "connect_failures_total",
			Help:      "Total number of failed store connection attempts after retry.",
		}),
		TenantQueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "federation",
			Name:      "tenant_queries_total",
			Help:      "Total number of per-tenant fan-out queries by outcome.",
		}, []string{"outcome"}), // outcome: ok, error, skipped
		FanoutDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "campaignhub",
			Subsystem: "federation",
			Name:      "fanout_duration_seconds",
			Help:      "Wall time of complete fan-out executions.",
			Buckets:   prometheus.DefBuckets,
		}),
		AccountCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "registry",
			Name:      "account_cache_hits_total",
			Help:      "Total number of account descriptor cache hits.",
		}),
		AccountCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "campaignhub",
			Subsystem: "registry",
			Name:      "account_cache_misses_total",
			Help:      "Total number of account descriptor cache misses.",
		}),
	}
}
