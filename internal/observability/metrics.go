package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client daemon.
type Metrics struct {
	// --- Oracle ---
	OracleFetches     *prometheus.CounterVec
	OracleFetchErrors *prometheus.CounterVec
	OracleFetchDur    *prometheus.HistogramVec
	OracleQuoteAge    *prometheus.GaugeVec
	OracleCacheSkips  *prometheus.CounterVec

	// --- Bundler ---
	BundlesPrepared    *prometheus.CounterVec
	BundleUpdateMsgs   prometheus.Histogram
	BundleOracleBypass prometheus.Counter

	// --- Broadcast ---
	Broadcasts        *prometheus.CounterVec
	BroadcastDur      *prometheus.HistogramVec
	BroadcastTimeouts prometheus.Counter

	// --- Transaction log / reconciler ---
	TimelineMerges       prometheus.Counter
	TimelineMergeDur     prometheus.Histogram
	TimelineMemoHits     prometheus.Counter
	ReconcileResolutions *prometheus.CounterVec
	IndexerDegraded      prometheus.Counter

	// --- Risk ---
	RiskSnapshots     *prometheus.CounterVec
	RiskUnknownPrices prometheus.Counter

	// --- Faucet ---
	FaucetGrants    *prometheus.CounterVec
	FaucetCooldowns *prometheus.CounterVec

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	fetchBuckets := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}

	return &Metrics{
		OracleFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_oracle_fetches_total",
			Help: "Price-feed fetches attempted",
		}, []string{"denom"}),

		OracleFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_oracle_fetch_errors_total",
			Help: "Price-feed fetches failed",
		}, []string{"denom", "reason"}),

		OracleFetchDur: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stone_oracle_fetch_duration_seconds",
			Help:    "Price-feed fetch latency",
			Buckets: fetchBuckets,
		}, []string{"denom"}),

		OracleQuoteAge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stone_oracle_quote_age_seconds",
			Help: "Age of the cached quote per denom",
		}, []string{"denom"}),

		OracleCacheSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_oracle_cache_skips_total",
			Help: "Update messages skipped because the cached quote was fresh",
		}, []string{"denom"}),

		BundlesPrepared: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_bundles_prepared_total",
			Help: "Instruction batches prepared",
		}, []string{"action"}),

		BundleUpdateMsgs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stone_bundle_update_msgs",
			Help:    "Price-update instructions per batch",
			Buckets: []float64{0, 1, 2},
		}),

		BundleOracleBypass: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_bundle_oracle_bypass_total",
			Help: "Batches sent without updates because the feed was unreachable",
		}),

		Broadcasts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_broadcasts_total",
			Help: "Broadcast outcomes",
		}, []string{"action", "outcome"}),

		BroadcastDur: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stone_broadcast_duration_seconds",
			Help:    "Sign-and-broadcast latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"action"}),

		BroadcastTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_broadcast_timeouts_total",
			Help: "Broadcasts with no confirmation inside the deadline",
		}),

		TimelineMerges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_timeline_merges_total",
			Help: "Merged timeline computations",
		}),

		TimelineMergeDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stone_timeline_merge_duration_seconds",
			Help:    "Merge latency",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),

		TimelineMemoHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_timeline_memo_hits_total",
			Help: "Merges answered from the memoized result",
		}),

		ReconcileResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_reconcile_resolutions_total",
			Help: "Unconfirmed transactions resolved against the indexer",
		}, []string{"outcome"}),

		IndexerDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_indexer_degraded_total",
			Help: "Timeline served from the local log only",
		}),

		RiskSnapshots: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_risk_snapshots_total",
			Help: "Risk snapshots computed",
		}, []string{"status"}),

		RiskUnknownPrices: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stone_risk_unknown_prices_total",
			Help: "Snapshots computed with a missing price",
		}),

		FaucetGrants: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_faucet_grants_total",
			Help: "Faucet grants issued",
		}, []string{"denom"}),

		FaucetCooldowns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_faucet_cooldowns_total",
			Help: "Faucet requests rejected by cooldown",
		}, []string{"denom"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stone_http_requests_total",
			Help: "API requests",
		}, []string{"route", "status"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stone_http_request_duration_seconds",
			Help:    "API request latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"route"}),
	}
}
