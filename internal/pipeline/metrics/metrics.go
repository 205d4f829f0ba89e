package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles tracks completed poll cycles per node
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepulse_poll_cycles_total",
			Help: "Total number of completed poll cycles",
		},
		[]string{"node"},
	)

	// TicksDropped counts ticks that arrived while a cycle was still running
	TicksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepulse_poll_ticks_dropped_total",
			Help: "Total number of ticks dropped because a cycle was in progress",
		},
		[]string{"node"},
	)

	// FetchFailures tracks failed sub-snapshot fetches per node and source
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepulse_fetch_failures_total",
			Help: "Total number of failed snapshot fetches",
		},
		[]string{"node", "source"},
	)

	// FetchDuration tracks how long each source fetch took
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nodepulse_fetch_duration_seconds",
			Help:    "Snapshot fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node", "source"},
	)

	// RPCCallsTotal tracks JSON-RPC calls per endpoint and method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepulse_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks JSON-RPC errors per endpoint
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepulse_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nodepulse_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// ExpositionLinesSkipped counts exposition lines that could not be parsed
	ExpositionLinesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nodepulse_exposition_lines_skipped_total",
			Help: "Total number of unparsable exposition lines that were skipped",
		},
	)

	// HistoryLength tracks the number of retained samples per node
	HistoryLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodepulse_history_length",
			Help: "Number of samples currently retained in history",
		},
		[]string{"node"},
	)

	// HealthScore tracks the latest health score per node
	HealthScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodepulse_health_score",
			Help: "Latest network health score (0-100)",
		},
		[]string{"node"},
	)

	// ChainLatestBlock tracks the latest block height reported by the node
	ChainLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodepulse_chain_latest_block",
			Help: "Latest block height reported by the node",
		},
		[]string{"node"},
	)
)
