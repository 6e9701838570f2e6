// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Decoder metrics
	EventsDecoded     *prometheus.CounterVec
	EventDecodeErrors *prometheus.CounterVec

	// Writer metrics
	WriteOutcomes *prometheus.CounterVec
	WriteLatency  *prometheus.HistogramVec

	// Ingestion metrics
	CheckpointBlock  prometheus.Gauge
	ChainHead        prometheus.Gauge
	BackfillRetries  prometheus.Counter
	LiveResubscribes prometheus.Counter
	LiveBufferSize   prometheus.Gauge
	RPCCallLatency   *prometheus.HistogramVec

	// Hub metrics
	HubClients         prometheus.Gauge
	HubMessagesSent    prometheus.Counter
	HubMessagesDropped *prometheus.CounterVec

	// Aggregator metrics
	AggregatorRuns     *prometheus.CounterVec
	AggregatorDuration prometheus.Histogram
	TokensAggregated   prometheus.Counter

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Bus metrics
	BusPublishErrors prometheus.Counter

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchpad_indexer"
	}

	return &Metrics{
		// Decoder metrics
		EventsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "events_decoded_total",
			Help:      "Total number of contract events decoded by type",
		}, []string{"event_type"}),
		EventDecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "decode_errors_total",
			Help:      "Total number of logs skipped because they failed to decode",
		}, []string{"event"}),

		// Writer metrics
		WriteOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "writes_total",
			Help:      "Total number of event writes by type and outcome",
		}, []string{"event_type", "outcome"}),
		WriteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "write_latency_seconds",
			Help:      "Event write latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),

		// Ingestion metrics
		CheckpointBlock: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "checkpoint_block",
			Help:      "Last fully processed block",
		}),
		ChainHead: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "chain_head_block",
			Help:      "Latest chain head seen by the backfill engine",
		}),
		BackfillRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "backfill_retries_total",
			Help:      "Total number of backfill range retries",
		}),
		LiveResubscribes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "live_resubscribes_total",
			Help:      "Total number of live subscription resubscribes",
		}),
		LiveBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "live_buffer_size",
			Help:      "Live events buffered while backfill catches up",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Hub metrics
		HubClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "clients",
			Help:      "Number of connected broadcast clients",
		}),
		HubMessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_sent_total",
			Help:      "Total number of messages queued to clients",
		}),
		HubMessagesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_dropped_total",
			Help:      "Total number of messages dropped by reason",
		}, []string{"reason"}),

		// Aggregator metrics
		AggregatorRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Total number of aggregator cycles by status",
		}, []string{"status"}),
		AggregatorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "duration_seconds",
			Help:      "Aggregator cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TokensAggregated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "tokens_total",
			Help:      "Total number of token metrics computed",
		}),

		// Cache metrics
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by tier and result",
		}, []string{"tier", "result"}),

		// Bus metrics
		BusPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "publish_errors_total",
			Help:      "Total number of failed event bus publishes",
		}),

		// Health metrics
		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last committed backfill batch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDecoded increments the decoded events counter.
func RecordDecoded(eventType string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(eventType).Inc()
}

// RecordDecodeError increments the decode errors counter.
func RecordDecodeError(event string) {
	DefaultMetrics.EventDecodeErrors.WithLabelValues(event).Inc()
}

// RecordWrite records a write outcome and its latency.
func RecordWrite(eventType, outcome string, seconds float64) {
	DefaultMetrics.WriteOutcomes.WithLabelValues(eventType, outcome).Inc()
	DefaultMetrics.WriteLatency.WithLabelValues(eventType).Observe(seconds)
}

// UpdateCheckpoint updates the checkpoint gauge.
func UpdateCheckpoint(block uint64) {
	DefaultMetrics.CheckpointBlock.Set(float64(block))
}

// UpdateChainHead updates the chain head gauge.
func UpdateChainHead(block uint64) {
	DefaultMetrics.ChainHead.Set(float64(block))
}

// RecordBackfillRetry increments the backfill retries counter.
func RecordBackfillRetry() {
	DefaultMetrics.BackfillRetries.Inc()
}

// RecordResubscribe increments the live resubscribes counter.
func RecordResubscribe() {
	DefaultMetrics.LiveResubscribes.Inc()
}

// UpdateLiveBuffer updates the live buffer gauge.
func UpdateLiveBuffer(n int) {
	DefaultMetrics.LiveBufferSize.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// UpdateHubClients updates the connected clients gauge.
func UpdateHubClients(n int) {
	DefaultMetrics.HubClients.Set(float64(n))
}

// RecordHubSent increments the sent messages counter.
func RecordHubSent() {
	DefaultMetrics.HubMessagesSent.Inc()
}

// RecordHubDropped increments the dropped messages counter.
func RecordHubDropped(reason string) {
	DefaultMetrics.HubMessagesDropped.WithLabelValues(reason).Inc()
}

// RecordAggregatorRun records an aggregator cycle.
func RecordAggregatorRun(status string, durationSeconds float64, tokens int) {
	DefaultMetrics.AggregatorRuns.WithLabelValues(status).Inc()
	DefaultMetrics.AggregatorDuration.Observe(durationSeconds)
	DefaultMetrics.TokensAggregated.Add(float64(tokens))
}

// RecordCacheLookup records a cache lookup.
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordBusPublishError increments the bus publish errors counter.
func RecordBusPublishError() {
	DefaultMetrics.BusPublishErrors.Inc()
}

// RecordBatchCommitted updates the last successful batch timestamp.
func RecordBatchCommitted(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulBatch.Set(float64(unixSeconds))
}
