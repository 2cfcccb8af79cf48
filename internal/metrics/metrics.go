// Package metrics exposes the node's Prometheus metric family and a
// thin Collector adapter satisfying internal/engine.Metrics, so the
// engine's accept pipeline can report through the same counters/gauges
// the HTTP /metrics endpoint serves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "chain_height",
		Help:      "Height of the current best tip.",
	})

	ChainTipAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "chain_tip_age_seconds",
		Help:      "Seconds since the current tip was accepted.",
	})

	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "mempool_size",
		Help:      "Number of transactions currently in the mempool.",
	})

	UTXOSetSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "utxo_set_size",
		Help:      "Number of unspent outputs in the UTXO set.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "peers_connected",
		Help:      "Number of connected P2P peers.",
	})

	OrphansBuffered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolnoded",
		Name:      "orphans_buffered",
		Help:      "Number of blocks currently held in the orphan buffer awaiting their parent.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poolnoded",
		Name:      "blocks_mined_total",
		Help:      "Total blocks successfully mined locally.",
	})

	BlocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poolnoded",
		Name:      "blocks_accepted_total",
		Help:      "Total blocks accepted into the chain, mined locally or received.",
	})

	BlocksRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolnoded",
		Name:      "blocks_rejected_total",
		Help:      "Total blocks rejected, by reason.",
	}, []string{"reason"})

	TransactionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poolnoded",
		Name:      "transactions_accepted_total",
		Help:      "Total transactions admitted to the mempool.",
	})

	TransactionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolnoded",
		Name:      "transactions_rejected_total",
		Help:      "Total transactions rejected, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		ChainHeight,
		ChainTipAgeSeconds,
		MempoolSize,
		UTXOSetSize,
		PeersConnected,
		OrphansBuffered,
		BlocksMined,
		BlocksAccepted,
		BlocksRejected,
		TransactionsAccepted,
		TransactionsRejected,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Collector adapts the package-level metric vars to
// internal/engine.Metrics. The engine holds one as its metrics sink;
// cmd/poolnoded passes metrics.NewCollector() in via
// engine.WithMetrics.
type Collector struct{}

// NewCollector returns an engine.Metrics backed by the package's
// Prometheus metrics.
func NewCollector() Collector {
	return Collector{}
}

// BlockMined satisfies internal/miner.MetricsRecorder: incremented once
// per locally-mined block, distinct from BlockAccepted which also
// fires for blocks received over the network.
func (Collector) BlockMined() {
	BlocksMined.Inc()
}

func (Collector) BlockAccepted() {
	BlocksAccepted.Inc()
}

func (Collector) BlockRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BlocksRejected.WithLabelValues(reason).Inc()
}

func (Collector) TransactionAccepted() {
	TransactionsAccepted.Inc()
}

func (Collector) TransactionRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	TransactionsRejected.WithLabelValues(reason).Inc()
}

// OrphanBuffered increments the orphan gauge. The gauge is also
// corrected by the periodic sampler in cmd/poolnoded (via SetGauges),
// which reads the engine's actual orphan count; this increment just
// keeps the gauge responsive between sampler ticks.
func (Collector) OrphanBuffered() {
	OrphansBuffered.Inc()
}

// SetGauges refreshes the point-in-time gauges from a live snapshot.
// cmd/poolnoded calls this periodically since, unlike the counters,
// these values aren't naturally event-driven.
func SetGauges(chainHeight uint64, tipAgeSeconds float64, mempoolSize, utxoSetSize, peersConnected, orphansBuffered int) {
	ChainHeight.Set(float64(chainHeight))
	ChainTipAgeSeconds.Set(tipAgeSeconds)
	MempoolSize.Set(float64(mempoolSize))
	UTXOSetSize.Set(float64(utxoSetSize))
	PeersConnected.Set(float64(peersConnected))
	OrphansBuffered.Set(float64(orphansBuffered))
}
