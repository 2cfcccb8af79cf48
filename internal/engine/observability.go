package engine

import (
	"time"

	"go.uber.org/zap"
)

// Metrics is the narrow counter/gauge surface internal/metrics
// satisfies; the engine reports through this interface rather than
// importing a concrete metrics package, so it stays testable without a
// prometheus registry.
type Metrics interface {
	BlockAccepted()
	BlockRejected(reason string)
	TransactionAccepted()
	TransactionRejected(reason string)
	OrphanBuffered()
}

type noopMetrics struct{}

func (noopMetrics) BlockAccepted()             {}
func (noopMetrics) BlockRejected(string)       {}
func (noopMetrics) TransactionAccepted()       {}
func (noopMetrics) TransactionRejected(string) {}
func (noopMetrics) OrphanBuffered()            {}

// Option configures optional Engine collaborators without disturbing
// New's existing four-argument call sites.
type Option func(*Engine)

// WithLogger attaches a logger the engine uses to record rejection
// reasons that would otherwise vanish into the silent-drop contract
// spec §7 mandates for the public AcceptBlock/AcceptTransaction return
// values.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches a Metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Stats is a point-in-time snapshot of the gauge-shaped quantities
// spec §4.9 names: chain height, tip age, mempool size, UTXO set
// size, and orphan buffer occupancy. Unlike the counters, these
// aren't naturally event-driven, so callers (cmd/poolnoded's metrics
// sampler) poll Stats on a timer rather than reacting to them inline.
type Stats struct {
	ChainHeight uint64
	TipAge      time.Duration
	MempoolSize int
	UTXOSetSize int
	OrphanCount int
}

// Stats takes all four locks, in order, to read a mutually consistent
// snapshot across containers.
func (e *Engine) Stats() Stats {
	var s Stats
	e.locks.withAll(func() {
		tip := e.Chain.Tip()
		height, _ := e.Chain.Height(tip)
		s.ChainHeight = height
		s.TipAge = time.Since(e.tipSince)
		s.MempoolSize = e.Mempool.Len()
		s.UTXOSetSize = e.State.Len()
		s.OrphanCount = len(e.orphans)
	})
	return s
}
