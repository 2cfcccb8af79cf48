// Package miner implements the PoW loop: a single goroutine driven by a
// control channel that repeatedly assembles a candidate block from the
// current tip and mempool, searches for a nonce meeting the inherited
// difficulty, and on success submits the block through internal/engine.
// The control-channel/operating-state shape is grounded on the source
// implementation's ControlSignal/OperatingState enum (original_source
// src/miner.rs), ported from a blocking channel receive/try-receive
// pair to Go channels and a select statement.
package miner

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/engine"
	"github.com/blockweave/poolnoded/internal/merkle"
	"github.com/blockweave/poolnoded/internal/nodeerrors"
	"github.com/blockweave/poolnoded/internal/wire"
)

// controlSignal carries a command on the control channel.
type controlSignal struct {
	start    bool
	interval time.Duration
	exit     bool
}

// operatingState mirrors the source's Paused | Run(interval) | ShutDown.
type operatingState int

const (
	statePaused operatingState = iota
	stateRunning
	stateShutDown
)

// Clock returns the current time as milliseconds since the Unix epoch.
// The core treats wall-clock time as an external collaborator, the same
// way it treats the crypto primitives and RNG (spec §1).
type Clock func() uint64

// MetricsRecorder is the narrow counter surface internal/metrics
// satisfies for locally-mined blocks — distinct from
// engine.Metrics.BlockAccepted, which also fires for blocks received
// over the network.
type MetricsRecorder interface {
	BlockMined()
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) BlockMined() {}

// Option configures optional Miner collaborators without disturbing
// New's existing three-argument call sites.
type Option func(*Miner)

// WithMetrics attaches a MetricsRecorder incremented each time mineOnce
// finds a valid nonce.
func WithMetrics(m MetricsRecorder) Option {
	return func(mi *Miner) { mi.metrics = m }
}

// Miner runs the PoW loop as a single goroutine, controlled by Start
// and Exit from any other goroutine.
type Miner struct {
	engine  *engine.Engine
	logger  *zap.Logger
	clock   Clock
	metrics MetricsRecorder

	control chan controlSignal
	done    chan struct{}
}

// New builds a Miner bound to eng. clock supplies the block timestamp;
// pass nil to use time.Now in milliseconds.
func New(eng *engine.Engine, logger *zap.Logger, clock Clock, opts ...Option) *Miner {
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().UnixMilli()) }
	}
	m := &Miner{
		engine:  eng,
		logger:  logger,
		clock:   clock,
		metrics: noopMetricsRecorder{},
		control: make(chan controlSignal, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the mining loop in the caller's goroutine; callers
// typically invoke this via `go m.Run()`. The miner starts Paused and
// does no work until Start is called.
func (m *Miner) Run() {
	defer close(m.done)
	state := statePaused
	var interval time.Duration

	for {
		switch state {
		case statePaused:
			sig := <-m.control
			state, interval = m.applySignal(sig)
			continue
		case stateShutDown:
			return
		}

		select {
		case sig := <-m.control:
			state, interval = m.applySignal(sig)
			if state == stateShutDown {
				return
			}
		default:
		}

		m.mineOnce()

		if interval > 0 {
			time.Sleep(interval)
		}
	}
}

func (m *Miner) applySignal(sig controlSignal) (operatingState, time.Duration) {
	if sig.exit {
		m.logger.Info("miner shutting down")
		return stateShutDown, 0
	}
	m.logger.Info("miner starting", zap.Duration("interval", sig.interval))
	return stateRunning, sig.interval
}

// Start transitions the miner into Running(interval). intervalMicros
// matches the spec's `Start(interval_µs)` signal; zero means mine as
// fast as possible with no sleep between iterations.
func (m *Miner) Start(intervalMicros uint64) {
	m.control <- controlSignal{start: true, interval: time.Duration(intervalMicros) * time.Microsecond}
}

// Exit signals the miner to shut down. Run returns once the in-flight
// iteration (if any) completes.
func (m *Miner) Exit() {
	m.control <- controlSignal{exit: true}
}

// Done is closed once Run has returned, for callers that need to wait
// out a clean shutdown.
func (m *Miner) Done() <-chan struct{} {
	return m.done
}

// mineOnce performs one candidate-assembly-and-search iteration.
func (m *Miner) mineOnce() {
	candidate := m.engine.PrepareCandidate()

	leaves := make([]merkle.Hashable, len(candidate.Selected))
	for i := range candidate.Selected {
		leaves[i] = txLeaf(candidate.Selected[i])
	}
	root := merkle.New(leaves).Root()

	header := wire.Header{
		Parent:     candidate.Parent,
		Difficulty: candidate.Difficulty,
		Timestamp:  m.clock(),
		MerkleRoot: root,
		Nonce:      randomNonce(),
	}

	if !header.Hash().LessOrEqual(candidate.Difficulty) {
		return
	}

	block := &wire.Block{Header: header, Content: candidate.Selected}
	if err := m.engine.InsertMinedBlock(block); err != nil {
		m.logger.Warn("submitting mined block failed", zap.Error(err))
		return
	}
	m.metrics.BlockMined()
	m.logger.Info("mined block", zap.Stringer("hash", block.Hash()))
}

type txLeaf wire.SignedTransaction

func (l txLeaf) Hash() crypto.H256 { return wire.SignedTransaction(l).Hash() }

// randomNonce draws a uniformly random u32 from the external RNG
// collaborator (crypto/rand, per spec §1's "random-number source").
func randomNonce() uint32 {
	var buf [4]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// crypto/rand failing indicates a broken host entropy source;
		// the spec treats this class of failure as fatal (§7, "lock
		// poisoning / thread death") rather than a rejected block/message.
		panic(nodeerrors.New(nodeerrors.CategoryFatal, "miner: crypto/rand unavailable: "+err.Error()))
	}
	return binary.BigEndian.Uint32(buf[:])
}
