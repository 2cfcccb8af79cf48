// Package engine owns the four shared mutable containers named by the
// spec — chain, orphan_buffer, state, mempool — together with the
// lockset that enforces their mandated acquisition order
// (chain → orphan_buffer → state → mempool), and the operations that
// mutate more than one of them atomically: accepting a block, admitting
// a transaction, and installing a freshly mined block. Both the gossip
// worker pool and the miner drive these operations rather than touching
// chain/ledger directly, so the lock order lives in exactly one place.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/blockweave/poolnoded/internal/chain"
	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/wire"
)

// Broadcaster is the narrow transport collaborator the engine calls to
// fan a message out to every connected peer; see spec §6.
type Broadcaster interface {
	Broadcast(msg *wire.Message) error
}

// Engine bundles the block index, UTXO state, mempool, and orphan
// buffer behind the spec's mandated lock order.
type Engine struct {
	Chain   *chain.Chain
	State   *ledger.State
	Mempool *ledger.Mempool

	transport Broadcaster
	locks     lockset

	logger  *zap.Logger
	metrics Metrics

	orphans  map[crypto.H256]*wire.Block // parent_hash -> pending child
	tipSince time.Time                  // when the current tip was accepted
}

// New builds an Engine from its already-seeded containers. Opts may
// attach a logger and/or metrics sink; both default to no-ops so
// existing call sites need no changes.
func New(c *chain.Chain, s *ledger.State, m *ledger.Mempool, transport Broadcaster, opts ...Option) *Engine {
	e := &Engine{
		Chain:     c,
		State:     s,
		Mempool:   m,
		transport: transport,
		logger:    zap.NewNop(),
		metrics:   noopMetrics{},
		orphans:   make(map[crypto.H256]*wire.Block),
		tipSince:  time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) broadcast(msg *wire.Message) {
	if e.transport == nil {
		return
	}
	// Broadcast failures are a transport concern; the engine has no
	// retry policy of its own (spec §5, no operation-level timeouts).
	_ = e.transport.Broadcast(msg)
}
