// Package gossip implements the worker pool that drives the three-phase
// Announce → Request → Deliver gossip protocol: it decodes inbound wire
// messages, dispatches by case analysis on the message's tagged-union
// type, and delegates every state-mutating action to internal/engine so
// the mandated lock order is enforced in exactly one place.
package gossip

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/engine"
	"github.com/blockweave/poolnoded/internal/wire"
)

// PeerHandle is the narrow point-to-point collaborator a worker replies
// through; the transport facade supplies the concrete implementation.
type PeerHandle interface {
	ID() string
	Write(msg *wire.Message) error
}

type envelope struct {
	data []byte
	peer PeerHandle
}

// Pool is the gossip worker pool: a fixed number of goroutines draining
// a shared inbound channel of (bytes, peer) pairs.
type Pool struct {
	engine *engine.Engine
	logger *zap.Logger

	inbound chan envelope

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	wg sync.WaitGroup
}

// maxPeerLimiters bounds the rate-limiter map the same way the
// teacher's pubsub layer bounds its per-peer map: evict arbitrarily
// rather than grow without limit.
const maxPeerLimiters = 500

// New builds a Pool over eng. inboundCapacity sizes the channel the
// transport layer feeds via Dispatch; spec §5 calls the channel
// unbounded, which this approximates with a large buffer rather than an
// literal unbounded queue.
func New(eng *engine.Engine, logger *zap.Logger, inboundCapacity int) *Pool {
	if inboundCapacity <= 0 {
		inboundCapacity = 4096
	}
	return &Pool{
		engine:   eng,
		logger:   logger,
		inbound:  make(chan envelope, inboundCapacity),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Start spawns numWorkers goroutines, each running worker_loop until
// the inbound channel is closed (spec §5: "Workers run until their
// receive channel closes").
func (p *Pool) Start(numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.workerLoop(id)
		}(i)
	}
}

// Dispatch enqueues a raw message received from peer for processing by
// a worker. Safe to call concurrently from many transport goroutines.
func (p *Pool) Dispatch(data []byte, peer PeerHandle) {
	select {
	case p.inbound <- envelope{data: data, peer: peer}:
	default:
		p.logger.Warn("inbound gossip channel full, dropping message", zap.String("peer", peer.ID()))
	}
}

// Close stops accepting new work and waits for in-flight workers to
// drain the channel.
func (p *Pool) Close() {
	close(p.inbound)
	p.wg.Wait()
}

func (p *Pool) workerLoop(id int) {
	for env := range p.inbound {
		if !p.peerLimiter(env.peer.ID()).Allow() {
			p.logger.Debug("peer rate limited", zap.String("peer", env.peer.ID()))
			continue
		}
		msg, err := wire.Decode(env.data)
		if err != nil {
			p.logger.Debug("malformed gossip message, dropping", zap.Error(err))
			continue
		}
		p.handle(msg, env.peer)
	}
}

func (p *Pool) peerLimiter(id string) *rate.Limiter {
	p.limitersMu.Lock()
	defer p.limitersMu.Unlock()

	if lim, ok := p.limiters[id]; ok {
		return lim
	}
	if len(p.limiters) >= maxPeerLimiters {
		for k := range p.limiters {
			delete(p.limiters, k)
			break
		}
	}
	lim := rate.NewLimiter(50, 100)
	p.limiters[id] = lim
	return lim
}

func (p *Pool) handle(msg *wire.Message, peer PeerHandle) {
	switch msg.Type {
	case wire.MsgPing:
		p.handlePing(msg, peer)
	case wire.MsgPong:
		p.logger.Debug("pong", zap.Uint64("nonce", msg.PongNonce), zap.String("peer", peer.ID()))
	case wire.MsgNewBlockHashes:
		p.handleNewBlockHashes(msg, peer)
	case wire.MsgGetBlocks:
		p.handleGetBlocks(msg, peer)
	case wire.MsgBlocks:
		p.handleBlocks(msg)
	case wire.MsgNewTransactionHashes:
		p.handleNewTransactionHashes(msg, peer)
	case wire.MsgGetTransactions:
		p.handleGetTransactions(msg, peer)
	case wire.MsgTransactions:
		p.handleTransactions(msg)
	default:
		p.logger.Debug("unknown gossip message type, dropping", zap.Uint8("type", uint8(msg.Type)))
	}
}

func (p *Pool) handlePing(msg *wire.Message, peer PeerHandle) {
	if err := peer.Write(wire.Pong(msg.PingNonce)); err != nil {
		p.logger.Debug("write pong failed", zap.Error(err))
	}
}

func (p *Pool) handleNewBlockHashes(msg *wire.Message, peer PeerHandle) {
	var unknown []crypto.H256
	for _, h := range msg.BlockHashes {
		if !p.engine.Chain.Has(h) {
			unknown = append(unknown, h)
		}
	}
	if len(unknown) == 0 {
		return
	}
	if err := peer.Write(wire.GetBlocks(unknown)); err != nil {
		p.logger.Debug("write getblocks failed", zap.Error(err))
	}
}

func (p *Pool) handleGetBlocks(msg *wire.Message, peer PeerHandle) {
	var blocks []wire.Block
	for _, h := range msg.BlockHashes {
		if b, ok := p.engine.Chain.Get(h); ok {
			blocks = append(blocks, *b)
		}
	}
	if err := peer.Write(wire.Blocks(blocks)); err != nil {
		p.logger.Debug("write blocks failed", zap.Error(err))
	}
}

func (p *Pool) handleBlocks(msg *wire.Message) {
	for i := range msg.Blocks {
		b := msg.Blocks[i]
		if err := p.engine.AcceptBlock(&b); err != nil {
			p.logger.Debug("accept block failed", zap.Error(err))
		}
	}
}

func (p *Pool) handleNewTransactionHashes(msg *wire.Message, peer PeerHandle) {
	var unknown []crypto.H256
	for _, h := range msg.TransactionHashes {
		if !p.engine.Mempool.Has(h) {
			unknown = append(unknown, h)
		}
	}
	if len(unknown) == 0 {
		return
	}
	if err := peer.Write(wire.GetTransactions(unknown)); err != nil {
		p.logger.Debug("write gettransactions failed", zap.Error(err))
	}
}

func (p *Pool) handleGetTransactions(msg *wire.Message, peer PeerHandle) {
	var txs []wire.SignedTransaction
	for _, h := range msg.TransactionHashes {
		if tx, ok := p.engine.Mempool.Get(h); ok {
			txs = append(txs, tx)
		}
	}
	if err := peer.Write(wire.Transactions(txs)); err != nil {
		p.logger.Debug("write transactions failed", zap.Error(err))
	}
}

func (p *Pool) handleTransactions(msg *wire.Message) {
	for i := range msg.Transactions {
		tx := msg.Transactions[i]
		p.engine.AcceptTransaction(&tx)
	}
}
