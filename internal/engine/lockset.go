package engine

import "sync"

// lockset holds the four coarse-grained exclusive locks the core's
// containers share, and enforces the mandated acquisition order
// chain → orphan_buffer → state → mempool uniformly: every helper below
// acquires an in-order subsequence of that sequence, never a different
// permutation, so
// two handlers can never deadlock against each other regardless of
// which subset of containers either one needs.
type lockset struct {
	chainMu   sync.Mutex
	orphanMu  sync.Mutex
	stateMu   sync.Mutex
	mempoolMu sync.Mutex
}

// withAll acquires all four locks, as the block-accept pipeline does.
func (l *lockset) withAll(f func()) {
	l.chainMu.Lock()
	defer l.chainMu.Unlock()
	l.orphanMu.Lock()
	defer l.orphanMu.Unlock()
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.mempoolMu.Lock()
	defer l.mempoolMu.Unlock()
	f()
}

// withStateAndMempool acquires state then mempool, as a worker handling
// a lone transaction does.
func (l *lockset) withStateAndMempool(f func()) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.mempoolMu.Lock()
	defer l.mempoolMu.Unlock()
	f()
}

// withChainAndMempool acquires chain then mempool, as the miner does
// while assembling a candidate block (state is taken too, in order,
// only once a block is ready to apply — see withAll).
func (l *lockset) withChainAndMempool(f func()) {
	l.chainMu.Lock()
	defer l.chainMu.Unlock()
	l.mempoolMu.Lock()
	defer l.mempoolMu.Unlock()
	f()
}

// withChain acquires chain alone. Nothing in this package calls it; the
// gossip pool's GetBlocks/NewBlockHashes lookups go through the Chain's
// own read lock instead.
func (l *lockset) withChain(f func()) {
	l.chainMu.Lock()
	defer l.chainMu.Unlock()
	f()
}
