// Package ledger holds the two pieces of mutable state that advance
// together on every accepted transaction: the unconfirmed transaction
// pool and the UTXO set. Both are plain maps behind a mutex; neither
// persists across a restart (see spec §6, Persisted state: none).
package ledger

import (
	"sync"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/wire"
)

// Mempool is the unconfirmed-transaction set, keyed by the single-SHA-256
// gossip/mempool hash of the SignedTransaction (wire.SignedTransaction.Hash,
// not the double-hashed Txid).
type Mempool struct {
	mu    sync.RWMutex
	txmap map[crypto.H256]wire.SignedTransaction
}

// NewMempool returns an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{txmap: make(map[crypto.H256]wire.SignedTransaction)}
}

// Insert adds or replaces tx under its hash. Idempotent.
func (m *Mempool) Insert(tx wire.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txmap[tx.Hash()] = tx
}

// Remove deletes tx by hash. A no-op if absent.
func (m *Mempool) Remove(tx wire.SignedTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txmap, tx.Hash())
}

// RemoveHash deletes by hash directly.
func (m *Mempool) RemoveHash(hash crypto.H256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txmap, hash)
}

// Get looks up a transaction by its mempool hash.
func (m *Mempool) Get(hash crypto.H256) (wire.SignedTransaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txmap[hash]
	return tx, ok
}

// Has reports whether hash is present.
func (m *Mempool) Has(hash crypto.H256) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.txmap[hash]
	return ok
}

// Len returns the current mempool size.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txmap)
}

// Snapshot returns a stable copy of the current mempool contents for
// iteration (e.g. by the miner's greedy selection). Map iteration order
// is unspecified by the language, but a snapshot is internally
// consistent for the duration of the caller's use.
func (m *Mempool) Snapshot() []wire.SignedTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]wire.SignedTransaction, 0, len(m.txmap))
	for _, tx := range m.txmap {
		out = append(out, tx)
	}
	return out
}
