// Package chain holds the in-memory block index: blocks keyed by hash,
// each block's height, and the current tip of the longest chain.
// Historical blocks remain indexed after the tip moves past them, but
// are not traversed by LongestChain.
package chain

import (
	"sync"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/nodeerrors"
	"github.com/blockweave/poolnoded/internal/wire"
)

// Chain is the concurrency-safe block index. The zero value is not
// usable; construct with New.
type Chain struct {
	mu        sync.RWMutex
	blockmap  map[crypto.H256]*wire.Block
	heightmap map[crypto.H256]uint64
	tip       crypto.H256
	tipHeight uint64
}

// New seeds the index with genesis and returns a ready Chain.
func New(genesis *wire.Block) *Chain {
	hash := genesis.Hash()
	c := &Chain{
		blockmap:  map[crypto.H256]*wire.Block{hash: genesis},
		heightmap: map[crypto.H256]uint64{hash: 0},
		tip:       hash,
		tipHeight: 0,
	}
	return c
}

// Has reports whether a block hash is present in the index.
func (c *Chain) Has(hash crypto.H256) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.blockmap[hash]
	return ok
}

// Get returns the block for hash, if known.
func (c *Chain) Get(hash crypto.H256) (*wire.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blockmap[hash]
	return b, ok
}

// Height returns the height of hash, if known.
func (c *Chain) Height(hash crypto.H256) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.heightmap[hash]
	return h, ok
}

// Tip returns the current chain tip.
func (c *Chain) Tip() crypto.H256 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// Insert adds block to the index. block.Header.Parent must already be
// present; the caller (the gossip pipeline) is responsible for PoW and
// content validation before calling Insert — Insert itself only
// maintains the index invariants (height bookkeeping, tip selection)
// and is idempotent on a hash already present.
func (c *Chain) Insert(block *wire.Block) (inserted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := block.Hash()
	if _, ok := c.blockmap[hash]; ok {
		return false, nil
	}

	parentHeight, ok := c.heightmap[block.Header.Parent]
	if !ok {
		return false, nodeerrors.New(nodeerrors.CategoryOrphan, "block parent not in index")
	}

	height := parentHeight + 1
	c.blockmap[hash] = block
	c.heightmap[hash] = height

	if height > c.tipHeight {
		c.tip = hash
		c.tipHeight = height
	}
	return true, nil
}

// LongestChain walks parent links from the tip back to the zero hash
// and returns the hashes in tip-first order.
func (c *Chain) LongestChain() []crypto.H256 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []crypto.H256
	cur := c.tip
	for {
		block, ok := c.blockmap[cur]
		if !ok {
			break
		}
		out = append(out, cur)
		if block.Header.Parent.IsZero() {
			break
		}
		cur = block.Header.Parent
	}
	return out
}
