package engine

import (
	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/wire"
)

// BlockSizeLimit is the maximum cumulative serialized size, in bytes,
// of the transactions a candidate block may carry.
const BlockSizeLimit = 2048

// Candidate is a snapshot of what a miner needs to assemble a block:
// the parent to build on, the difficulty it must inherit, and the
// transactions greedily selected from the mempool.
type Candidate struct {
	Parent     crypto.H256
	Difficulty crypto.H256
	Selected   []wire.SignedTransaction
}

// PrepareCandidate reads the current tip and its difficulty, then
// greedily selects mempool transactions in snapshot iteration order
// until the next one would push the cumulative serialized size past
// BlockSizeLimit. It holds chain then mempool, per the lock order, for
// the duration of the read — the miner relaxes the "hold chain across
// assembly" coupling the design notes permit by taking this snapshot
// and later submitting through InsertMinedBlock rather than inserting under
// the same critical section (see spec §9, "Miner-chain coupling").
//
// Selected transactions are not re-validated against state here, and
// are never re-validated afterward either: the miner submits the
// assembled block through InsertMinedBlock, which — unlike AcceptBlock
// — deliberately skips per-transaction content validation (spec §4.7
// step 4). This is the miner's known, intentional soundness gap (spec
// §9): a transaction valid when selected here can be invalidated by a
// block accepted before the mined block is submitted, and nothing
// catches that.
func (e *Engine) PrepareCandidate() Candidate {
	var c Candidate
	e.locks.withChainAndMempool(func() {
		c.Parent = e.Chain.Tip()
		if parent, ok := e.Chain.Get(c.Parent); ok {
			c.Difficulty = parent.Header.Difficulty
		}

		var size int
		for _, tx := range e.Mempool.Snapshot() {
			encoded := tx.Encode()
			if size+len(encoded) > BlockSizeLimit {
				break
			}
			c.Selected = append(c.Selected, tx)
			size += len(encoded)
		}
	})
	return c
}
