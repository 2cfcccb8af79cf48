package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/nodeerrors"
	"github.com/blockweave/poolnoded/internal/wire"
)

// AcceptBlock runs the block-accept pipeline for a single received
// block: dedupe, orphan buffering, PoW/difficulty check, content
// validation, atomic apply, broadcast, and orphan flush. It holds all
// four containers for the duration, in the mandated order.
//
// A nil return does not mean b was inserted — a dedupe, an orphan
// buffer, or a content/PoW rejection are all nil-error, silent
// outcomes per spec §7; callers that care should consult Chain.Has
// after the call.
func (e *Engine) AcceptBlock(b *wire.Block) error {
	var flushed []crypto.H256
	e.locks.withAll(func() {
		flushed = e.acceptBlockLocked(b)
	})
	for _, h := range flushed {
		e.broadcast(wire.NewBlockHashes([]crypto.H256{h}))
	}
	return nil
}

// InsertMinedBlock is the miner's own insertion path, distinct from
// AcceptBlock. Spec §4.7 step 4 defines the miner's self-insertion
// literally as "remove from mempool; apply to state; insert; broadcast"
// — with no call back into §4.5's per-transaction content validation.
// Routing mined blocks through AcceptBlock instead would silently
// re-validate every transaction the miner already selected from the
// mempool, closing a gap the spec (§9, "Known gaps") explicitly says to
// preserve rather than resolve: a transaction can leave the mempool
// valid and be invalidated by a block accepted in the window between
// PrepareCandidate and submission, and the miner does not re-check for
// that here. Header-level checks (PoW, difficulty, merkle binding)
// still run, since those aren't the gap in question — a malformed
// header is never a valid insertion regardless of which path produced
// the block.
func (e *Engine) InsertMinedBlock(b *wire.Block) error {
	var flushed []crypto.H256
	e.locks.withAll(func() {
		flushed = e.insertMinedBlockLocked(b)
	})
	for _, h := range flushed {
		e.broadcast(wire.NewBlockHashes([]crypto.H256{h}))
	}
	return nil
}

// acceptBlockLocked implements steps 1-7 assuming all four locks are
// already held. It returns the hashes of every block actually inserted
// (the accepted block plus any orphans it unblocked), in insertion
// order, for the caller to broadcast outside the lock.
func (e *Engine) acceptBlockLocked(b *wire.Block) []crypto.H256 {
	return e.insertChainLocked(b, e.validateBlockLocked)
}

// insertMinedBlockLocked implements InsertMinedBlock's steps assuming
// all four locks are already held. It shares acceptBlockLocked's dedupe/
// orphan-buffer/apply/flush machinery but swaps in
// validateMinedBlockLocked, which skips the per-transaction content
// validation loop per spec §4.7 step 4 — see InsertMinedBlock's doc
// comment.
func (e *Engine) insertMinedBlockLocked(b *wire.Block) []crypto.H256 {
	return e.insertChainLocked(b, e.validateMinedBlockLocked)
}

// insertChainLocked is the shared body of steps 1-7: dedupe, orphan
// buffering, a caller-supplied validation step, atomic apply, chain
// insert, and orphan flush. validate is validateBlockLocked for
// externally received blocks or validateMinedBlockLocked for the
// miner's own blocks — the only place the two insertion paths differ.
func (e *Engine) insertChainLocked(b *wire.Block, validate func(*wire.Block) string) []crypto.H256 {
	var inserted []crypto.H256
	cur := b
	for cur != nil {
		hash := cur.Hash()

		// 1. Dedupe.
		if e.Chain.Has(hash) {
			break
		}

		// 2. Unknown parent -> orphan buffer, stop this chain of work.
		if !e.Chain.Has(cur.Header.Parent) {
			e.orphans[cur.Header.Parent] = cur
			e.metrics.OrphanBuffered()
			e.logger.Debug("block buffered as orphan", zap.Stringer("parent", cur.Header.Parent))
			break
		}

		if reason := validate(cur); reason != "" {
			e.metrics.BlockRejected(reason)
			e.logger.Debug("block rejected", zap.String("reason", reason), zap.Stringer("hash", hash))
			break
		}

		// 5. Atomic apply: mempool removal + state update per tx, then
		// chain insert.
		for i := range cur.Content {
			tx := cur.Content[i]
			e.Mempool.RemoveHash(tx.Hash())
			e.State.Update(&tx)
		}
		if _, err := e.Chain.Insert(cur); err != nil {
			e.metrics.BlockRejected(string(nodeerrors.CategoryOf(err)))
			break
		}
		e.metrics.BlockAccepted()
		e.tipSince = time.Now()
		inserted = append(inserted, hash)

		// 7. Orphan flush: the next iteration looks for a buffered
		// child of the block we just inserted.
		next, ok := e.orphans[hash]
		if !ok {
			break
		}
		delete(e.orphans, hash)
		cur = next
	}
	return inserted
}

// validateBlockLocked runs step 3 (PoW + difficulty consistency), the
// additive merkle-root check, and step 4 (per-transaction validation).
// It returns "" on success, or a short reason string identifying which
// check failed — this never crosses the public AcceptBlock boundary
// (spec §7 mandates a silent drop there) but is used for metrics and
// debug logging.
func (e *Engine) validateBlockLocked(b *wire.Block) string {
	if reason := e.validateHeaderLocked(b); reason != "" {
		return reason
	}
	for i := range b.Content {
		if err := ledger.Validate(&b.Content[i], e.State); err != nil {
			return string(nodeerrors.CategoryOf(err))
		}
	}
	return ""
}

// validateMinedBlockLocked runs the same header checks as
// validateBlockLocked (step 3 PoW/difficulty and the merkle-root check)
// but deliberately omits step 4's per-transaction content validation
// loop. This is InsertMinedBlock's validation step — see its doc
// comment for why the omission is intentional rather than an oversight.
func (e *Engine) validateMinedBlockLocked(b *wire.Block) string {
	return e.validateHeaderLocked(b)
}

// validateHeaderLocked runs step 3: PoW/difficulty consistency with the
// parent and the additive merkle-root binding check. Both insertion
// paths (gossip-received and self-mined) require this regardless of
// whether per-transaction content validation runs, since it's what
// proves the header actually describes the content and chain position
// it claims.
func (e *Engine) validateHeaderLocked(b *wire.Block) string {
	parent, ok := e.Chain.Get(b.Header.Parent)
	if !ok {
		return string(nodeerrors.CategoryOrphan)
	}
	if b.Header.Difficulty != parent.Header.Difficulty {
		return string(nodeerrors.CategoryPoW)
	}
	if !b.Hash().LessOrEqual(b.Header.Difficulty) {
		return string(nodeerrors.CategoryPoW)
	}
	if b.MerkleRoot() != b.Header.MerkleRoot {
		return string(nodeerrors.CategoryPoW)
	}
	return ""
}

// AcceptTransaction runs the three-step validation predicate under
// state+mempool and, on success, admits tx to the mempool and
// broadcasts NewTransactionHashes. It reports whether tx was admitted.
func (e *Engine) AcceptTransaction(tx *wire.SignedTransaction) bool {
	var admitted bool
	e.locks.withStateAndMempool(func() {
		if err := ledger.Validate(tx, e.State); err != nil {
			e.metrics.TransactionRejected(string(nodeerrors.CategoryOf(err)))
			e.logger.Debug("transaction rejected", zap.String("reason", string(nodeerrors.CategoryOf(err))), zap.Stringer("hash", tx.Hash()))
			return
		}
		e.Mempool.Insert(*tx)
		admitted = true
	})
	if admitted {
		e.metrics.TransactionAccepted()
		h := tx.Hash()
		e.broadcast(wire.NewTransactionHashes([]crypto.H256{h}))
	}
	return admitted
}
