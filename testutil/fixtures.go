// Package testutil holds fixture builders shared across the core
// packages' test suites: signed transactions and mined blocks, so each
// package's tests don't re-implement the same brute-force nonce search.
package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/merkle"
	"github.com/blockweave/poolnoded/internal/wire"
)

// EasyDifficulty is a difficulty target loose enough that MineBlock's
// nonce search terminates in a handful of iterations rather than
// needing millions, for every test that doesn't care about difficulty
// itself.
func EasyDifficulty() crypto.H256 {
	return crypto.H256{0xFF}
}

// NewSignedTransaction builds and signs a single-input, single-output
// transaction spending (prevTxid, index) to recipient, for value, with
// priv's public key embedded inline per the wire format.
func NewSignedTransaction(priv ed25519.PrivateKey, prevTxid crypto.H256, index uint8, recipient crypto.H160, value uint64) wire.SignedTransaction {
	pub := []byte(priv.Public().(ed25519.PublicKey))
	tx := wire.Transaction{
		Inputs:  []wire.Outpoint{{PrevTxid: prevTxid, Index: index}},
		Outputs: []wire.Output{{Recipient: recipient, Value: value}},
	}
	txid := tx.Txid()
	sig := crypto.Sign(priv, txid[:])
	return wire.SignedTransaction{Transaction: tx, PublicKey: pub, Signature: sig}
}

type hashableTx wire.SignedTransaction

func (h hashableTx) Hash() crypto.H256 { return wire.SignedTransaction(h).Hash() }

// MineBlock brute-forces a nonce, bounded at 1<<20 attempts, producing
// a block atop parent that carries content and meets difficulty.
func MineBlock(t *testing.T, parent, difficulty crypto.H256, content []wire.SignedTransaction) *wire.Block {
	t.Helper()
	leaves := make([]merkle.Hashable, len(content))
	for i := range content {
		leaves[i] = hashableTx(content[i])
	}
	root := merkle.New(leaves).Root()

	for nonce := uint32(0); ; nonce++ {
		h := wire.Header{
			Parent:     parent,
			Nonce:      nonce,
			Difficulty: difficulty,
			Timestamp:  uint64(nonce),
			MerkleRoot: root,
		}
		if h.Hash().LessOrEqual(difficulty) {
			return &wire.Block{Header: h, Content: content}
		}
		if nonce > 1<<20 {
			t.Fatal("testutil.MineBlock: failed to find a PoW-valid nonce within bound; difficulty too low for test")
		}
	}
}
