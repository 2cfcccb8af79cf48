package engine

import (
	"crypto/ed25519"
	"testing"

	"github.com/blockweave/poolnoded/internal/bootstrap"
	"github.com/blockweave/poolnoded/internal/chain"
	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/merkle"
	"github.com/blockweave/poolnoded/internal/wire"
	"github.com/blockweave/poolnoded/testutil"
)

type recordingTransport struct {
	sent []*wire.Message
}

func (r *recordingTransport) Broadcast(msg *wire.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

// testDifficulty is deliberately far easier than bootstrap's production
// target so that proof-of-work search in these tests terminates in a
// handful of iterations instead of needing millions.
var testDifficulty = crypto.H256{0xFF}

func newTestEngine(t *testing.T) (*Engine, *recordingTransport, ed25519.PrivateKey) {
	t.Helper()
	seedPriv := bootstrap.SeedPrivateKey()
	genesis := &wire.Block{Header: wire.Header{
		Parent:     crypto.H256{},
		Difficulty: testDifficulty,
		MerkleRoot: merkle.New(nil).Root(),
	}}
	c := chain.New(genesis)
	s := ledger.NewState(bootstrap.InitialUTXOSet(bootstrap.SeedKey()))
	m := ledger.NewMempool()
	tr := &recordingTransport{}
	return New(c, s, m, tr), tr, seedPriv
}

func signedSpendFromICO(t *testing.T, priv ed25519.PrivateKey, value uint64, to crypto.H160) wire.SignedTransaction {
	t.Helper()
	pub := []byte(priv.Public().(ed25519.PublicKey))
	tx := wire.Transaction{
		Inputs:  []wire.Outpoint{{PrevTxid: crypto.H256{}, Index: 0}},
		Outputs: []wire.Output{{Recipient: to, Value: value}},
	}
	txid := tx.Txid()
	sig := crypto.Sign(priv, txid[:])
	return wire.SignedTransaction{Transaction: tx, PublicKey: pub, Signature: sig}
}

func TestAcceptTransactionAdmitsValidSpend(t *testing.T) {
	e, tr, priv := newTestEngine(t)
	stx := signedSpendFromICO(t, priv, 100, crypto.H160{0x01})

	if !e.AcceptTransaction(&stx) {
		t.Fatal("expected a well-formed spend of the ICO entry to be admitted")
	}
	if e.Mempool.Len() != 1 {
		t.Fatalf("mempool len = %d, want 1", e.Mempool.Len())
	}
	if len(tr.sent) != 1 || tr.sent[0].Type != wire.MsgNewTransactionHashes {
		t.Fatalf("expected a NewTransactionHashes broadcast, got %+v", tr.sent)
	}
}

func TestAcceptTransactionRejectsInvalidSignature(t *testing.T) {
	e, tr, _ := newTestEngine(t)
	_, otherPub := ed25519Keys(t)
	tx := wire.Transaction{
		Inputs:  []wire.Outpoint{{PrevTxid: crypto.H256{}, Index: 0}},
		Outputs: []wire.Output{{Recipient: crypto.H160{0x01}, Value: 10}},
	}
	stx := wire.SignedTransaction{Transaction: tx, PublicKey: otherPub, Signature: make([]byte, 64)}

	if e.AcceptTransaction(&stx) {
		t.Fatal("expected an invalid signature to be rejected")
	}
	if e.Mempool.Len() != 0 {
		t.Fatal("mempool must stay empty after a rejected transaction")
	}
	if len(tr.sent) != 0 {
		t.Fatal("expected no broadcast for a rejected transaction")
	}
}

func ed25519Keys(t *testing.T) (ed25519.PrivateKey, []byte) {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = 0x42 // deliberately distinct from the all-zero ICO seed
	}
	priv := crypto.GenerateKey(seed)
	pub := []byte(priv.Public().(ed25519.PublicKey))
	return priv, pub
}

func mineBlock(t *testing.T, parent crypto.H256, difficulty crypto.H256, content []wire.SignedTransaction) *wire.Block {
	t.Helper()
	return testutil.MineBlock(t, parent, difficulty, content)
}

func TestAcceptBlockInsertsValidChild(t *testing.T) {
	e, tr, _ := newTestEngine(t)
	genesisHash := e.Chain.Tip()
	genesis, _ := e.Chain.Get(genesisHash)

	b1 := mineBlock(t, genesisHash, genesis.Header.Difficulty, nil)
	if err := e.AcceptBlock(b1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if e.Chain.Tip() != b1.Hash() {
		t.Fatalf("tip = %x, want %x", e.Chain.Tip(), b1.Hash())
	}
	if len(tr.sent) != 1 || tr.sent[0].Type != wire.MsgNewBlockHashes {
		t.Fatalf("expected a NewBlockHashes broadcast, got %+v", tr.sent)
	}
}

func TestAcceptBlockBuffersOrphanThenFlushesOnParent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	genesisHash := e.Chain.Tip()
	genesis, _ := e.Chain.Get(genesisHash)
	diff := genesis.Header.Difficulty

	b1 := mineBlock(t, genesisHash, diff, nil)
	b2 := mineBlock(t, b1.Hash(), diff, nil)

	if err := e.AcceptBlock(b2); err != nil {
		t.Fatalf("accept b2: %v", err)
	}
	if e.Chain.Has(b2.Hash()) {
		t.Fatal("b2 should be buffered as an orphan, not inserted yet")
	}

	if err := e.AcceptBlock(b1); err != nil {
		t.Fatalf("accept b1: %v", err)
	}
	if e.Chain.Tip() != b2.Hash() {
		t.Fatalf("expected orphan flush to advance the tip to b2, got %x", e.Chain.Tip())
	}
}

func TestAcceptBlockRejectsWrongDifficulty(t *testing.T) {
	e, _, _ := newTestEngine(t)
	genesisHash := e.Chain.Tip()

	wrongDiff := crypto.H256{0xFE} // easy to mine against, but not the parent's difficulty
	b1 := mineBlock(t, genesisHash, wrongDiff, nil)
	if err := e.AcceptBlock(b1); err != nil {
		t.Fatalf("accept returned an error (should be a silent drop): %v", err)
	}
	if e.Chain.Has(b1.Hash()) {
		t.Fatal("a block with the wrong difficulty must not be inserted")
	}
}

func TestPrepareCandidateSelectsSmallMempoolTx(t *testing.T) {
	e, _, priv := newTestEngine(t)
	stx := signedSpendFromICO(t, priv, 1, crypto.H160{0x01})
	e.Mempool.Insert(stx)

	c := e.PrepareCandidate()
	if c.Parent != e.Chain.Tip() {
		t.Fatal("candidate parent must match the current tip")
	}
	if len(c.Selected) != 1 {
		t.Fatalf("expected the single mempool tx to be selected, got %d", len(c.Selected))
	}
}

func TestMiningEndToEndPullsFromMempoolAndUpdatesState(t *testing.T) {
	e, _, priv := newTestEngine(t)
	stx := signedSpendFromICO(t, priv, 100, crypto.H160{0x05})
	e.Mempool.Insert(stx)

	c := e.PrepareCandidate()
	block := mineBlock(t, c.Parent, c.Difficulty, c.Selected)

	if err := e.InsertMinedBlock(block); err != nil {
		t.Fatalf("insert mined block: %v", err)
	}
	if e.Mempool.Has(stx.Hash()) {
		t.Fatal("mined transaction must be removed from the mempool")
	}
	txid := stx.Txid()
	if _, ok := e.State.Lookup(wire.Outpoint{PrevTxid: txid, Index: 0}); !ok {
		t.Fatal("mined transaction's output must be reflected in utxo state")
	}
}

// TestInsertMinedBlockSkipsContentRevalidation confirms the miner's
// documented soundness gap (spec §9) is preserved rather than silently
// closed: a transaction that was valid when PrepareCandidate selected
// it, but becomes unspendable before the mined block is submitted, is
// still inserted unchecked through InsertMinedBlock. AcceptBlock, by
// contrast, would reject the same block.
func TestInsertMinedBlockSkipsContentRevalidation(t *testing.T) {
	e, _, priv := newTestEngine(t)
	stx := signedSpendFromICO(t, priv, 100, crypto.H160{0x05})
	e.Mempool.Insert(stx)

	c := e.PrepareCandidate()
	block := mineBlock(t, c.Parent, c.Difficulty, c.Selected)

	// Spend the ICO output out from under the candidate before it's
	// submitted, the way a block accepted from a peer in that window
	// would.
	rival := signedSpendFromICO(t, priv, 100, crypto.H160{0x06})
	rivalBlock := mineBlock(t, c.Parent, c.Difficulty, []wire.SignedTransaction{rival})
	if err := e.AcceptBlock(rivalBlock); err != nil {
		t.Fatalf("accept rival block: %v", err)
	}
	if e.Chain.Tip() != rivalBlock.Hash() {
		t.Fatal("rival block should have advanced the tip")
	}

	if err := e.InsertMinedBlock(block); err != nil {
		t.Fatalf("insert mined block: %v", err)
	}
	if !e.Chain.Has(block.Hash()) {
		t.Fatal("InsertMinedBlock must insert the now-double-spending block unchecked, preserving the documented gap")
	}
}

func TestStatsReflectsMempoolAndChain(t *testing.T) {
	e, _, priv := newTestEngine(t)
	stx := signedSpendFromICO(t, priv, 1, crypto.H160{0x09})
	e.Mempool.Insert(stx)

	before := e.Stats()
	if before.ChainHeight != 0 {
		t.Fatalf("genesis-only chain height = %d, want 0", before.ChainHeight)
	}
	if before.MempoolSize != 1 {
		t.Fatalf("MempoolSize = %d, want 1", before.MempoolSize)
	}

	c := e.PrepareCandidate()
	block := mineBlock(t, c.Parent, c.Difficulty, c.Selected)
	if err := e.InsertMinedBlock(block); err != nil {
		t.Fatalf("insert mined block: %v", err)
	}

	after := e.Stats()
	if after.ChainHeight != 1 {
		t.Fatalf("ChainHeight after one block = %d, want 1", after.ChainHeight)
	}
	if after.MempoolSize != 0 {
		t.Fatalf("MempoolSize after mining = %d, want 0", after.MempoolSize)
	}
	if after.TipAge < 0 {
		t.Fatal("TipAge must not be negative")
	}
}
