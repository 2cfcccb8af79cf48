package miner

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/blockweave/poolnoded/internal/bootstrap"
	"github.com/blockweave/poolnoded/internal/chain"
	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/engine"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/merkle"
	"github.com/blockweave/poolnoded/internal/wire"
)

type discardTransport struct{}

func (discardTransport) Broadcast(*wire.Message) error { return nil }

var easyDifficulty = crypto.H256{0xFF}

func newTestMiner(t *testing.T) (*Miner, *engine.Engine, crypto.H160) {
	t.Helper()
	genesis := &wire.Block{Header: wire.Header{
		Difficulty: easyDifficulty,
		MerkleRoot: merkle.New(nil).Root(),
	}}
	c := chain.New(genesis)
	s := ledger.NewState(bootstrap.InitialUTXOSet(bootstrap.SeedKey()))
	m := ledger.NewMempool()
	eng := engine.New(c, s, m, discardTransport{})
	miner := New(eng, zap.NewNop(), func() uint64 { return 1 })
	return miner, eng, crypto.H160{0x09}
}

func signedSpendFromICO(t *testing.T, to crypto.H160, value uint64) wire.SignedTransaction {
	t.Helper()
	priv := bootstrap.SeedPrivateKey()
	pub := bootstrap.SeedKey()
	tx := wire.Transaction{
		Inputs:  []wire.Outpoint{{PrevTxid: crypto.H256{}, Index: 0}},
		Outputs: []wire.Output{{Recipient: to, Value: value}},
	}
	txid := tx.Txid()
	sig := crypto.Sign(priv, txid[:])
	return wire.SignedTransaction{Transaction: tx, PublicKey: pub, Signature: sig}
}

func TestMineOncePullsFromMempoolAndInserts(t *testing.T) {
	m, eng, to := newTestMiner(t)
	stx := signedSpendFromICO(t, to, 250)
	eng.Mempool.Insert(stx)

	m.mineOnce()

	if eng.Mempool.Has(stx.Hash()) {
		t.Fatal("mined transaction should be removed from the mempool")
	}
	tip := eng.Chain.Tip()
	block, ok := eng.Chain.Get(tip)
	if !ok || len(block.Content) != 1 {
		t.Fatalf("expected the mined block to carry the mempool tx, got %+v", block)
	}
}

func TestRunHonoursExitAfterPause(t *testing.T) {
	m, _, _ := newTestMiner(t)
	go m.Run()

	m.Start(0)
	time.Sleep(5 * time.Millisecond)
	m.Exit()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("miner did not shut down after Exit")
	}
}

type countingRecorder struct{ count int }

func (c *countingRecorder) BlockMined() { c.count++ }

func TestMineOnceReportsToMetricsRecorder(t *testing.T) {
	genesis := &wire.Block{Header: wire.Header{
		Difficulty: easyDifficulty,
		MerkleRoot: merkle.New(nil).Root(),
	}}
	c := chain.New(genesis)
	s := ledger.NewState(bootstrap.InitialUTXOSet(bootstrap.SeedKey()))
	mp := ledger.NewMempool()
	eng := engine.New(c, s, mp, discardTransport{})
	rec := &countingRecorder{}
	m := New(eng, zap.NewNop(), func() uint64 { return 1 }, WithMetrics(rec))

	m.mineOnce()

	if rec.count != 1 {
		t.Fatalf("BlockMined called %d times, want 1", rec.count)
	}
}

func TestRunStaysPausedWithoutStart(t *testing.T) {
	m, eng, _ := newTestMiner(t)
	go m.Run()
	defer m.Exit()

	time.Sleep(20 * time.Millisecond)

	// A paused miner must not have advanced the tip past genesis.
	lc := eng.Chain.LongestChain()
	if len(lc) != 1 {
		t.Fatalf("expected only genesis while paused, got chain of length %d", len(lc))
	}
}
