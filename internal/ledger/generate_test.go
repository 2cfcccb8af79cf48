package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/wire"
)

func TestGenerateRandomTransactionsProducesSignatureValidTx(t *testing.T) {
	stx := randomSignedTransaction()

	if len(stx.Transaction.Inputs) != 1 || len(stx.Transaction.Outputs) != 1 {
		t.Fatalf("expected exactly one input and one output, got %+v", stx.Transaction)
	}
	txid := stx.Txid()
	if !crypto.Verify(stx.PublicKey, txid[:], stx.Signature) {
		t.Fatal("generated transaction's signature must verify against its own embedded public key")
	}
}

func TestGenerateRandomTransactionsStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 8)

	go GenerateRandomTransactions(ctx, time.Millisecond, func(*wire.SignedTransaction) bool {
		calls <- struct{}{}
		return false
	})

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected at least one submission before cancellation")
	}
	cancel()

	// Drain whatever was already in flight, then confirm no more arrive.
	time.Sleep(20 * time.Millisecond)
	for {
		select {
		case <-calls:
			continue
		default:
		}
		break
	}
	select {
	case <-calls:
		t.Fatal("submissions continued after context cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}
