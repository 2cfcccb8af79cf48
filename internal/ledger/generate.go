package ledger

import (
	"context"
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/binary"
	"time"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/wire"
)

// GenerateRandomTransactions runs until ctx is cancelled, sleeping
// interval between iterations and handing a freshly built, structurally
// random SignedTransaction to submit on each wake. It is grounded on
// original_source/main.rs's 10-second background loop, which exists
// purely to exercise the gossip/validation path during local
// smoke-testing — not to produce spendable transactions.
//
// Because the referenced previous output and index are drawn at
// random rather than read from a real UTXO, submit (ordinarily
// engine.Engine.AcceptTransaction) will reject nearly every one of
// them at the ownership-check step; this package does not import
// internal/engine; submit is supplied by the caller to avoid the
// import cycle engine already has on ledger.
func GenerateRandomTransactions(ctx context.Context, interval time.Duration, submit func(*wire.SignedTransaction) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		submit(randomSignedTransaction())
	}
}

func randomSignedTransaction() *wire.SignedTransaction {
	_, recipientKey := mustRandomKey()
	recipient := crypto.AddressOf(recipientKey)

	tx := wire.Transaction{
		Inputs: []wire.Outpoint{{
			PrevTxid: randomH256(),
			Index:    randomByte(),
		}},
		Outputs: []wire.Output{{
			Recipient: recipient,
			Value:     randomUint64(),
		}},
	}

	senderPriv, senderPub := mustRandomKey()
	txid := tx.Txid()
	sig := crypto.Sign(senderPriv, txid[:])

	return &wire.SignedTransaction{
		Transaction: tx,
		PublicKey:   senderPub,
		Signature:   sig,
	}
}

// mustRandomKey draws a fresh Ed25519 key pair from the external RNG
// collaborator (spec §1). A failure here indicates broken host
// entropy, the same fatal class the miner's nonce draw treats it as.
func mustRandomKey() (ed25519.PrivateKey, ed25519.PublicKey) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	return priv, pub
}

func randomH256() crypto.H256 {
	var h crypto.H256
	if _, err := cryptorand.Read(h[:]); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	return h
}

func randomByte() uint8 {
	var b [1]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	return b[0]
}

func randomUint64() uint64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		panic("ledger: crypto/rand unavailable: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}
