// Package bootstrap constructs the two pieces of state every node must
// agree on before processing its first message: the genesis block and
// the initial ("ICO") UTXO entry. Both are deterministic so that
// independently-started nodes converge on identical chain and state.
package bootstrap

import (
	"crypto/ed25519"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/merkle"
	"github.com/blockweave/poolnoded/internal/wire"
)

// GenesisDifficulty is the fixed-difficulty target every block in this
// node carries (no retargeting; see spec Non-goals). Bytes 2..4 set to
// 1 (counted from the most significant end, since targets compare
// big-endian), following the source implementation's genesis target,
// yields a moderate average mining interval.
func GenesisDifficulty() crypto.H256 {
	var d crypto.H256
	d[2] = 1
	d[3] = 1
	d[4] = 1
	return d
}

// ICOUnits is the value of the single UTXO entry seeded at genesis.
const ICOUnits = 10000

// SeedPrivateKey derives the Ed25519 key controlling the ICO entry from
// an all-zero 32-byte seed, so every node can independently reconstruct
// the same recipient address (and, for test harnesses, spend from it)
// without a shared keystore.
func SeedPrivateKey() ed25519.PrivateKey {
	return crypto.GenerateKey(make([]byte, 32))
}

// SeedKey returns the public key controlling the ICO entry.
func SeedKey() []byte {
	return []byte(SeedPrivateKey().Public().(ed25519.PublicKey))
}

// Genesis builds the deterministic genesis block: zero parent, zero
// nonce, zero timestamp, the fixed difficulty target, and the Merkle
// root of an empty content list.
func Genesis() *wire.Block {
	header := wire.Header{
		Parent:     crypto.H256{},
		Nonce:      0,
		Difficulty: GenesisDifficulty(),
		Timestamp:  0,
		MerkleRoot: merkle.New(nil).Root(),
	}
	return &wire.Block{Header: header, Content: nil}
}

// ICOEntry returns the single spendable UTXO seeded at genesis:
// outpoint (0x00...00, 0) paying ICOUnits to address_of(seed_key).
func ICOEntry(seedPublicKey []byte) (wire.Outpoint, ledger.Entry) {
	op := wire.Outpoint{PrevTxid: crypto.H256{}, Index: 0}
	entry := ledger.Entry{Value: ICOUnits, Recipient: crypto.AddressOf(seedPublicKey)}
	return op, entry
}

// InitialUTXOSet builds the seed map ledger.NewState expects, granting
// the ICO entry to the address derived from seedPublicKey.
func InitialUTXOSet(seedPublicKey []byte) map[wire.Outpoint]ledger.Entry {
	op, entry := ICOEntry(seedPublicKey)
	return map[wire.Outpoint]ledger.Entry{op: entry}
}
