// Package wire defines the canonical binary encoding shared by hashing
// and network transport: Transaction, SignedTransaction, Header, and
// Block, plus the tagged-union Message alphabet exchanged by the gossip
// worker pool. Encoding is CBOR with integer-keyed struct fields, the
// same discipline the teacher's p2p layer used for its share/announce
// messages, so that two independently-built nodes serialize identical
// bytes for identical values.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/merkle"
)

// Outpoint identifies a UTXO entry: the txid that produced it and the
// index of the output within that transaction's Transaction.Outputs.
type Outpoint struct {
	PrevTxid crypto.H256 `cbor:"1,keyasint"`
	Index    uint8       `cbor:"2,keyasint"`
}

// Output is a single spendable entry: an amount paid to an address.
type Output struct {
	Recipient crypto.H160 `cbor:"1,keyasint"`
	Value     uint64      `cbor:"2,keyasint"`
}

// Transaction is the unsigned body covered by a signature: an ordered
// list of inputs spent and outputs created.
type Transaction struct {
	Inputs  []Outpoint `cbor:"1,keyasint"`
	Outputs []Output   `cbor:"2,keyasint"`
}

// Encode returns the canonical serialization of tx.
func (tx *Transaction) Encode() []byte {
	b, err := cbor.Marshal(tx)
	if err != nil {
		// Transaction contains no unencodable types (no interfaces, no
		// channels); a marshal failure here would be a programmer error.
		panic(fmt.Sprintf("wire: encode transaction: %v", err))
	}
	return b
}

// Txid is SHA256(SHA256(serialize(tx))), the canonical transaction id.
func (tx *Transaction) Txid() crypto.H256 {
	return crypto.Sha256d(tx.Encode())
}

// SignedTransaction pairs a Transaction with the Ed25519 public key and
// signature that authorize it. The signature covers Txid.
type SignedTransaction struct {
	Transaction Transaction `cbor:"1,keyasint"`
	PublicKey   []byte      `cbor:"2,keyasint"`
	Signature   []byte      `cbor:"3,keyasint"`
}

// Encode returns the canonical serialization of stx, used as the
// mempool/gossip key via a single SHA-256.
func (stx *SignedTransaction) Encode() []byte {
	b, err := cbor.Marshal(stx)
	if err != nil {
		panic(fmt.Sprintf("wire: encode signed transaction: %v", err))
	}
	return b
}

// Hash is the single-SHA-256 mempool/gossip key for stx, distinct from
// the double-hashed Txid covered by the signature.
func (stx *SignedTransaction) Hash() crypto.H256 {
	return crypto.Sha256(stx.Encode())
}

// Txid returns the id of the wrapped transaction.
func (stx *SignedTransaction) Txid() crypto.H256 {
	return stx.Transaction.Txid()
}

// Header is the portion of a block covered by the block hash.
// MerkleRoot commits to Content without the block hash covering it
// directly; see Block's doc comment.
type Header struct {
	Parent     crypto.H256 `cbor:"1,keyasint"`
	Nonce      uint32      `cbor:"2,keyasint"`
	Difficulty crypto.H256 `cbor:"3,keyasint"`
	Timestamp  uint64      `cbor:"4,keyasint"` // ms since epoch
	MerkleRoot crypto.H256 `cbor:"5,keyasint"`
}

// Encode returns the canonical serialization of h.
func (h *Header) Encode() []byte {
	b, err := cbor.Marshal(h)
	if err != nil {
		panic(fmt.Sprintf("wire: encode header: %v", err))
	}
	return b
}

// Hash is the block hash: SHA-256 of the encoded header. Content is
// covered only transitively, through MerkleRoot.
func (h *Header) Hash() crypto.H256 {
	return crypto.Sha256(h.Encode())
}

// Block is a Header plus the ordered transactions it admits.
type Block struct {
	Header  Header              `cbor:"1,keyasint"`
	Content []SignedTransaction `cbor:"2,keyasint"`
}

// Hash is the block's identity: the hash of its header alone.
func (b *Block) Hash() crypto.H256 {
	return b.Header.Hash()
}

// hashableTx adapts SignedTransaction to merkle.Hashable.
type hashableTx SignedTransaction

func (h hashableTx) Hash() crypto.H256 {
	stx := SignedTransaction(h)
	return stx.Hash()
}

// HashableContent exposes b.Content as merkle-hashable leaves, in
// block order, for computing or checking MerkleRoot.
func (b *Block) HashableContent() []merkle.Hashable {
	out := make([]merkle.Hashable, len(b.Content))
	for i := range b.Content {
		out[i] = hashableTx(b.Content[i])
	}
	return out
}

// MerkleRoot computes the Merkle root over b.Content using the rules
// in internal/merkle.
func (b *Block) MerkleRoot() crypto.H256 {
	return merkle.New(b.HashableContent()).Root()
}
