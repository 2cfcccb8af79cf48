package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/blockweave/poolnoded/internal/crypto"
)

// MessageType identifies which variant of the gossip Message union a
// decoded envelope carries.
type MessageType uint8

const (
	MsgPing MessageType = iota + 1
	MsgPong
	MsgNewBlockHashes
	MsgGetBlocks
	MsgBlocks
	MsgNewTransactionHashes
	MsgGetTransactions
	MsgTransactions
)

// Message is the closed tagged-union alphabet the gossip worker pool
// dispatches on. Exactly one of the payload fields is populated,
// selected by Type; encoding carries all fields (CBOR omits zero-value
// slices compactly) so that decode is a single struct unmarshal
// followed by a case switch, never virtual dispatch.
type Message struct {
	Type MessageType `cbor:"1,keyasint"`

	PingNonce uint64 `cbor:"2,keyasint,omitempty"`
	PongNonce uint64 `cbor:"3,keyasint,omitempty"`

	BlockHashes []crypto.H256 `cbor:"4,keyasint,omitempty"`
	Blocks      []Block       `cbor:"5,keyasint,omitempty"`

	TransactionHashes []crypto.H256       `cbor:"6,keyasint,omitempty"`
	Transactions      []SignedTransaction `cbor:"7,keyasint,omitempty"`
}

// Encode serializes a Message to its canonical wire bytes.
func Encode(msg *Message) ([]byte, error) {
	return cbor.Marshal(msg)
}

// Decode parses a Message from wire bytes.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Ping builds a liveness probe carrying an opaque nonce to be echoed
// back in the matching Pong.
func Ping(nonce uint64) *Message { return &Message{Type: MsgPing, PingNonce: nonce} }

// Pong replies to a Ping with the same nonce.
func Pong(nonce uint64) *Message { return &Message{Type: MsgPong, PongNonce: nonce} }

// NewBlockHashes announces blocks the sender has.
func NewBlockHashes(hs []crypto.H256) *Message {
	return &Message{Type: MsgNewBlockHashes, BlockHashes: hs}
}

// GetBlocks requests full blocks by hash.
func GetBlocks(hs []crypto.H256) *Message {
	return &Message{Type: MsgGetBlocks, BlockHashes: hs}
}

// Blocks delivers full blocks.
func Blocks(bs []Block) *Message { return &Message{Type: MsgBlocks, Blocks: bs} }

// NewTransactionHashes announces transactions the sender has.
func NewTransactionHashes(hs []crypto.H256) *Message {
	return &Message{Type: MsgNewTransactionHashes, TransactionHashes: hs}
}

// GetTransactions requests full transactions by hash.
func GetTransactions(hs []crypto.H256) *Message {
	return &Message{Type: MsgGetTransactions, TransactionHashes: hs}
}

// Transactions delivers full signed transactions.
func Transactions(ts []SignedTransaction) *Message {
	return &Message{Type: MsgTransactions, Transactions: ts}
}
