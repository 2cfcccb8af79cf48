package ledger

import (
	"sync"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/nodeerrors"
	"github.com/blockweave/poolnoded/internal/wire"
)

// Entry is a single unspent output: the value it carries and the
// address that may spend it.
type Entry struct {
	Value     uint64
	Recipient crypto.H160
}

// outpoint is the UTXO map key, mirroring wire.Outpoint but comparable
// as a map key without embedding a slice.
type outpoint struct {
	txid  crypto.H256
	index uint8
}

// State is the UTXO set: (txid, output_index) -> (value, recipient).
type State struct {
	mu   sync.RWMutex
	utxo map[outpoint]Entry
}

// NewState returns a UTXO set seeded with the given entries (the
// bootstrap package supplies the single ICO entry).
func NewState(seed map[wire.Outpoint]Entry) *State {
	s := &State{utxo: make(map[outpoint]Entry, len(seed))}
	for op, e := range seed {
		s.utxo[outpoint{txid: op.PrevTxid, index: op.Index}] = e
	}
	return s
}

// Lookup returns the entry for an outpoint, if unspent.
func (s *State) Lookup(op wire.Outpoint) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.utxo[outpoint{txid: op.PrevTxid, index: op.Index}]
	return e, ok
}

// Len returns the number of unspent outputs.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.utxo)
}

// Update applies a signed transaction unconditionally: every input
// outpoint is removed and one new entry is inserted per output. The
// caller must have already validated tx (see Validate); Update never
// rolls back a partial application.
func (s *State) Update(tx *wire.SignedTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range tx.Transaction.Inputs {
		delete(s.utxo, outpoint{txid: in.PrevTxid, index: in.Index})
	}

	txid := tx.Txid()
	for i, out := range tx.Transaction.Outputs {
		s.utxo[outpoint{txid: txid, index: uint8(i)}] = Entry{
			Value:     out.Value,
			Recipient: out.Recipient,
		}
	}
}

// Validate runs the three-step transaction validation predicate:
// signature, ownership, conservation. All three must pass; the first
// failure is returned as a *nodeerrors.ValidationError.
func Validate(tx *wire.SignedTransaction, s *State) error {
	txid := tx.Txid()
	if !crypto.Verify(tx.PublicKey, txid[:], tx.Signature) {
		return nodeerrors.New(nodeerrors.CategorySignature, "ed25519 signature does not verify")
	}

	spender := crypto.AddressOf(tx.PublicKey)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalIn uint64
	for _, in := range tx.Transaction.Inputs {
		entry, ok := s.utxo[outpoint{txid: in.PrevTxid, index: in.Index}]
		if !ok {
			return nodeerrors.Newf(nodeerrors.CategoryDoubleSpend,
				"outpoint (%x, %d) not in utxo set", in.PrevTxid, in.Index)
		}
		if entry.Recipient != spender {
			return nodeerrors.Newf(nodeerrors.CategoryDoubleSpend,
				"outpoint (%x, %d) not owned by signing key", in.PrevTxid, in.Index)
		}
		totalIn += entry.Value
	}

	var totalOut uint64
	for _, out := range tx.Transaction.Outputs {
		totalOut += out.Value
	}
	if totalIn < totalOut {
		return nodeerrors.Newf(nodeerrors.CategoryInsufficientInput,
			"inputs total %d < outputs total %d", totalIn, totalOut)
	}

	return nil
}
