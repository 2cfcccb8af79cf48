// Package crypto adapts the standard library's SHA-256 and Ed25519
// primitives to the node's H256/H160 domain types. The primitives
// themselves are the external collaborator named by the spec; this
// package only shapes their inputs and outputs.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// H256 is a 32-byte SHA-256 digest.
type H256 [32]byte

// H160 is a 20-byte address derived from a public key.
type H160 [20]byte

// String renders h as lowercase hex, for logging.
func (h H160) String() string {
	return hex.EncodeToString(h[:])
}

// String renders h as lowercase hex, for logging.
func (h H256) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash, used as the parent
// sentinel for the genesis block and to end the longest-chain walk.
func (h H256) IsZero() bool {
	return h == H256{}
}

// Int interprets h as a big-endian unsigned 256-bit integer, the
// convention the spec uses for comparing a block hash against a
// difficulty target.
func (h H256) Int() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// LessOrEqual reports whether h, read as a big-endian unsigned integer,
// is <= target (also big-endian). This is the PoW acceptance test.
func (h H256) LessOrEqual(target H256) bool {
	return h.Int().Cmp(target.Int()) <= 0
}

// Sha256 computes a single SHA-256 digest.
func Sha256(data []byte) H256 {
	return H256(sha256.Sum256(data))
}

// Sha256d computes SHA256(SHA256(data)), the txid hashing discipline
// (see original_source/transaction.rs). Block headers are hashed with a
// single Sha256.
func Sha256d(data []byte) H256 {
	first := sha256.Sum256(data)
	return H256(sha256.Sum256(first[:]))
}

// AddressOf derives an H160 address from a public key: the low 20 bytes
// of SHA-256(public_key).
func AddressOf(publicKey []byte) H160 {
	digest := sha256.Sum256(publicKey)
	var addr H160
	copy(addr[:], digest[len(digest)-len(addr):])
	return addr
}

// GenerateKey derives an Ed25519 key pair from a 32-byte seed. The ICO
// seed key and any deterministic test fixtures go through this path.
func GenerateKey(seed []byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed)
}

// Sign signs msg with an Ed25519 private key.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify checks an Ed25519 signature over msg using the raw public key
// bytes carried inline on a SignedTransaction.
func Verify(publicKey, msg, sig []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), msg, sig)
}
