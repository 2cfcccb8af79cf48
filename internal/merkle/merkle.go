// Package merkle builds a SHA-256 binary Merkle tree over any sequence
// of items exposing a Hash method, and produces/verifies per-leaf
// inclusion proofs.
//
// The construction, proof, and verify index arithmetic is a direct port
// of original_source/crypto/merkle.rs, including its odd-row duplication
// rule: a row is padded by duplicating its last element only when the
// tree's *original* leaf count is odd, not when the current row's
// length is odd. This is preserved exactly (see spec §9) so that two
// independently-built nodes compute byte-identical roots.
package merkle

import (
	"github.com/blockweave/poolnoded/internal/crypto"
)

// Hashable is the capability a leaf item must provide to be included in
// a tree.
type Hashable interface {
	Hash() crypto.H256
}

// Tree is a flattened binary Merkle tree: the constructor appends every
// intermediate hash (leaves first, then each level up to the root) into
// a single buffer, exactly mirroring the reference implementation.
type Tree struct {
	buf     []crypto.H256
	leafNum   int // leaf count after the one-time odd-leaf duplication
	leafCount int // leaf count as supplied, before duplication
	empty     bool
}

// New builds a Tree over data.
func New(data []Hashable) *Tree {
	origLen := len(data)
	if origLen == 0 {
		return &Tree{empty: true}
	}

	buf := make([]crypto.H256, 0, origLen*2)
	for _, d := range data {
		buf = append(buf, d.Hash())
	}

	inputLen := origLen
	if inputLen%2 == 1 && inputLen != 1 {
		buf = append(buf, buf[len(buf)-1])
		inputLen++
	}

	start := 0
	curLen := inputLen
	for curLen > 1 {
		half := curLen / 2
		for i := 0; i < half; i++ {
			buf = append(buf, pairHash(buf[start+2*i], buf[start+2*i+1]))
		}
		if origLen%2 == 1 {
			buf = append(buf, buf[len(buf)-1])
		}
		start += curLen
		curLen /= 2
		if curLen%2 == 1 && curLen != 1 {
			curLen++
		}
	}

	return &Tree{buf: buf, leafNum: inputLen, leafCount: origLen}
}

// Root returns the tree's root hash. An empty tree (n == 0) has an
// all-zero root by convention.
func (t *Tree) Root() crypto.H256 {
	if t.empty || len(t.buf) == 0 {
		return crypto.H256{}
	}
	return t.buf[len(t.buf)-1]
}

// Proof returns the sibling hashes from leaf index to the root,
// bottom-up, or nil if index is out of range.
func (t *Tree) Proof(index int) []crypto.H256 {
	if t.empty || index < 0 || index >= t.leafCount {
		return nil
	}

	height := findHeight(t.leafNum)
	proof := make([]crypto.H256, 0, height)
	curIndex := index
	sequence := 0
	for i := 0; i < height; i++ {
		group := (curIndex - sequence) / 2
		if curIndex%2 == 1 {
			proof = append(proof, t.buf[curIndex-1])
		} else {
			proof = append(proof, t.buf[curIndex+1])
		}
		if i == 0 {
			sequence += t.leafNum
		} else {
			sequence += pow2(height - i)
		}
		curIndex = sequence + group
	}
	return proof
}

// Verify recomputes the root from a leaf hash, its proof, its original
// index, and the total leaf count, and reports whether it matches root.
func Verify(root, leafHash crypto.H256, proof []crypto.H256, index, leafCount int) bool {
	if leafCount == 0 {
		return len(proof) == 0 && root == (crypto.H256{})
	}

	height := len(proof)
	leafNum := leafCount
	if leafNum%2 == 1 && leafNum != 1 {
		leafNum++
	}
	curIndex := index
	sequence := 0
	trace := leafHash
	for i := 0; i < height; i++ {
		group := (curIndex - sequence) / 2
		if curIndex%2 == 1 {
			trace = pairHash(proof[i], trace)
		} else {
			trace = pairHash(trace, proof[i])
		}
		if i == 0 {
			sequence += leafNum
		} else {
			sequence += pow2(height - i)
		}
		curIndex = sequence + group
	}
	return trace == root
}

func pairHash(a, b crypto.H256) crypto.H256 {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return crypto.Sha256(buf)
}

// findHeight returns the number of levels between a leaf and the root
// for a tree with n leaves: the smallest height such that 2^height >= n.
func findHeight(n int) int {
	height := 0
	cur := 1
	for n > cur {
		height++
		cur *= 2
	}
	return height
}

func pow2(n int) int {
	if n < 0 {
		return 0
	}
	return 1 << uint(n)
}
