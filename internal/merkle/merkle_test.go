package merkle

import (
	"testing"

	"github.com/blockweave/poolnoded/internal/crypto"
)

type leaf byte

func (l leaf) Hash() crypto.H256 {
	return crypto.Sha256([]byte{byte(l)})
}

func leaves(n int) []Hashable {
	out := make([]Hashable, n)
	for i := 0; i < n; i++ {
		out[i] = leaf(i)
	}
	return out
}

func TestEmptyTreeRoot(t *testing.T) {
	tree := New(nil)
	if tree.Root() != (crypto.H256{}) {
		t.Fatalf("expected all-zero root for empty tree, got %x", tree.Root())
	}
	if tree.Proof(0) != nil {
		t.Fatal("expected nil proof for empty tree")
	}
}

func TestSingleLeafRootIsBareHash(t *testing.T) {
	l := leaves(1)
	tree := New(l)
	want := l[0].Hash()
	if tree.Root() != want {
		t.Fatalf("root = %x, want bare leaf hash %x", tree.Root(), want)
	}
	if len(tree.Proof(0)) != 0 {
		t.Fatal("expected empty proof for single-leaf tree")
	}
	if !Verify(tree.Root(), l[0].Hash(), tree.Proof(0), 0, 1) {
		t.Fatal("verify failed for single-leaf tree")
	}
}

func TestBoundarySizesRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5} {
		n := n
		t.Run("", func(t *testing.T) {
			data := leaves(n)
			tree := New(data)
			root := tree.Root()
			for i := 0; i < n; i++ {
				proof := tree.Proof(i)
				if !Verify(root, data[i].Hash(), proof, i, n) {
					t.Fatalf("n=%d: verify failed for index %d", n, i)
				}
			}
		})
	}
}

func TestCorruptedSiblingFailsVerify(t *testing.T) {
	data := leaves(4)
	tree := New(data)
	root := tree.Root()

	proof := tree.Proof(1)
	if len(proof) == 0 {
		t.Fatal("expected non-empty proof")
	}
	proof[0][0] ^= 0xFF // flip a bit in the first sibling hash

	if Verify(root, data[1].Hash(), proof, 1, 4) {
		t.Fatal("verify succeeded with a corrupted sibling hash")
	}
}

func TestOutOfRangeProofIsNil(t *testing.T) {
	data := leaves(3)
	tree := New(data)
	if tree.Proof(3) != nil {
		t.Fatal("expected nil proof for out-of-range index")
	}
	if tree.Proof(-1) != nil {
		t.Fatal("expected nil proof for negative index")
	}
}
