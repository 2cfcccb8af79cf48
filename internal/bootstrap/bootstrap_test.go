package bootstrap

import (
	"testing"

	"github.com/blockweave/poolnoded/internal/crypto"
)

func TestGenesisIsDeterministic(t *testing.T) {
	a := Genesis()
	b := Genesis()
	if a.Hash() != b.Hash() {
		t.Fatal("genesis construction must be deterministic across nodes")
	}
	if !a.Header.Parent.IsZero() {
		t.Fatal("genesis parent must be the zero hash")
	}
	if a.Header.Nonce != 0 || a.Header.Timestamp != 0 {
		t.Fatal("genesis nonce and timestamp must be zero")
	}
}

func TestGenesisDifficultyMatchesSourceConvention(t *testing.T) {
	d := GenesisDifficulty()
	want := crypto.H256{}
	want[2], want[3], want[4] = 1, 1, 1
	if d != want {
		t.Fatalf("difficulty = %x, want %x", d, want)
	}
}

func TestICOEntryGrantsToSeedAddress(t *testing.T) {
	pub := SeedKey()
	op, entry := ICOEntry(pub)
	if !op.PrevTxid.IsZero() || op.Index != 0 {
		t.Fatalf("expected ICO outpoint (0,0), got %+v", op)
	}
	if entry.Value != ICOUnits {
		t.Fatalf("value = %d, want %d", entry.Value, ICOUnits)
	}
	if entry.Recipient != crypto.AddressOf(pub) {
		t.Fatal("ICO entry must pay the seed key's derived address")
	}
}

func TestSeedKeyIsDeterministic(t *testing.T) {
	if string(SeedKey()) != string(SeedKey()) {
		t.Fatal("seed key derivation must be deterministic")
	}
}
