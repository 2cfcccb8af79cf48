package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorBlockAcceptedIncrementsCounter(t *testing.T) {
	c := NewCollector()
	before := testutil.ToFloat64(BlocksAccepted)
	c.BlockAccepted()
	after := testutil.ToFloat64(BlocksAccepted)
	if after != before+1 {
		t.Errorf("BlocksAccepted = %v, want %v", after, before+1)
	}
}

func TestCollectorBlockRejectedLabelsByReason(t *testing.T) {
	c := NewCollector()
	before := testutil.ToFloat64(BlocksRejected.WithLabelValues("difficulty_mismatch"))
	c.BlockRejected("difficulty_mismatch")
	after := testutil.ToFloat64(BlocksRejected.WithLabelValues("difficulty_mismatch"))
	if after != before+1 {
		t.Errorf("BlocksRejected{difficulty_mismatch} = %v, want %v", after, before+1)
	}
}

func TestCollectorBlockRejectedEmptyReasonFallsBackToUnknown(t *testing.T) {
	c := NewCollector()
	before := testutil.ToFloat64(BlocksRejected.WithLabelValues("unknown"))
	c.BlockRejected("")
	after := testutil.ToFloat64(BlocksRejected.WithLabelValues("unknown"))
	if after != before+1 {
		t.Errorf("BlocksRejected{unknown} = %v, want %v", after, before+1)
	}
}

func TestSetGaugesUpdatesAllSix(t *testing.T) {
	SetGauges(42, 3.5, 7, 10000, 2, 1)
	if got := testutil.ToFloat64(ChainHeight); got != 42 {
		t.Errorf("ChainHeight = %v, want 42", got)
	}
	if got := testutil.ToFloat64(ChainTipAgeSeconds); got != 3.5 {
		t.Errorf("ChainTipAgeSeconds = %v, want 3.5", got)
	}
	if got := testutil.ToFloat64(MempoolSize); got != 7 {
		t.Errorf("MempoolSize = %v, want 7", got)
	}
	if got := testutil.ToFloat64(UTXOSetSize); got != 10000 {
		t.Errorf("UTXOSetSize = %v, want 10000", got)
	}
	if got := testutil.ToFloat64(PeersConnected); got != 2 {
		t.Errorf("PeersConnected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(OrphansBuffered); got != 1 {
		t.Errorf("OrphansBuffered = %v, want 1", got)
	}
}
