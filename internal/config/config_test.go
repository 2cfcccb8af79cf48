package config

import "testing"

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.P2PAddr != "127.0.0.1:6000" {
		t.Errorf("P2PAddr = %q, want 127.0.0.1:6000", c.P2PAddr)
	}
	if c.APIAddr != "127.0.0.1:7000" {
		t.Errorf("APIAddr = %q, want 127.0.0.1:7000", c.APIAddr)
	}
	if len(c.KnownPeers) != 0 {
		t.Errorf("KnownPeers = %v, want empty", c.KnownPeers)
	}
	if c.P2PWorkers != 4 {
		t.Errorf("P2PWorkers = %d, want 4", c.P2PWorkers)
	}
	if c.Verbosity != 0 {
		t.Errorf("Verbosity = %d, want 0", c.Verbosity)
	}
	if c.MetricsAddr != "127.0.0.1:9100" {
		t.Errorf("MetricsAddr = %q, want 127.0.0.1:9100", c.MetricsAddr)
	}
	if c.MiningInterval != 0 {
		t.Errorf("MiningInterval = %d, want 0", c.MiningInterval)
	}
	if !c.EnableMDNS {
		t.Error("EnableMDNS = false, want true")
	}
}

func TestParseKnownPeersRepeatable(t *testing.T) {
	c, err := Parse([]string{"-connect", "127.0.0.1:6001", "-connect", "127.0.0.1:6002"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"127.0.0.1:6001", "127.0.0.1:6002"}
	if len(c.KnownPeers) != len(want) {
		t.Fatalf("KnownPeers = %v, want %v", c.KnownPeers, want)
	}
	for i, p := range want {
		if c.KnownPeers[i] != p {
			t.Errorf("KnownPeers[%d] = %q, want %q", i, c.KnownPeers[i], p)
		}
	}
}

func TestParseRejectsInvalidWorkerCount(t *testing.T) {
	if _, err := Parse([]string{"-p2p-workers", "0"}); err == nil {
		t.Error("Parse with -p2p-workers 0: want error, got nil")
	}
}

func TestParseRejectsNegativeMiningInterval(t *testing.T) {
	if _, err := Parse([]string{"-mining-interval", "-5"}); err == nil {
		t.Error("Parse with -mining-interval -5: want error, got nil")
	}
}
