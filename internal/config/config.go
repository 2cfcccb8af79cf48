// Package config parses the node's command-line configuration. It is
// deliberately the thinnest possible layer over the standard library's
// flag package: the CLI front end is out of core scope (spec §1), and
// none of the pack's CLI/config libraries are otherwise exercised by
// any in-scope component, so pulling one in here would add a
// dependency with no other load-bearing use.
package config

import (
	"flag"
	"fmt"
	"strings"
)

// Config holds every value cmd/poolnoded needs to wire up the node.
// P2PAddr, APIAddr, KnownPeers, P2PWorkers, and Verbosity come
// straight from spec §6's configuration inputs; DataDir, MetricsAddr,
// MiningInterval, and EnableMDNS exist to drive the transport and
// metrics collaborators the spec's expansion adds.
type Config struct {
	P2PAddr    string
	APIAddr    string
	KnownPeers []string
	P2PWorkers int
	Verbosity  int

	DataDir        string
	MetricsAddr    string
	MiningInterval int
	EnableMDNS     bool
}

// knownPeers collects repeated -connect flags into a string slice, the
// same repeatable-flag shape as the original's clap known_peer arg.
type knownPeers []string

func (k *knownPeers) String() string {
	return strings.Join(*k, ",")
}

func (k *knownPeers) Set(value string) error {
	*k = append(*k, value)
	return nil
}

// Parse parses args (typically os.Args[1:]) into a Config, applying
// the defaults from spec §6: P2PAddr 127.0.0.1:6000, APIAddr
// 127.0.0.1:7000, no known peers, P2PWorkers 4, Verbosity 0. The
// expansion fields default to MetricsAddr 127.0.0.1:9100,
// MiningInterval 0 (mine as fast as possible), and EnableMDNS true.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("poolnoded", flag.ContinueOnError)

	p2pAddr := fs.String("p2p", "127.0.0.1:6000", "address the P2P transport listens on")
	apiAddr := fs.String("api", "127.0.0.1:7000", "address the HTTP control API listens on")
	p2pWorkers := fs.Int("p2p-workers", 4, "number of worker goroutines dispatching inbound P2P messages")
	verbosity := fs.Int("v", 0, "log verbosity (repeat-count style; higher is noisier)")

	dataDir := fs.String("data-dir", "./data", "directory for the libp2p identity key and DHT routing table")
	metricsAddr := fs.String("metrics", "127.0.0.1:9100", "address the Prometheus metrics endpoint listens on")
	miningInterval := fs.Int("mining-interval", 0, "microseconds to sleep between mining attempts (0 = max speed)")
	enableMDNS := fs.Bool("mdns", true, "enable LAN peer discovery via mDNS")

	var peers knownPeers
	fs.Var(&peers, "connect", "address of a peer to connect to at startup (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *p2pWorkers < 1 {
		return nil, fmt.Errorf("p2p-workers must be at least 1, got %d", *p2pWorkers)
	}
	if *miningInterval < 0 {
		return nil, fmt.Errorf("mining-interval must not be negative, got %d", *miningInterval)
	}

	return &Config{
		P2PAddr:    *p2pAddr,
		APIAddr:    *apiAddr,
		KnownPeers: []string(peers),
		P2PWorkers: *p2pWorkers,
		Verbosity:  *verbosity,

		DataDir:        *dataDir,
		MetricsAddr:    *metricsAddr,
		MiningInterval: *miningInterval,
		EnableMDNS:     *enableMDNS,
	}, nil
}
