// Package transport wires the core's engine and gossip packages to a
// real libp2p network: a host with GossipSub for the Announce phase,
// direct per-peer streams for the Request/Deliver phases, and mDNS/DHT
// discovery. Grounded on the teacher's internal/p2p package.
package transport

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"go.uber.org/zap"
)

const poolnodedIdentityFile = "poolnoded_identity.key"

// LoadOrCreateIdentity loads dataDir's persistent libp2p identity key,
// or generates and saves a new one if none exists, so a node's peer ID
// — and so every address a peer has ever dialed to reach it — survives
// a restart. Logs which path was taken at the node's usual Info/Debug
// split, the way the rest of this package reports connection events.
func LoadOrCreateIdentity(dataDir string, logger *zap.Logger) (crypto.PrivKey, error) {
	keyPath := filepath.Join(dataDir, poolnodedIdentityFile)

	if data, err := os.ReadFile(keyPath); err == nil {
		key, err := crypto.UnmarshalPrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("unmarshal identity key: %w", err)
		}
		logger.Debug("loaded existing p2p identity", zap.String("path", keyPath))
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read identity key: %w", err)
	}

	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}

	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal identity key: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(keyPath, raw, 0600); err != nil {
		return nil, fmt.Errorf("write identity key: %w", err)
	}
	logger.Info("generated new p2p identity", zap.String("path", keyPath))
	return key, nil
}
