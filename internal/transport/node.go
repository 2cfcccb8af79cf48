package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"

	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/blockweave/poolnoded/internal/crypto"
	"github.com/blockweave/poolnoded/internal/gossip"
	"github.com/blockweave/poolnoded/internal/wire"
)

const (
	// ProtocolVersion tags the GossipSub topic and direct-stream protocol
	// so incompatible node versions don't interoperate silently.
	ProtocolVersion = "1.0.0"

	// GossipTopicName is the GossipSub topic carrying Announce-phase
	// messages (NewBlockHashes, NewTransactionHashes).
	GossipTopicName = "/poolnoded/gossip/" + ProtocolVersion

	// MessageProtocolID is the libp2p stream protocol carrying every
	// other wire.Message: Ping/Pong, GetBlocks/Blocks,
	// GetTransactions/Transactions. One message per stream, teacher's
	// sync.go request/response shape.
	MessageProtocolID = protocol.ID("/poolnoded/direct/" + ProtocolVersion)

	maxFrameSize    = 4 * 1024 * 1024
	streamIOTimeout = 30 * time.Second
)

// TipProvider is the narrow slice of internal/engine.Engine the
// transport needs to announce a tip to newly connected peers.
type TipProvider interface {
	Tip() crypto.H256
}

// Node owns the libp2p host and bridges it to a gossip.Pool: inbound
// bytes from either the GossipSub topic or a direct stream are handed
// to pool.Dispatch, and the pool's engine.Broadcaster/PeerHandle
// requirements are satisfied by Broadcast and peerHandle below.
type Node struct {
	Host   host.Host
	Logger *zap.Logger

	pool *gossip.Pool
	tips TipProvider

	topic *pubsub.Topic
	sub   *pubsub.Subscription
	self  peer.ID

	dataDir   string
	discovery *Discovery
}

// New allocates a Node bound to logger. The returned Node is a valid
// (if inert) engine.Broadcaster from this point on — Broadcast is a
// no-op until Start completes — which lets callers close the
// engine/Node construction cycle: build the engine with this Node as
// its Broadcaster, build the gossip.Pool over that engine, then pass
// the pool into Start.
func New(logger *zap.Logger) *Node {
	return &Node{Logger: logger}
}

// Start creates the libp2p host, joins the gossip topic, and registers
// the direct-stream handler, binding the node to pool and tips. Call
// StartDiscovery afterwards so peers can't connect before handlers are
// ready.
func (n *Node) Start(ctx context.Context, listenPort int, dataDir string, pool *gossip.Pool, tips TipProvider) error {
	listenAddr := fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", listenPort)

	privKey, err := LoadOrCreateIdentity(dataDir, n.Logger)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	cm, err := connmgr.NewConnManager(50, 100, connmgr.WithGracePeriod(time.Minute))
	if err != nil {
		return fmt.Errorf("create connection manager: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddr),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
		libp2p.ConnectionManager(cm),
	)
	if err != nil {
		return fmt.Errorf("create libp2p host: %w", err)
	}

	n.Host = h
	n.pool = pool
	n.tips = tips
	n.self = h.ID()
	n.dataDir = dataDir

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return fmt.Errorf("setup gossipsub: %w", err)
	}
	n.topic, err = ps.Join(GossipTopicName)
	if err != nil {
		h.Close()
		return fmt.Errorf("join gossip topic: %w", err)
	}
	n.sub, err = n.topic.Subscribe()
	if err != nil {
		h.Close()
		return fmt.Errorf("subscribe gossip topic: %w", err)
	}
	go n.pubsubReadLoop(ctx)

	h.SetStreamHandler(MessageProtocolID, n.handleStream)
	h.Network().Notify(&connectNotifiee{onConnect: n.onPeerConnected})

	n.Logger.Info("transport node started",
		zap.String("peer_id", h.ID().String()),
		zap.Int("port", listenPort),
	)
	for _, addr := range h.Addrs() {
		n.Logger.Info("listening on", zap.String("addr", fmt.Sprintf("%s/p2p/%s", addr, h.ID())))
	}

	return nil
}

// StartDiscovery begins mDNS and DHT peer discovery.
func (n *Node) StartDiscovery(ctx context.Context, enableMDNS bool, knownPeers []string) error {
	var err error
	n.discovery, err = NewDiscovery(ctx, n.Host, enableMDNS, knownPeers, n.dataDir, n.Logger)
	if err != nil {
		return fmt.Errorf("setup discovery: %w", err)
	}
	return nil
}

// Broadcast implements engine.Broadcaster by publishing to the
// GossipSub topic, reaching every subscribed peer.
func (n *Node) Broadcast(msg *wire.Message) error {
	if n.topic == nil {
		return nil // not yet started; see the New/Start split above
	}
	data, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return n.topic.Publish(context.Background(), compressFrame(data))
}

// PeerCount returns the number of connected peers.
func (n *Node) PeerCount() int {
	return len(n.Host.Network().Peers())
}

// ConnectedPeers returns the IDs of connected peers.
func (n *Node) ConnectedPeers() []peer.ID {
	return n.Host.Network().Peers()
}

// Close shuts down the node.
func (n *Node) Close() error {
	return n.Host.Close()
}

func (n *Node) pubsubReadLoop(ctx context.Context) {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.Logger.Error("gossipsub read error", zap.Error(err))
			continue
		}
		if msg.GetFrom() == n.self {
			continue
		}
		data, err := decompressFrame(msg.Data)
		if err != nil {
			n.Logger.Debug("undecompressible gossip frame, dropping", zap.Error(err))
			continue
		}
		n.pool.Dispatch(data, n.peerHandle(msg.GetFrom()))
	}
}

func (n *Node) handleStream(stream network.Stream) {
	defer stream.Close()
	stream.SetDeadline(time.Now().Add(streamIOTimeout))

	data, err := io.ReadAll(io.LimitReader(stream, maxFrameSize))
	if err != nil {
		n.Logger.Debug("stream read error", zap.Error(err))
		return
	}
	payload, err := decompressFrame(data)
	if err != nil {
		n.Logger.Debug("undecompressible stream frame, dropping", zap.Error(err))
		return
	}
	n.pool.Dispatch(payload, n.peerHandle(stream.Conn().RemotePeer()))
}

// onPeerConnected announces our tip to a freshly connected peer,
// seeding that peer's Request phase without waiting for the next
// block to be broadcast.
func (n *Node) onPeerConnected(id peer.ID) {
	if n.tips == nil {
		return
	}
	tip := n.tips.Tip()
	if err := n.peerHandle(id).Write(wire.NewBlockHashes([]crypto.H256{tip})); err != nil {
		n.Logger.Debug("tip announce to new peer failed", zap.String("peer", id.String()), zap.Error(err))
	}
}

func (n *Node) peerHandle(id peer.ID) gossip.PeerHandle {
	return &streamPeer{id: id, host: n.Host}
}

// streamPeer implements gossip.PeerHandle by opening a fresh direct
// stream per write, mirroring the teacher's one-shot sync request
// shape rather than holding a long-lived bidirectional stream open.
type streamPeer struct {
	id   peer.ID
	host host.Host
}

func (s *streamPeer) ID() string { return s.id.String() }

func (s *streamPeer) Write(msg *wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), streamIOTimeout)
	defer cancel()

	stream, err := s.host.NewStream(ctx, s.id, MessageProtocolID)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()
	stream.SetDeadline(time.Now().Add(streamIOTimeout))

	if _, err := stream.Write(compressFrame(data)); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return stream.CloseWrite()
}

// connectNotifiee implements network.Notifiee to detect new peer
// connections and trigger a tip announce.
type connectNotifiee struct {
	onConnect func(peer.ID)
}

func (c *connectNotifiee) Connected(_ network.Network, conn network.Conn) {
	go c.onConnect(conn.RemotePeer())
}

func (c *connectNotifiee) Disconnected(network.Network, network.Conn) {}
func (c *connectNotifiee) Listen(network.Network, ma.Multiaddr)       {}
func (c *connectNotifiee) ListenClose(network.Network, ma.Multiaddr)  {}
