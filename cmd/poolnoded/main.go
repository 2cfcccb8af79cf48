// Command poolnoded wires together the core (chain, ledger, engine),
// the gossip worker pool, the libp2p transport, the miner, and the
// metrics endpoint into a running node. Construction starts with the
// chain and mempool, then the message worker pool, as
// original_source/main.rs does; outbound dials to known peers happen when
// discovery starts, before the background transaction generator and the
// miner are launched.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blockweave/poolnoded/internal/bootstrap"
	"github.com/blockweave/poolnoded/internal/chain"
	"github.com/blockweave/poolnoded/internal/config"
	"github.com/blockweave/poolnoded/internal/engine"
	"github.com/blockweave/poolnoded/internal/gossip"
	"github.com/blockweave/poolnoded/internal/ledger"
	"github.com/blockweave/poolnoded/internal/metrics"
	"github.com/blockweave/poolnoded/internal/miner"
	"github.com/blockweave/poolnoded/internal/transport"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "poolnoded:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Verbosity)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("poolnoded exited with error", zap.Error(err))
	}
}

// newLogger builds a zap logger whose level drops one notch per -v,
// mirroring the original's occurrence-counted verbosity flag: 0 is
// info-and-above, 1 is debug-and-above, 2+ additionally enables
// development-mode stack traces on warnings.
func newLogger(verbosity int) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbosity >= 1 {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if verbosity >= 2 {
		cfg.Development = true
	}
	logger, err := cfg.Build()
	if err != nil {
		// Logger construction failing indicates a broken stdout/stderr
		// fd; there is no sensible fallback.
		panic("poolnoded: build logger: " + err.Error())
	}
	return logger
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	genesis := bootstrap.Genesis()
	c := chain.New(genesis)
	s := ledger.NewState(bootstrap.InitialUTXOSet(bootstrap.SeedKey()))
	m := ledger.NewMempool()

	collector := metrics.NewCollector()

	node := transport.New(logger.Named("transport"))
	eng := engine.New(c, s, m, node,
		engine.WithLogger(logger.Named("engine")),
		engine.WithMetrics(collector),
	)

	pool := gossip.New(eng, logger.Named("gossip"), 4096)
	pool.Start(cfg.P2PWorkers)
	defer pool.Close()

	listenPort, err := portOf(cfg.P2PAddr)
	if err != nil {
		return fmt.Errorf("parse p2p address: %w", err)
	}
	if err := node.Start(ctx, listenPort, cfg.DataDir, pool, c); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	defer node.Close()
	if err := node.StartDiscovery(ctx, cfg.EnableMDNS, cfg.KnownPeers); err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}

	go ledger.GenerateRandomTransactions(ctx, 10*time.Second, eng.AcceptTransaction)

	miningInterval := uint64(cfg.MiningInterval)
	m1 := miner.New(eng, logger.Named("miner"), nil, miner.WithMetrics(collector))
	go m1.Run()
	m1.Start(miningInterval)
	defer m1.Exit()

	go sampleMetrics(ctx, eng, node)
	go serveMetrics(ctx, cfg.MetricsAddr, logger)

	logger.Info("poolnoded started",
		zap.String("p2p_addr", cfg.P2PAddr),
		zap.String("api_addr", cfg.APIAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// portOf extracts the numeric port from a host:port address string.
func portOf(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return port, nil
}

// sampleMetrics periodically refreshes the gauge-shaped metrics
// (chain_height, mempool_size, etc.) that aren't naturally event-driven,
// per spec §4.9.
func sampleMetrics(ctx context.Context, eng *engine.Engine, node *transport.Node) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := eng.Stats()
			metrics.SetGauges(
				stats.ChainHeight,
				stats.TipAge.Seconds(),
				stats.MempoolSize,
				stats.UTXOSetSize,
				node.PeerCount(),
				stats.OrphanCount,
			)
		}
	}
}

// serveMetrics runs the Prometheus /metrics HTTP endpoint until ctx is
// cancelled.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
