package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vietddude/nodepulse/internal/api"
	"github.com/vietddude/nodepulse/internal/collect/chain"
	"github.com/vietddude/nodepulse/internal/collect/system"
	"github.com/vietddude/nodepulse/internal/core/config"
	"github.com/vietddude/nodepulse/internal/infra/breaker"
	"github.com/vietddude/nodepulse/internal/infra/exporter"
	redisclient "github.com/vietddude/nodepulse/internal/infra/redis"
	"github.com/vietddude/nodepulse/internal/infra/rpc"
	"github.com/vietddude/nodepulse/internal/pipeline/history"
	"github.com/vietddude/nodepulse/internal/pipeline/scheduler"
)

// Config holds the application configuration.
type Config struct {
	Port         int
	Poll         config.PollConfig
	ChainDataTTL time.Duration
	Breaker      config.BreakerConfig
	Redis        redisclient.Config
	Nodes        []config.NodeConfig
	// Registerer receives HTTP request metrics. Nil keeps them private.
	Registerer prometheus.Registerer
}

// ConfigFrom maps the loaded file configuration onto the application config.
func ConfigFrom(cfg *config.AppConfig) Config {
	return Config{
		Port:         cfg.Server.Port,
		Poll:         cfg.Poll,
		ChainDataTTL: cfg.ChainDataTTL,
		Breaker:      cfg.Breaker,
		Redis:        cfg.Redis,
		Nodes:        cfg.Nodes,
	}
}

// Node is the acquisition pipeline of one monitored node.
type Node struct {
	Name      string
	Provider  *rpc.HTTPProvider
	Chain     *chain.Fetcher
	System    system.Source
	Store     *history.Store
	Scheduler *scheduler.Scheduler
}

// App owns every node pipeline and the HTTP server.
type App struct {
	cfg         Config
	nodes       []*Node
	server      *api.Server
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	if len(cfg.Nodes) == 0 {
		return nil, errors.New("no nodes configured")
	}

	a := &App{
		cfg: cfg,
		log: slog.Default(),
	}

	var opts []scheduler.Option
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		opts = append(opts, scheduler.WithSink(client))
		a.log.Info("Publishing samples to Redis", "channel", cfg.Redis.Channel)
	}

	apiNodes := make([]api.Node, 0, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		n := NewNode(nc, cfg.Poll, cfg.Breaker, opts...)
		a.nodes = append(a.nodes, n)
		apiNodes = append(apiNodes, api.Node{
			Name:    n.Name,
			History: n.Store,
			Chain:   n.Chain,
			RPC:     n.Provider,
		})
	}

	a.server = api.NewServer(apiNodes, api.Options{
		Port:         cfg.Port,
		ChainDataTTL: cfg.ChainDataTTL,
		Registerer:   cfg.Registerer,
	})

	return a, nil
}

// NewNode wires the fetchers, history and scheduler of one node.
func NewNode(nc config.NodeConfig, poll config.PollConfig, bc config.BreakerConfig, opts ...scheduler.Option) *Node {
	bs := breaker.Settings{
		MaxFailures: bc.MaxFailures,
		OpenTimeout: bc.OpenTimeout,
	}

	provider := rpc.NewHTTPProvider(nc.Name, nc.RPCURL, poll.Timeout, bs)

	var src system.Source
	if nc.MetricsURL != "" {
		scraper := exporter.NewHTTPScraper(nc.Name, nc.MetricsURL, poll.Timeout, bs)
		src = system.NewExporterSource(scraper, nc.ExcludeDevices)
	} else {
		slog.Info("No metrics_url, sampling local host", "node", nc.Name)
		src = system.NewHostSource(nc.ExcludeDevices)
	}

	n := &Node{
		Name:     nc.Name,
		Provider: provider,
		Chain:    chain.NewFetcher(provider),
		System:   src,
		Store:    history.New(poll.HistoryCapacity),
	}
	n.Scheduler = scheduler.New(scheduler.Config{
		Node:     nc.Name,
		Interval: poll.Interval,
		Timeout:  poll.Timeout,
		CPUCores: nc.CPUCores,
	}, n.Chain, n.System, n.Store, opts...)

	return n
}

// Nodes returns the node pipelines in configuration order.
func (a *App) Nodes() []*Node {
	return a.nodes
}

// Server returns the HTTP server.
func (a *App) Server() *api.Server {
	return a.server
}

// Start starts the HTTP server and every scheduler.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	for _, n := range a.nodes {
		if err := n.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start node %s: %w", n.Name, err)
		}
	}
	return nil
}

// Stop stops the schedulers, waiting for in-flight cycles, then the server.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping nodepulse...")

	var errs []error
	for _, n := range a.nodes {
		if err := n.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		n.Provider.Close()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
