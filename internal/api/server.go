// Package api serves collected samples, live chain data, health and metrics
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/vietddude/nodepulse/internal/collect/chain"
	"github.com/vietddude/nodepulse/internal/core/domain"
	"github.com/vietddude/nodepulse/internal/infra/rpc"
)

// ErrUnknownNode is returned when a request names a node that is not configured.
var ErrUnknownNode = errors.New("unknown node")

// HistoryReader exposes a node's retained samples.
type HistoryReader interface {
	Snapshot() []domain.Sample
	Latest() (domain.Sample, bool)
	Len() int
}

// ChainViewer fetches the live chain summary.
type ChainViewer interface {
	LatestView(ctx context.Context) (chain.View, error)
}

// RPCHealth reports the state of a node's RPC endpoint.
type RPCHealth interface {
	Health() rpc.HealthStatus
}

// Node is one monitored node as seen by the HTTP surface.
type Node struct {
	Name    string
	History HistoryReader
	Chain   ChainViewer
	RPC     RPCHealth // optional
}

// Options configures the server.
type Options struct {
	Port         int
	ChainDataTTL time.Duration
	// Registerer receives the HTTP request metrics. Nil keeps them private.
	Registerer prometheus.Registerer
}

// Server provides the HTTP endpoints.
type Server struct {
	nodes  []Node
	byName map[string]int
	views  *ttlcache.Cache[string, chain.View]
	ttl    time.Duration
	server *http.Server
	log    *slog.Logger
}

// NewServer creates a new server. The first node is the default when a
// request does not name one.
func NewServer(nodes []Node, opts Options) *Server {
	s := &Server{
		nodes:  nodes,
		byName: make(map[string]int, len(nodes)),
		ttl:    opts.ChainDataTTL,
		log:    slog.Default(),
	}
	for i, n := range nodes {
		s.byName[n.Name] = i
	}

	if s.ttl > 0 {
		s.views = ttlcache.New[string, chain.View](
			ttlcache.WithTTL[string, chain.View](s.ttl),
			ttlcache.WithDisableTouchOnHit[string, chain.View](),
		)
		go s.views.Start()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(opts.Registerer),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler builds the routed handler with CORS and request metrics applied.
func (s *Server) Handler(reg prometheus.Registerer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/processed_data", s.handleProcessedData)
	mux.HandleFunc("/getChainData", s.handleChainData)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	mdlw := middleware.New(middleware.Config{
		Recorder: httpmetrics.NewRecorder(httpmetrics.Config{
			Registry: reg,
			Prefix:   "nodepulse",
		}),
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodHead,
		},
	})

	return c.Handler(std.Handler("", mdlw, mux))
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.views != nil {
		s.views.Stop()
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) node(r *http.Request) (Node, error) {
	name := r.URL.Query().Get("node")
	if name == "" {
		if len(s.nodes) == 0 {
			return Node{}, fmt.Errorf("%w: none configured", ErrUnknownNode)
		}
		return s.nodes[0], nil
	}
	i, ok := s.byName[name]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	return s.nodes[i], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "status", status, "error", err)
	}
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Status: "error", Message: err.Error()})
}
