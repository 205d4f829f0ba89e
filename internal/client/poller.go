// Package client polls a nodepulse server for processed samples.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vietddude/nodepulse/internal/api"
)

// State is the poller's current view. Data is nil whenever the last fetch
// failed; stale data is never shown as current.
type State struct {
	Data      *api.ProcessedData
	Err       error
	UpdatedAt time.Time
}

// Stale reports whether the last fetch failed or none has completed.
func (s State) Stale() bool {
	return s.Data == nil
}

// Option configures a Poller.
type Option func(*Poller)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.httpClient = c }
}

// WithOnUpdate registers a callback run after every state change.
func WithOnUpdate(fn func(State)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// Poller fetches /processed_data on a fixed interval.
type Poller struct {
	endpoint   string
	interval   time.Duration
	httpClient *http.Client
	onUpdate   func(State)
	log        *slog.Logger

	mu      sync.RWMutex
	state   State
	stopped bool

	refresh chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a poller for baseURL. node may be empty to use the
// server's default node.
func NewPoller(baseURL, node string, interval time.Duration, opts ...Option) (*Poller, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	u = u.JoinPath("processed_data")
	if node != "" {
		q := u.Query()
		q.Set("node", node)
		u.RawQuery = q.Encode()
	}

	p := &Poller{
		endpoint:   u.String(),
		interval:   interval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.Default(),
		refresh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start fetches immediately and then every interval until Stop.
func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Refresh requests an immediate fetch. It never blocks.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Stop ends polling. Once it returns no fetch can change the state.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	data, err := p.fetch(ctx)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.log.Warn("Failed to fetch processed data", "error", err)
		p.state = State{Err: err, UpdatedAt: time.Now()}
	} else {
		p.state = State{Data: data, UpdatedAt: time.Now()}
	}
	st := p.state
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(st)
	}
}

func (p *Poller) fetch(ctx context.Context) (*api.ProcessedData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var out api.ProcessedDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("server returned status %q", out.Status)
	}
	return &out.Data, nil
}
