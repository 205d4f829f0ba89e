package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vietddude/nodepulse/internal/infra/breaker"
	"github.com/vietddude/nodepulse/internal/pipeline/metrics"
)

// HTTPProvider implements JSON-RPC 2.0 over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	nextID     atomic.Uint64

	mu           sync.RWMutex
	health       HealthStatus
	failureCount int
	requestCount int

	Monitor *Monitor
}

// NewHTTPProvider creates a new HTTP-based RPC provider. The breaker lets a
// whole batch of concurrent probes through while half-open.
func NewHTTPProvider(name, endpoint string, timeout time.Duration, bs breaker.Settings) *HTTPProvider {
	if bs.MaxRequests == 0 {
		bs.MaxRequests = 4
	}
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cb: breaker.New("rpc:"+name, bs),
		health: HealthStatus{
			Name:      name,
			Available: true,
		},
		Monitor: NewMonitor(),
	}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Call makes a single JSON-RPC call and returns the raw result. A JSON-RPC
// error object is returned as *Error and does not count against the breaker.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	metrics.RPCCallsTotal.WithLabelValues(p.name, method).Inc()

	switch p.Monitor.Status() {
	case StatusThrottled:
		metrics.RPCErrorsTotal.WithLabelValues(p.name, "throttled").Inc()
		return nil, fmt.Errorf("%w, retry after: %v", ErrThrottled, p.Monitor.RetryAfter())
	case StatusBlocked:
		metrics.RPCErrorsTotal.WithLabelValues(p.name, "blocked").Inc()
		return nil, fmt.Errorf("%w, retry after: %v", ErrBlocked, p.Monitor.RetryAfter())
	}

	if params == nil {
		params = []any{}
	}
	jsonData, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      p.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	out, err := p.cb.Execute(func() (interface{}, error) {
		return p.post(ctx, jsonData)
	})
	latency := time.Since(start)
	metrics.RPCLatency.WithLabelValues(p.name, method).Observe(latency.Seconds())

	if err != nil {
		p.recordFailure()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RPCErrorsTotal.WithLabelValues(p.name, "circuit_open").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, p.name, err)
		}
		metrics.RPCErrorsTotal.WithLabelValues(p.name, "transport").Inc()
		return nil, err
	}

	var rpcResp response
	if err := json.Unmarshal(out.([]byte), &rpcResp); err != nil {
		p.recordFailure()
		metrics.RPCErrorsTotal.WithLabelValues(p.name, "decode").Inc()
		return nil, fmt.Errorf("parse response: %w", err)
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess()

	if rpcResp.Error != nil {
		metrics.RPCErrorsTotal.WithLabelValues(p.name, "rpc").Inc()
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

func (p *HTTPProvider) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(resp.StatusCode, retryAfter)
		return nil, fmt.Errorf("rate limited (429), retry after: %s", retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(resp.StatusCode, "")
		return nil, fmt.Errorf("ip blocked (403)")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if p.Monitor.DetectThrottlePattern(string(data)) {
			p.Monitor.RecordThrottle(http.StatusTooManyRequests, "")
			return nil, fmt.Errorf("throttle detected in response: %s", string(data))
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}

	return data, nil
}

// Name returns the provider's name.
func (p *HTTPProvider) Name() string {
	return p.name
}

// Health returns the provider's health status.
func (p *HTTPProvider) Health() HealthStatus {
	p.mu.RLock()
	h := p.health
	p.mu.RUnlock()

	h.Status = p.Monitor.Status().String()
	h.Latency = p.Monitor.AverageLatency()
	h.Breaker = p.cb.State().String()
	if p.cb.State() == gobreaker.StateOpen {
		h.Available = false
	}
	return h
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requestCount++
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
