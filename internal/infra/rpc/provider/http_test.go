package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/nodepulse/internal/infra/breaker"
)

func TestHTTPProvider_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "2.0", req["jsonrpc"])
		assert.Equal(t, "eth_chainId", req["method"])
		assert.Equal(t, []any{}, req["params"])

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  "0x539",
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{})

	raw, err := p.Call(context.Background(), "eth_chainId", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"0x539"`, string(raw))

	h := p.Health()
	assert.True(t, h.Available)
	assert.Equal(t, "closed", h.Breaker)
	assert.Zero(t, h.ErrorRate)
}

func TestHTTPProvider_CallRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{MaxFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := p.Call(context.Background(), "eth_unknown", nil)
		var rpcErr *Error
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, -32601, rpcErr.Code)
	}

	// The node answered, so the breaker stays closed.
	assert.Equal(t, "closed", p.Health().Breaker)
}

func TestHTTPProvider_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	})

	for i := 0; i < 2; i++ {
		_, err := p.Call(context.Background(), "eth_blockNumber", nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
	assert.False(t, p.Health().Available)
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{MaxFailures: 10})

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	require.Error(t, err)

	_, err = p.Call(context.Background(), "eth_blockNumber", nil)
	require.ErrorIs(t, err, ErrThrottled)
}

func TestHTTPProvider_BlockedStopsCalls(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{MaxFailures: 10})

	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlocked)

	_, err = p.Call(context.Background(), "eth_blockNumber", nil)
	require.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, StatusBlocked.String(), p.Health().Status)
}

func TestHTTPProvider_HealthReportsRecentLatency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{})
	assert.Zero(t, p.Health().Latency)

	_, err := p.Call(context.Background(), "eth_chainId", nil)
	require.NoError(t, err)

	h := p.Health()
	assert.Equal(t, p.Monitor.AverageLatency(), h.Latency)
	assert.GreaterOrEqual(t, h.Latency, 10*time.Millisecond)
}

func TestHTTPProvider_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewHTTPProvider("eth-mock", server.URL, 5*time.Second, breaker.Settings{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Call(ctx, "eth_blockNumber", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
