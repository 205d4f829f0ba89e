// Package rpc provides the JSON-RPC client used to query node state.
//
//	p := rpc.NewHTTPProvider("node1", "http://10.0.0.5:8545", 10*time.Second, breaker.Settings{})
//	raw, err := p.Call(ctx, "eth_chainId", nil)
//
// Implementations live in provider/; the most used names are re-exported here.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/vietddude/nodepulse/internal/infra/rpc/provider"
)

// Caller issues a single JSON-RPC request and returns the raw result.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
}

// HTTPProvider is the JSON-RPC over HTTP transport.
type HTTPProvider = provider.HTTPProvider

// HealthStatus is the health view of one endpoint.
type HealthStatus = provider.HealthStatus

// Error is a JSON-RPC error object.
type Error = provider.Error

// NewHTTPProvider creates a new HTTP-based RPC provider.
var NewHTTPProvider = provider.NewHTTPProvider

var _ Caller = (*provider.HTTPProvider)(nil)
