// Package provider implements the JSON-RPC transport used to talk to nodes.
//
// This package contains:
//   - HTTPProvider: JSON-RPC 2.0 over HTTP guarded by a circuit breaker
//   - Monitor: latency and throttle tracking
//   - HealthStatus: the per-endpoint view reported by the health server
package provider

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrThrottled is returned while the endpoint is rate limiting us.
	ErrThrottled = errors.New("provider throttled")
	// ErrBlocked is returned while the endpoint is refusing us (403).
	ErrBlocked = errors.New("provider blocked")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit open")
)

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Name          string        `json:"name"`
	Available     bool          `json:"available"`
	Status        string        `json:"status"`
	Breaker       string        `json:"breaker"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"errorRate"`
	LastSuccessAt time.Time     `json:"lastSuccessAt"`
	LastFailureAt time.Time     `json:"lastFailureAt"`
}
