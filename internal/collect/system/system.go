// Package system captures host resource counters for a monitored node.
package system

import (
	"context"
	"errors"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// ErrMetricsUnavailable is returned when host metrics cannot be read.
var ErrMetricsUnavailable = errors.New("metrics unavailable")

// Source produces one SystemSnapshot per call.
type Source interface {
	Fetch(ctx context.Context) (*domain.SystemSnapshot, error)
}
