package provider

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status represents the observed state of an endpoint.
type Status int

const (
	StatusHealthy   Status = iota // working normally
	StatusDegraded                // slow but working
	StatusThrottled               // rate limiting
	StatusBlocked                 // refusing this client
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Monitor tracks endpoint latency and rate limiting.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count   int
	status403Count   int
	throttlePatterns []string
	lastThrottleTime time.Time
	retryAfter       time.Duration

	slowResponseThreshold time.Duration
}

// NewMonitor creates a monitor with default thresholds.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 50),
		maxLatencyWindow: 50,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"request limit",
		},
		slowResponseThreshold: 3 * time.Second,
	}
}

// RecordRequest records a successful request with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordThrottle records a rate limiting (429) or blocking (403) response.
func (m *Monitor) RecordThrottle(statusCode int, retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = time.Now()

	switch statusCode {
	case 429:
		m.status429Count++
		m.retryAfter = parseRetryAfter(retryAfter, 15*time.Second)
	case 403:
		m.status403Count++
		m.retryAfter = 5 * time.Minute
	}
}

// DetectThrottlePattern checks if a message looks like a rate limit error.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	lowerMsg := strings.ToLower(message)
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// Status returns the current status of the endpoint.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if time.Since(m.lastThrottleTime) < m.retryAfter {
		if m.status403Count > 0 {
			return StatusBlocked
		}
		if m.status429Count > 0 {
			return StatusThrottled
		}
	}

	if len(m.recentLatencies) >= 10 && m.averageLatency() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

// RetryAfter returns the remaining time before calls are allowed again.
func (m *Monitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	remaining := m.retryAfter - time.Since(m.lastThrottleTime)
	if remaining > 0 {
		return remaining
	}
	return 0
}

// AverageLatency returns the average latency of recent requests.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLatency()
}

func (m *Monitor) averageLatency() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

func parseRetryAfter(v string, fallback time.Duration) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
