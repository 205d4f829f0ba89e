package api

import (
	"net/http"
	"time"

	"github.com/vietddude/nodepulse/internal/infra/rpc"
)

// Status represents the health of a node's data feed.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

func (s Status) worse(o Status) bool {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	return rank[s] > rank[o]
}

// NodeHealth describes the latest sample of one node.
type NodeHealth struct {
	Status        Status            `json:"status"`
	LastSampleAt  *time.Time        `json:"lastSampleAt"`
	HistoryLength int               `json:"historyLength"`
	HealthScore   *int              `json:"healthScore"`
	ChainError    string            `json:"chainError,omitempty"`
	SystemError   string            `json:"systemError,omitempty"`
	RPC           *rpc.HealthStatus `json:"rpc,omitempty"`
}

// HealthReport is the body of /health/detailed.
type HealthReport struct {
	Status Status                `json:"status"`
	Nodes  map[string]NodeHealth `json:"nodes"`
}

// CheckHealth grades every node by its latest sample: both sources present is
// healthy, one missing is degraded, no sample or both missing is critical.
func (s *Server) CheckHealth() HealthReport {
	report := HealthReport{
		Status: StatusHealthy,
		Nodes:  make(map[string]NodeHealth, len(s.nodes)),
	}
	if len(s.nodes) == 0 {
		report.Status = StatusCritical
	}

	for _, n := range s.nodes {
		h := NodeHealth{
			Status:        StatusCritical,
			HistoryLength: n.History.Len(),
		}

		if latest, ok := n.History.Latest(); ok {
			ts := latest.Timestamp
			h.LastSampleAt = &ts
			h.ChainError = latest.ChainError
			h.SystemError = latest.SystemError
			if latest.Derived != nil {
				h.HealthScore = latest.Derived.HealthScore
			}

			switch {
			case !latest.Partial():
				h.Status = StatusHealthy
			case latest.Chain != nil || latest.System != nil:
				h.Status = StatusDegraded
			}
		}

		if n.RPC != nil {
			rh := n.RPC.Health()
			h.RPC = &rh
		}

		if h.Status.worse(report.Status) {
			report.Status = h.Status
		}
		report.Nodes[n.Name] = h
	}

	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.CheckHealth()

	status := http.StatusOK
	if report.Status == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.Status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.CheckHealth())
}
