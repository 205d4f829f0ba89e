package api

import (
	"net/http"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// ProcessedData is the payload of /processed_data.
type ProcessedData struct {
	Node    string          `json:"node"`
	History []domain.Sample `json:"history"`
}

// ProcessedDataResponse wraps ProcessedData in the response envelope.
type ProcessedDataResponse struct {
	Status string        `json:"status"`
	Data   ProcessedData `json:"data"`
}

func (s *Server) handleProcessedData(w http.ResponseWriter, r *http.Request) {
	node, err := s.node(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ProcessedDataResponse{
		Status: "success",
		Data: ProcessedData{
			Node:    node.Name,
			History: node.History.Snapshot(),
		},
	})
}

func (s *Server) handleChainData(w http.ResponseWriter, r *http.Request) {
	node, err := s.node(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if s.views != nil {
		if item := s.views.Get(node.Name); item != nil {
			writeJSON(w, http.StatusOK, item.Value())
			return
		}
	}

	view, err := node.Chain.LatestView(r.Context())
	if err != nil {
		s.log.Error("Failed to fetch chain data", "node", node.Name, "error", err)
		http.Error(w, "Error fetching data", http.StatusInternalServerError)
		return
	}

	if s.views != nil {
		s.views.Set(node.Name, view, s.ttl)
	}
	writeJSON(w, http.StatusOK, view)
}
