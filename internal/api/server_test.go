package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/nodepulse/internal/collect/chain"
	"github.com/vietddude/nodepulse/internal/core/domain"
	"github.com/vietddude/nodepulse/internal/pipeline/history"
)

type fakeViewer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeViewer) LatestView(ctx context.Context) (chain.View, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return chain.View{}, f.err
	}
	return chain.View{
		LatestBlockData: chain.LatestBlockData{BlockNumber: uint64(100 + n), TotalDifficulty: "1000"},
		NetworkData:     chain.NetworkData{PeerCount: 7, ChainID: 1337},
	}, nil
}

func newTestServer(t *testing.T, ttl time.Duration, nodes ...Node) http.Handler {
	t.Helper()
	s := NewServer(nodes, Options{ChainDataTTL: ttl})
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s.Handler(prometheus.NewRegistry())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func fullSample(id string) domain.Sample {
	score := 85
	return domain.Sample{
		ID:        id,
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Chain:     &domain.ChainSnapshot{BlockNumber: 42, TotalDifficulty: "1000"},
		System:    &domain.SystemSnapshot{RAMTotalBytes: 1},
		Derived:   &domain.DerivedMetrics{HealthScore: &score},
	}
}

func TestProcessedData(t *testing.T) {
	store := history.New(10)
	store.Append(fullSample("a"))
	store.Append(domain.Sample{ID: "b", ChainError: "rpc down"})

	h := newTestServer(t, 0, Node{Name: "node1", History: store, Chain: &fakeViewer{}})
	rec := get(t, h, "/processed_data")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Node    string           `json:"node"`
			History []map[string]any `json:"history"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "node1", body.Data.Node)
	require.Len(t, body.Data.History, 2)
	assert.Equal(t, "a", body.Data.History[0]["id"])
	assert.Nil(t, body.Data.History[1]["chain"])
	assert.Equal(t, "rpc down", body.Data.History[1]["chainError"])
}

func TestProcessedData_EmptyHistory(t *testing.T) {
	h := newTestServer(t, 0, Node{Name: "node1", History: history.New(10), Chain: &fakeViewer{}})
	rec := get(t, h, "/processed_data")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","data":{"node":"node1","history":[]}}`, rec.Body.String())
}

func TestProcessedData_NodeSelection(t *testing.T) {
	s1, s2 := history.New(10), history.New(10)
	s2.Append(fullSample("from-node2"))

	h := newTestServer(t, 0,
		Node{Name: "node1", History: s1, Chain: &fakeViewer{}},
		Node{Name: "node2", History: s2, Chain: &fakeViewer{}},
	)

	rec := get(t, h, "/processed_data?node=node2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "from-node2")

	rec = get(t, h, "/processed_data?node=node9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestChainData_Cached(t *testing.T) {
	viewer := &fakeViewer{}
	h := newTestServer(t, time.Minute, Node{Name: "node1", History: history.New(1), Chain: viewer})

	first := get(t, h, "/getChainData")
	require.Equal(t, http.StatusOK, first.Code)

	var view chain.View
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &view))
	assert.Equal(t, uint64(101), view.LatestBlockData.BlockNumber)
	assert.Equal(t, domain.Difficulty("1000"), view.LatestBlockData.TotalDifficulty)
	assert.Equal(t, uint64(1337), view.NetworkData.ChainID)

	second := get(t, h, "/getChainData")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), viewer.calls.Load())
}

func TestChainData_NoCache(t *testing.T) {
	viewer := &fakeViewer{}
	h := newTestServer(t, 0, Node{Name: "node1", History: history.New(1), Chain: viewer})

	get(t, h, "/getChainData")
	get(t, h, "/getChainData")
	assert.Equal(t, int32(2), viewer.calls.Load())
}

func TestChainData_Failure(t *testing.T) {
	viewer := &fakeViewer{err: errors.New("chain unavailable")}
	h := newTestServer(t, time.Minute, Node{Name: "node1", History: history.New(1), Chain: viewer})

	rec := get(t, h, "/getChainData")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error fetching data")

	// Failures are not cached.
	get(t, h, "/getChainData")
	assert.Equal(t, int32(2), viewer.calls.Load())
}

func TestHealth(t *testing.T) {
	healthy, degraded, empty := history.New(5), history.New(5), history.New(5)
	healthy.Append(fullSample("a"))
	partial := fullSample("b")
	partial.System = nil
	partial.SystemError = "metrics unavailable"
	degraded.Append(partial)

	tests := []struct {
		name   string
		nodes  []Node
		code   int
		status Status
	}{
		{"healthy", []Node{{Name: "n1", History: healthy}}, http.StatusOK, StatusHealthy},
		{"degraded wins", []Node{{Name: "n1", History: healthy}, {Name: "n2", History: degraded}}, http.StatusOK, StatusDegraded},
		{"no samples", []Node{{Name: "n1", History: empty}}, http.StatusServiceUnavailable, StatusCritical},
		{"critical wins", []Node{{Name: "n1", History: degraded}, {Name: "n2", History: empty}}, http.StatusServiceUnavailable, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, 0, tt.nodes...)
			rec := get(t, h, "/health")

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body["status"])
		})
	}
}

func TestHealthDetailed(t *testing.T) {
	store := history.New(5)
	partial := fullSample("b")
	partial.Chain = nil
	partial.ChainError = "chain unavailable: connection refused"
	store.Append(partial)

	h := newTestServer(t, 0, Node{Name: "node1", History: store})
	rec := get(t, h, "/health/detailed")
	require.Equal(t, http.StatusOK, rec.Code)

	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))

	assert.Equal(t, StatusDegraded, report.Status)
	n := report.Nodes["node1"]
	assert.Equal(t, StatusDegraded, n.Status)
	assert.Equal(t, 1, n.HistoryLength)
	assert.Equal(t, "chain unavailable: connection refused", n.ChainError)
	require.NotNil(t, n.HealthScore)
	assert.Equal(t, 85, *n.HealthScore)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, 0, Node{Name: "node1", History: history.New(1)})
	rec := get(t, h, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "Failed to encode response")
}
