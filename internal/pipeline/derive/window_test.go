package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// run derives each sample against the ones before it, as the scheduler does.
func run(samples ...*domain.Sample) []domain.Sample {
	var history []domain.Sample
	for _, s := range samples {
		s.Derived = Derive(history, s, 0)
		history = append(history, *s)
	}
	return history
}

func TestDerive_BlockFillAndGasEfficiency(t *testing.T) {
	cur := chainSample(t0, 1000, 30)
	cur.Chain.BlockSize = 15_000_000

	d := Derive(nil, cur, 0)
	require.NotNil(t, d)
	require.NotNil(t, d.BlockFillRatio)
	assert.Equal(t, 50.0, *d.BlockFillRatio)
	require.NotNil(t, d.GasEfficiency)
	assert.InDelta(t, 30.0/120_000_000, *d.GasEfficiency, 1e-15)
}

func TestDerive_GasEfficiencyZeroGas(t *testing.T) {
	cur := chainSample(t0, 1000, 30)
	cur.Chain.GasUsed = 0

	d := Derive(nil, cur, 0)
	require.NotNil(t, d.GasEfficiency)
	assert.Equal(t, 0.0, *d.GasEfficiency)
}

func TestDerive_ChainWindowNilWithoutChain(t *testing.T) {
	d := Derive(nil, systemSample(t0, 1, 1, 1), 0)
	require.NotNil(t, d)

	assert.Nil(t, d.BlockFillRatio)
	assert.Nil(t, d.GasEfficiency)
	assert.Nil(t, d.AvgBlockTime)
	assert.Nil(t, d.CumulativeGasUsed)
	assert.Nil(t, d.Historical)
}

func TestDerive_AvgBlockTimeRollsOverTen(t *testing.T) {
	// Block times 10, 10, ... then 20s deltas; the window keeps the last ten.
	var samples []*domain.Sample
	ts := int64(1000)
	for i := 0; i < 15; i++ {
		if i > 5 {
			ts += 20
		} else {
			ts += 10
		}
		samples = append(samples, chainSample(t0.Add(time.Duration(i)*15*time.Second), ts, 5))
	}
	history := run(samples...)

	first := history[0].Derived
	assert.Nil(t, first.AvgBlockTime)

	second := history[1].Derived
	require.NotNil(t, second.AvgBlockTime)
	assert.Equal(t, 10.0, *second.AvgBlockTime)

	// Deltas of samples 5..14: one 10s and nine 20s.
	last := history[14].Derived
	require.NotNil(t, last.AvgBlockTime)
	assert.Equal(t, 19.0, *last.AvgBlockTime)
}

func TestDerive_CumulativeGasCarriesOverGaps(t *testing.T) {
	a := chainSample(t0, 1000, 5)
	gap := systemSample(t0.Add(15*time.Second), 1, 1, 1)
	b := chainSample(t0.Add(30*time.Second), 1015, 5)
	b.Chain.GasUsed = 30_000_000

	history := run(a, gap, b)

	require.NotNil(t, history[0].Derived.CumulativeGasUsed)
	assert.Equal(t, uint64(120_000_000), *history[0].Derived.CumulativeGasUsed)
	require.NotNil(t, history[1].Derived.CumulativeGasUsed)
	assert.Equal(t, uint64(120_000_000), *history[1].Derived.CumulativeGasUsed)
	require.NotNil(t, history[2].Derived.CumulativeGasUsed)
	assert.Equal(t, uint64(150_000_000), *history[2].Derived.CumulativeGasUsed)
}

func TestDerive_HistoricalComparison(t *testing.T) {
	a := chainSample(t0, 1000, 10)
	a.Chain.PeerCount = 10
	b := chainSample(t0.Add(15*time.Second), 1010, 20)
	b.Chain.PeerCount = 20
	b.Chain.GasUsed = 60_000_000
	c := chainSample(t0.Add(30*time.Second), 1020, 40)

	history := run(a, b, c)

	assert.Nil(t, history[0].Derived.Historical)

	h := history[2].Derived.Historical
	require.NotNil(t, h)
	// Only b has a transaction rate: 20 tx over 10s.
	require.NotNil(t, h.AvgTransactionRate)
	assert.Equal(t, 2.0, *h.AvgTransactionRate)
	require.NotNil(t, h.AvgGasUsagePercent)
	assert.Equal(t, 37.5, *h.AvgGasUsagePercent)
	require.NotNil(t, h.AvgPeerCount)
	assert.Equal(t, 15.0, *h.AvgPeerCount)
}

func TestDerive_HistoricalWithoutChainHistory(t *testing.T) {
	history := run(systemSample(t0, 1, 1, 1), chainSample(t0.Add(15*time.Second), 1000, 5))

	h := history[1].Derived.Historical
	require.NotNil(t, h)
	assert.Nil(t, h.AvgTransactionRate)
	assert.Nil(t, h.AvgGasUsagePercent)
	assert.Nil(t, h.AvgPeerCount)
}

func TestDerive_SlowBlockAndOrphansReachScore(t *testing.T) {
	prev := chainSample(t0, 1000, 5)
	cur := chainSample(t0.Add(30*time.Second), 1030, 5)
	cur.Chain.TotalDifficulty = "1050"
	cur.Chain.OrphanedBlocks = 1

	d := Derive([]domain.Sample{*prev}, cur, 0)
	require.NotNil(t, d)
	assert.True(t, d.HasAlert(domain.AlertSlowBlock))
	assert.True(t, d.HasAlert(domain.AlertOrphanedBlocks))
	require.NotNil(t, d.HealthScore)
	assert.Equal(t, 55, *d.HealthScore)
}
