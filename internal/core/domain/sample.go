package domain

import "time"

// Alert is a categorical health tag attached to a sample.
type Alert string

const (
	AlertTxVolumeLow      Alert = "low transaction volume"
	AlertTxVolumeModerate Alert = "moderate transaction volume"
	AlertTxVolumeHigh     Alert = "high transaction volume"

	AlertPendingClear     Alert = "pending queue clear"
	AlertPendingGrowing   Alert = "pending queue growing"
	AlertPendingCongested Alert = "pending queue congested"

	AlertPeersHealthy Alert = "peer count healthy"
	AlertPeersLow     Alert = "peer count low"

	AlertDifficultyIncreasing    Alert = "difficulty increasing"
	AlertDifficultyNotIncreasing Alert = "difficulty not increasing"

	AlertGasBelowStandard Alert = "gas usage below standard"
	AlertGasStandard      Alert = "gas usage standard"
	AlertGasHigh          Alert = "gas usage high"

	AlertSlowBlock      Alert = "slow block"
	AlertOrphanedBlocks Alert = "orphaned blocks"
)

// DifficultyTrend describes total difficulty relative to the previous sample.
type DifficultyTrend string

const (
	TrendUnknown       DifficultyTrend = "unknown"
	TrendIncreasing    DifficultyTrend = "increasing"
	TrendNotIncreasing DifficultyTrend = "not_increasing"
)

// DerivedMetrics holds values computed from the current and previous samples.
// A nil field means there was no data to compute it from, which is distinct
// from a measured zero.
type DerivedMetrics struct {
	BlockTimeDelta  *float64 `json:"blockTimeDelta"`
	TransactionRate *float64 `json:"transactionRate"`
	GasUsagePercent *float64 `json:"gasUsagePercent"`

	AvgBlockTime      *float64 `json:"avgBlockTime"`
	BlockFillRatio    *float64 `json:"blockFillRatio"`
	GasEfficiency     *float64 `json:"gasEfficiency"`
	CumulativeGasUsed *uint64  `json:"cumulativeGasUsed"`

	CPUUserPercent   *float64 `json:"cpuUserPercent"`
	CPUSystemPercent *float64 `json:"cpuSystemPercent"`
	CPUTotalPercent  *float64 `json:"cpuTotalPercent"`
	RAMUsagePercent  *float64 `json:"ramUsagePercent"`
	NetReceiveRate   *float64 `json:"netReceiveRate"`
	NetTransmitRate  *float64 `json:"netTransmitRate"`

	Historical *HistoricalComparison `json:"historicalComparison"`

	HealthScore     *int            `json:"healthScore"`
	DifficultyTrend DifficultyTrend `json:"difficultyTrend,omitempty"`
	Alerts          []Alert         `json:"alerts"`
}

// HistoricalComparison averages chain indicators over the samples retained
// before the current one. A field is nil when no retained sample carries it.
type HistoricalComparison struct {
	AvgTransactionRate *float64 `json:"avgTxnRate"`
	AvgGasUsagePercent *float64 `json:"avgGasUsage"`
	AvgPeerCount       *float64 `json:"avgPeerCount"`
}

// HasAlert reports whether a is among the sample's alerts.
func (d *DerivedMetrics) HasAlert(a Alert) bool {
	if d == nil {
		return false
	}
	for _, x := range d.Alerts {
		if x == a {
			return true
		}
	}
	return false
}

// Sample is one poll cycle's composed measurement. Chain and System are nil
// when the corresponding fetch failed; such a sample is still valid history.
// Samples are shared between readers and must be treated as read-only.
type Sample struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Chain       *ChainSnapshot  `json:"chain"`
	System      *SystemSnapshot `json:"system"`
	Derived     *DerivedMetrics `json:"derived"`
	ChainError  string          `json:"chainError,omitempty"`
	SystemError string          `json:"systemError,omitempty"`
}

// Partial reports whether at least one sub-snapshot is missing.
func (s *Sample) Partial() bool {
	return s.Chain == nil || s.System == nil
}
