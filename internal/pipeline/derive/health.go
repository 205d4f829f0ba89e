package derive

import (
	"github.com/vietddude/nodepulse/internal/core/domain"
)

const (
	gasStandardLow  = 150_000_000
	gasStandardHigh = 210_000_000

	// slowBlockSeconds is the block time above which a block counts as slow.
	slowBlockSeconds = 20
)

// Penalties subtracted from a perfect score of 100.
const (
	penaltyTxModerate      = 5
	penaltyTxHigh          = 15
	penaltyPendingGrowing  = 10
	penaltyPendingCongest  = 25
	penaltyPeersLow        = 30
	penaltyDifficultyStall = 25
	penaltyGasHigh         = 15
	penaltySlowBlock       = 20
	penaltyOrphanedBlocks  = 25
)

// HealthInput holds the chain signals the classifier looks at.
type HealthInput struct {
	TransactionCount    int
	PendingTransactions int
	PeerCount           int
	GasUsed             uint64
	Trend               domain.DifficultyTrend
	// BlockTimeDelta is nil until a previous block is known.
	BlockTimeDelta *float64
	OrphanedBlocks int
}

// Health is a classifier verdict.
type Health struct {
	Score  int
	Alerts []domain.Alert
}

// Classify maps chain signals to alert tags and a 0-100 score. Alerts are
// ordered: transactions, pending queue, peers, difficulty, gas, then the
// slow-block and orphan signals, which only tag when they fire. An unknown
// difficulty trend emits no difficulty tag and no penalty.
func Classify(in HealthInput) Health {
	alerts := make([]domain.Alert, 0, 7)
	penalty := 0

	switch {
	case in.TransactionCount >= 100:
		alerts = append(alerts, domain.AlertTxVolumeHigh)
		penalty += penaltyTxHigh
	case in.TransactionCount > 10:
		alerts = append(alerts, domain.AlertTxVolumeModerate)
		penalty += penaltyTxModerate
	default:
		alerts = append(alerts, domain.AlertTxVolumeLow)
	}

	switch {
	case in.PendingTransactions >= 20:
		alerts = append(alerts, domain.AlertPendingCongested)
		penalty += penaltyPendingCongest
	case in.PendingTransactions > 5:
		alerts = append(alerts, domain.AlertPendingGrowing)
		penalty += penaltyPendingGrowing
	default:
		alerts = append(alerts, domain.AlertPendingClear)
	}

	if in.PeerCount > 5 {
		alerts = append(alerts, domain.AlertPeersHealthy)
	} else {
		alerts = append(alerts, domain.AlertPeersLow)
		penalty += penaltyPeersLow
	}

	switch in.Trend {
	case domain.TrendIncreasing:
		alerts = append(alerts, domain.AlertDifficultyIncreasing)
	case domain.TrendNotIncreasing:
		alerts = append(alerts, domain.AlertDifficultyNotIncreasing)
		penalty += penaltyDifficultyStall
	}

	switch {
	case in.GasUsed > gasStandardHigh:
		alerts = append(alerts, domain.AlertGasHigh)
		penalty += penaltyGasHigh
	case in.GasUsed >= gasStandardLow:
		alerts = append(alerts, domain.AlertGasStandard)
	default:
		alerts = append(alerts, domain.AlertGasBelowStandard)
	}

	if in.BlockTimeDelta != nil && *in.BlockTimeDelta > slowBlockSeconds {
		alerts = append(alerts, domain.AlertSlowBlock)
		penalty += penaltySlowBlock
	}

	if in.OrphanedBlocks > 0 {
		alerts = append(alerts, domain.AlertOrphanedBlocks)
		penalty += penaltyOrphanedBlocks
	}

	return Health{
		Score:  min(max(100-penalty, 0), 100),
		Alerts: alerts,
	}
}

// TrendOf compares two total difficulties numerically.
func TrendOf(prev, cur domain.Difficulty) domain.DifficultyTrend {
	if cur.Cmp(prev) > 0 {
		return domain.TrendIncreasing
	}
	return domain.TrendNotIncreasing
}
