// Package derive computes rate and health indicators from consecutive samples.
// Every function here is pure.
package derive

import (
	"github.com/vietddude/nodepulse/internal/core/domain"
)

// Derive computes the derived metrics of cur against the retained history,
// oldest first. The history tail is the predecessor for rates and the
// difficulty trend. It returns nil when cur holds no data at all. cores
// overrides the detected CPU count when positive.
func Derive(history []domain.Sample, cur *domain.Sample, cores int) *domain.DerivedMetrics {
	if cur.Chain == nil && cur.System == nil {
		return nil
	}

	var prev *domain.Sample
	if len(history) > 0 {
		prev = &history[len(history)-1]
	}

	d := Rates(prev, cur, cores)
	Window(history, cur, &d)

	if cur.Chain != nil {
		trend := domain.TrendUnknown
		if prev != nil && prev.Chain != nil {
			trend = TrendOf(prev.Chain.TotalDifficulty, cur.Chain.TotalDifficulty)
		}
		h := Classify(HealthInput{
			TransactionCount:    cur.Chain.TransactionCount,
			PendingTransactions: cur.Chain.PendingTransactions,
			PeerCount:           cur.Chain.PeerCount,
			GasUsed:             cur.Chain.GasUsed,
			Trend:               trend,
			BlockTimeDelta:      d.BlockTimeDelta,
			OrphanedBlocks:      cur.Chain.OrphanedBlocks,
		})
		d.HealthScore = &h.Score
		d.Alerts = h.Alerts
		d.DifficultyTrend = trend
	}

	return &d
}

// Rates fills the rate-based and point-in-time fields. Rate fields stay nil
// unless prev carries the same sub-snapshot as cur.
func Rates(prev, cur *domain.Sample, cores int) domain.DerivedMetrics {
	var d domain.DerivedMetrics

	if c := cur.Chain; c != nil {
		d.GasUsagePercent = ptr(percent(float64(c.GasUsed), float64(c.GasLimit)))
		d.BlockFillRatio = ptr(percent(float64(c.BlockSize), MaxBlockSize))
		d.GasEfficiency = ptr(0.0)
		if c.GasUsed > 0 {
			d.GasEfficiency = ptr(float64(c.TransactionCount) / float64(c.GasUsed))
		}

		if prev != nil && prev.Chain != nil {
			delta := float64(c.Timestamp - prev.Chain.Timestamp)
			if delta < 0 {
				delta = 0
			}
			d.BlockTimeDelta = ptr(delta)
			d.TransactionRate = ptr(float64(c.TransactionCount) / max(delta, 1))
		}
	}

	if s := cur.System; s != nil {
		d.RAMUsagePercent = ptr(percent(s.RAMTotalBytes-s.RAMAvailableBytes, s.RAMTotalBytes))

		if prev != nil && prev.System != nil {
			elapsed := cur.Timestamp.Sub(prev.Timestamp).Seconds()
			if elapsed > 0 {
				p := prev.System
				n := float64(coreCount(cores, s))

				user := counterDelta(p.CPUUserSeconds, s.CPUUserSeconds) / elapsed / n * 100
				system := counterDelta(p.CPUSystemSeconds, s.CPUSystemSeconds) / elapsed / n * 100
				d.CPUUserPercent = ptr(user)
				d.CPUSystemPercent = ptr(system)
				d.CPUTotalPercent = ptr(user + system)

				d.NetReceiveRate = ptr(counterDelta(p.NetReceiveBytes, s.NetReceiveBytes) / elapsed)
				d.NetTransmitRate = ptr(counterDelta(p.NetTransmitBytes, s.NetTransmitBytes) / elapsed)
			}
		}
	}

	return d
}

// counterDelta treats a decreasing counter as a reset and yields zero.
func counterDelta(old, cur float64) float64 {
	if cur < old {
		return 0
	}
	return cur - old
}

func coreCount(configured int, s *domain.SystemSnapshot) int {
	if configured > 0 {
		return configured
	}
	if s.CPUCores > 0 {
		return s.CPUCores
	}
	return 1
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func ptr[T any](v T) *T {
	return &v
}
