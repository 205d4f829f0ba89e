package derive

import "github.com/vietddude/nodepulse/internal/core/domain"

// MaxBlockSize is the block size, in bytes, a full block is measured against.
const MaxBlockSize = 30_000_000

// blockTimeWindow is the number of block time deltas averaged, including the
// current one.
const blockTimeWindow = 10

// Window fills the fields of d that look beyond the previous sample: the
// rolling block time, cumulative gas and the averages over history. d must
// already carry cur's rate fields.
func Window(history []domain.Sample, cur *domain.Sample, d *domain.DerivedMetrics) {
	d.AvgBlockTime = avgBlockTime(history, d.BlockTimeDelta)
	d.CumulativeGasUsed = cumulativeGas(history, cur)
	d.Historical = compare(history)
}

func avgBlockTime(history []domain.Sample, current *float64) *float64 {
	deltas := make([]float64, 0, blockTimeWindow)
	if current != nil {
		deltas = append(deltas, *current)
	}
	for i := len(history) - 1; i >= 0 && len(deltas) < blockTimeWindow; i-- {
		if d := history[i].Derived; d != nil && d.BlockTimeDelta != nil {
			deltas = append(deltas, *d.BlockTimeDelta)
		}
	}
	return mean(deltas)
}

// cumulativeGas carries the running total forward from the most recent sample
// that has one. A sample without chain data repeats the previous total.
func cumulativeGas(history []domain.Sample, cur *domain.Sample) *uint64 {
	var base *uint64
	for i := len(history) - 1; i >= 0; i-- {
		if d := history[i].Derived; d != nil && d.CumulativeGasUsed != nil {
			base = d.CumulativeGasUsed
			break
		}
	}

	if cur.Chain == nil {
		if base == nil {
			return nil
		}
		return ptr(*base)
	}

	var total uint64
	if base != nil {
		total = *base
	}
	return ptr(total + cur.Chain.GasUsed)
}

func compare(history []domain.Sample) *domain.HistoricalComparison {
	if len(history) == 0 {
		return nil
	}

	var rates, gas, peers []float64
	for _, s := range history {
		if s.Chain != nil {
			peers = append(peers, float64(s.Chain.PeerCount))
		}
		if s.Derived == nil {
			continue
		}
		if s.Derived.TransactionRate != nil {
			rates = append(rates, *s.Derived.TransactionRate)
		}
		if s.Derived.GasUsagePercent != nil {
			gas = append(gas, *s.Derived.GasUsagePercent)
		}
	}

	return &domain.HistoricalComparison{
		AvgTransactionRate: mean(rates),
		AvgGasUsagePercent: mean(gas),
		AvgPeerCount:       mean(peers),
	}
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return ptr(sum / float64(len(xs)))
}
