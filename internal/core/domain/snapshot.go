package domain

import "math/big"

// Difficulty is an arbitrary-precision, non-negative integer kept in canonical
// base-10 form. It is never converted to a fixed-width type.
type Difficulty string

// DifficultyFromBig converts n to a Difficulty. Negative values are clamped to zero.
func DifficultyFromBig(n *big.Int) Difficulty {
	if n == nil || n.Sign() < 0 {
		return "0"
	}
	return Difficulty(n.String())
}

// Big returns a fresh big.Int holding d. An empty or invalid value yields zero.
func (d Difficulty) Big() *big.Int {
	n, ok := new(big.Int).SetString(string(d), 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// Cmp compares d and o numerically.
func (d Difficulty) Cmp(o Difficulty) int {
	return d.Big().Cmp(o.Big())
}

func (d Difficulty) String() string {
	if d == "" {
		return "0"
	}
	return string(d)
}

// ChainSnapshot is one composed view of the node's chain state.
type ChainSnapshot struct {
	BlockNumber         uint64     `json:"blockNumber"`
	GasUsed             uint64     `json:"gasUsed"`
	GasLimit            uint64     `json:"gasLimit"`
	TotalDifficulty     Difficulty `json:"totalDifficulty"`
	Timestamp           int64      `json:"timestamp"` // unix seconds of the latest block
	TransactionCount    int        `json:"transactionCount"`
	OrphanedBlocks      int        `json:"orphanedBlocks"`
	BlockSize           uint64     `json:"blockSize"`
	PeerCount           int        `json:"peerCount"`
	ChainID             uint64     `json:"chainId"`
	PendingTransactions int        `json:"pendingTransactions"`
}

// SystemSnapshot is one scrape of the host metrics. CPU and network fields are
// cumulative counters; load averages are gauges.
type SystemSnapshot struct {
	RAMTotalBytes     float64 `json:"ramTotalBytes"`
	RAMAvailableBytes float64 `json:"ramAvailableBytes"`
	CPUUserSeconds    float64 `json:"cpuUserSecs"`
	CPUSystemSeconds  float64 `json:"cpuSystemSecs"`
	NetReceiveBytes   float64 `json:"netReceiveBytes"`
	NetTransmitBytes  float64 `json:"netTransmitBytes"`
	Load1             float64 `json:"load1"`
	Load5             float64 `json:"load5"`
	Load15            float64 `json:"load15"`
	CPUCores          int     `json:"cpuCores"` // 0 when unknown
}
