package chain

import (
	"context"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// View is the live chain summary served to dashboard clients.
type View struct {
	LatestBlockData LatestBlockData `json:"latestBlockData"`
	NetworkData     NetworkData     `json:"networkData"`
}

// LatestBlockData describes the latest block.
type LatestBlockData struct {
	BlockNumber       uint64            `json:"blockNumber"`
	GasUsed           uint64            `json:"gasUsed"`
	TotalDifficulty   domain.Difficulty `json:"totalDifficulty"`
	Timestamp         int64             `json:"timestamp"`
	TransactionsCount int               `json:"transactionsCount"`
	OrphanedBlocks    int               `json:"orphanedBlocks"`
	GasLimit          uint64            `json:"gasLimit"`
	BlockSize         uint64            `json:"blockSize"`
}

// NetworkData describes the node's network state.
type NetworkData struct {
	PeerCount           int    `json:"peerCount"`
	ChainID             uint64 `json:"chainId"`
	PendingTransactions int    `json:"pendingTransactions"`
}

// ViewOf reshapes a snapshot into a View.
func ViewOf(s *domain.ChainSnapshot) View {
	return View{
		LatestBlockData: LatestBlockData{
			BlockNumber:       s.BlockNumber,
			GasUsed:           s.GasUsed,
			TotalDifficulty:   s.TotalDifficulty,
			Timestamp:         s.Timestamp,
			TransactionsCount: s.TransactionCount,
			OrphanedBlocks:    s.OrphanedBlocks,
			GasLimit:          s.GasLimit,
			BlockSize:         s.BlockSize,
		},
		NetworkData: NetworkData{
			PeerCount:           s.PeerCount,
			ChainID:             s.ChainID,
			PendingTransactions: s.PendingTransactions,
		},
	}
}

// LatestView fetches a fresh snapshot and returns it as a View.
func (f *Fetcher) LatestView(ctx context.Context) (View, error) {
	snap, err := f.Fetch(ctx)
	if err != nil {
		return View{}, err
	}
	return ViewOf(snap), nil
}
