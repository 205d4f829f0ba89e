// Package chain captures chain state from a node's JSON-RPC interface.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/nodepulse/internal/core/domain"
	"github.com/vietddude/nodepulse/internal/infra/rpc"
)

// ErrChainUnavailable is returned when any of the node queries fails.
var ErrChainUnavailable = errors.New("chain unavailable")

// Fetcher composes a ChainSnapshot from four concurrent RPC queries.
type Fetcher struct {
	client rpc.Caller
	log    *slog.Logger
}

// NewFetcher creates a fetcher over the given RPC client.
func NewFetcher(client rpc.Caller) *Fetcher {
	return &Fetcher{
		client: client,
		log:    slog.Default(),
	}
}

type rpcBlock struct {
	Number          string            `json:"number"`
	GasUsed         string            `json:"gasUsed"`
	GasLimit        string            `json:"gasLimit"`
	TotalDifficulty *string           `json:"totalDifficulty"`
	Timestamp       string            `json:"timestamp"`
	Size            string            `json:"size"`
	Transactions    []json.RawMessage `json:"transactions"`
	Uncles          []string          `json:"uncles"`
}

type rpcPendingBlock struct {
	Transactions []json.RawMessage `json:"transactions"`
}

// Fetch queries the latest block, chain id, pending block and peer count.
// All four must succeed; the first failure cancels the rest.
func (f *Fetcher) Fetch(ctx context.Context) (*domain.ChainSnapshot, error) {
	var (
		latest  *rpcBlock
		pending *rpcPendingBlock
		chainID string
		peers   string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.call(gctx, "eth_getBlockByNumber", []any{"latest", false}, &latest)
	})
	g.Go(func() error {
		return f.call(gctx, "eth_chainId", nil, &chainID)
	})
	g.Go(func() error {
		return f.call(gctx, "eth_getBlockByNumber", []any{"pending", true}, &pending)
	})
	g.Go(func() error {
		return f.call(gctx, "net_peerCount", nil, &peers)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChainUnavailable, err)
	}

	if latest == nil {
		return nil, fmt.Errorf("%w: latest block is null", ErrChainUnavailable)
	}

	snap, err := compose(latest, pending, chainID, peers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChainUnavailable, err)
	}

	f.log.Debug("Chain snapshot captured",
		"block", snap.BlockNumber,
		"txs", snap.TransactionCount,
		"pending", snap.PendingTransactions,
		"peers", snap.PeerCount,
	)
	return snap, nil
}

func (f *Fetcher) call(ctx context.Context, method string, params []any, out any) error {
	raw, err := f.client.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func compose(latest *rpcBlock, pending *rpcPendingBlock, chainIDHex, peersHex string) (*domain.ChainSnapshot, error) {
	number, err := rpc.ParseUint64(latest.Number)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	gasUsed, err := rpc.ParseUint64(latest.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("gasUsed: %w", err)
	}
	gasLimit, err := rpc.ParseUint64(latest.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("gasLimit: %w", err)
	}
	ts, err := rpc.ParseUint64(latest.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	var size uint64
	if latest.Size != "" {
		if size, err = rpc.ParseUint64(latest.Size); err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
	}

	// Post-merge nodes drop totalDifficulty.
	difficulty := domain.Difficulty("0")
	if latest.TotalDifficulty != nil {
		n, err := rpc.ParseQuantity(*latest.TotalDifficulty)
		if err != nil {
			return nil, fmt.Errorf("totalDifficulty: %w", err)
		}
		difficulty = domain.DifficultyFromBig(n)
	}

	chainID, err := rpc.ParseUint64(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("chainId: %w", err)
	}
	peers, err := rpc.ParseUint64(peersHex)
	if err != nil {
		return nil, fmt.Errorf("peerCount: %w", err)
	}

	pendingCount := 0
	if pending != nil {
		pendingCount = len(pending.Transactions)
	}

	return &domain.ChainSnapshot{
		BlockNumber:         number,
		GasUsed:             gasUsed,
		GasLimit:            gasLimit,
		TotalDifficulty:     difficulty,
		Timestamp:           int64(ts),
		TransactionCount:    len(latest.Transactions),
		OrphanedBlocks:      len(latest.Uncles),
		BlockSize:           size,
		PeerCount:           int(peers),
		ChainID:             chainID,
		PendingTransactions: pendingCount,
	}, nil
}
