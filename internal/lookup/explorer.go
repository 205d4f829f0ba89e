// Package lookup answers ad-hoc transaction and contract queries against a
// node. It is independent of the polling pipeline.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/nodepulse/internal/infra/rpc"
)

var (
	// ErrNotFound is returned when the node knows nothing about the hash.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed hashes, addresses or slots.
	ErrInvalidInput = errors.New("invalid input")
)

var (
	hashPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// Explorer issues pass-through queries.
type Explorer struct {
	client rpc.Caller
}

// NewExplorer creates an explorer over the given RPC client.
func NewExplorer(client rpc.Caller) *Explorer {
	return &Explorer{client: client}
}

// Transaction is a decoded eth_getTransactionByHash result. Numeric values
// are decimal strings.
type Transaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"` // nil for contract creation
	Value       string  `json:"value"`
	Gas         uint64  `json:"gas"`
	GasPrice    string  `json:"gasPrice"`
	Nonce       uint64  `json:"nonce"`
	BlockNumber *uint64 `json:"blockNumber"` // nil while pending
	Input       string  `json:"input"`
}

type rpcTransaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Value       string  `json:"value"`
	Gas         string  `json:"gas"`
	GasPrice    string  `json:"gasPrice"`
	Nonce       string  `json:"nonce"`
	BlockNumber *string `json:"blockNumber"`
	Input       string  `json:"input"`
}

// Transaction looks up a transaction by hash.
func (e *Explorer) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	if !hashPattern.MatchString(hash) {
		return nil, fmt.Errorf("%w: transaction hash %q", ErrInvalidInput, hash)
	}

	raw, err := e.client.Call(ctx, "eth_getTransactionByHash", []any{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, hash)
	}

	var tx rpcTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return decodeTransaction(tx)
}

func decodeTransaction(tx rpcTransaction) (*Transaction, error) {
	value, err := rpc.ParseQuantity(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	gas, err := rpc.ParseUint64(tx.Gas)
	if err != nil {
		return nil, fmt.Errorf("gas: %w", err)
	}
	nonce, err := rpc.ParseUint64(tx.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	out := &Transaction{
		Hash:  tx.Hash,
		From:  tx.From,
		To:    tx.To,
		Value: value.String(),
		Gas:   gas,
		Nonce: nonce,
		Input: tx.Input,
	}

	// Typed transactions may carry maxFeePerGas instead.
	if tx.GasPrice != "" {
		price, err := rpc.ParseQuantity(tx.GasPrice)
		if err != nil {
			return nil, fmt.Errorf("gasPrice: %w", err)
		}
		out.GasPrice = price.String()
	}

	if tx.BlockNumber != nil {
		n, err := rpc.ParseUint64(*tx.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("blockNumber: %w", err)
		}
		out.BlockNumber = &n
	}

	return out, nil
}

// Contract summarizes an account at the latest block.
type Contract struct {
	Address    string `json:"address"`
	IsContract bool   `json:"isContract"`
	Code       string `json:"code"`
	Balance    string `json:"balance"` // wei, decimal
	Slot       string `json:"slot"`
	Storage    string `json:"storage"`
}

// Contract reads code, balance and one storage slot of address concurrently.
// An empty slot reads slot 0.
func (e *Explorer) Contract(ctx context.Context, address, slot string) (*Contract, error) {
	if !addressPattern.MatchString(address) {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidInput, address)
	}
	if slot == "" {
		slot = "0x0"
	}
	if _, err := rpc.ParseQuantity(slot); err != nil {
		return nil, fmt.Errorf("%w: storage slot: %v", ErrInvalidInput, err)
	}

	var code, balance, storage string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.call(gctx, "eth_getCode", []any{address, "latest"}, &code)
	})
	g.Go(func() error {
		return e.call(gctx, "eth_getBalance", []any{address, "latest"}, &balance)
	})
	g.Go(func() error {
		return e.call(gctx, "eth_getStorageAt", []any{address, slot, "latest"}, &storage)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wei, err := rpc.ParseQuantity(balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}

	return &Contract{
		Address:    address,
		IsContract: code != "" && !strings.EqualFold(code, "0x"),
		Code:       code,
		Balance:    wei.String(),
		Slot:       slot,
		Storage:    storage,
	}, nil
}

func (e *Explorer) call(ctx context.Context, method string, params []any, out *string) error {
	raw, err := e.client.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}
