// Package txlistener polls an RPC endpoint for a transaction receipt,
// normalizing the result into chaintypes.TxReceipt. It is the building
// block the Trade Executor and Multi-Signature Wallet Adapter wait on
// after broadcasting a transaction.
package txlistener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

// ErrTimeout is returned by WaitForTransaction when the configured
// timeout elapses before a receipt appears.
var ErrTimeout = errors.New("txlistener: timed out waiting for receipt")

const (
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 2 * time.Minute
)

// Option configures a TxListener.
type Option func(*TxListener)

// WithPollInterval overrides the default 2s poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *TxListener) { l.pollInterval = d }
}

// WithTimeout overrides the default 2 minute wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(l *TxListener) { l.timeout = d }
}

// TxListener polls an ethclient.Client for a transaction's receipt.
type TxListener struct {
	ec           *ethclient.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// NewTxListener builds a TxListener over client, applying opts on top of
// the package defaults.
func NewTxListener(client *ethclient.Client, opts ...Option) *TxListener {
	l := &TxListener{
		ec:           client,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WaitForTransaction blocks, polling at l.pollInterval, until hash's
// receipt is available or l.timeout elapses. It never treats a reverted
// (status 0) receipt as an error — callers decide what a failed
// execution means for their trade; see the "receipt-success
// tolerance" contract.
func (l *TxListener) WaitForTransaction(hash common.Hash) (*chaintypes.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.ec.TransactionReceipt(ctx, hash)
		if err == nil {
			return toChainReceipt(receipt), nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

func toChainReceipt(r *types.Receipt) *chaintypes.TxReceipt {
	logs := make([]chaintypes.Log, 0, len(r.Logs))
	for _, l := range r.Logs {
		logs = append(logs, chaintypes.Log{
			Address: l.Address,
			Topics:  l.Topics,
			Data:    l.Data,
		})
	}

	return &chaintypes.TxReceipt{
		TxHash:            r.TxHash,
		BlockNumber:       r.BlockNumber.String(),
		Status:            fmt.Sprintf("%d", r.Status),
		GasUsed:           fmt.Sprintf("%d", r.GasUsed),
		EffectiveGasPrice: r.EffectiveGasPrice.String(),
		Logs:              logs,
	}
}
