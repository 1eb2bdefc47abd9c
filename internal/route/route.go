// Package route implements the Route Provider: a thin,
// retrying contract over the external DEX aggregator collaborator that
// returns an executable swap call plus the spender the Allowance
// Manager must grant.
package route

import (
	"context"
	"math/big"
	"time"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/retry"
)

// DefaultSlippageBps is the default (0.50%).
const DefaultSlippageBps = 50

// defaultRetryPolicy is the "3 attempts, base 500 ms, cap 4 s".
var defaultRetryPolicy = retry.Policy{MaxAttempts: 3, Base: 500 * time.Millisecond, Cap: 4 * time.Second}

// Aggregator is the DEX Aggregator collaborator.
type Aggregator interface {
	Quote(network safegmx.NetworkKey, walletAddress string, sellBinding, buyBinding safegmx.TokenBinding, sellAmountRaw *big.Int, slippageBps int64) (safegmx.Quote, error)
}

// Config overrides the provider's defaults.
type Config struct {
	DefaultSlippageBps int64
	Retry              retry.Policy
}

func (c Config) withDefaults() Config {
	if c.DefaultSlippageBps == 0 {
		c.DefaultSlippageBps = DefaultSlippageBps
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = defaultRetryPolicy
	}
	return c
}

// Provider implements the Route Provider.
type Provider struct {
	cfg Config
	agg Aggregator
}

// New wires the DEX Aggregator collaborator.
func New(agg Aggregator, cfg Config) *Provider {
	return &Provider{cfg: cfg.withDefaults(), agg: agg}
}

// Quote obtains a swap route, retrying network and rate-limit errors
// with capped exponential backoff before surfacing SWAP_QUOTE_FAILED.
// slippageBps of 0 falls back to the configured default.
func (p *Provider) Quote(walletAddress string, network safegmx.NetworkKey, sellBinding, buyBinding safegmx.TokenBinding, sellAmountRaw *big.Int, slippageBps int64) (safegmx.Quote, error) {
	if slippageBps == 0 {
		slippageBps = p.cfg.DefaultSlippageBps
	}

	var quote safegmx.Quote
	err := retry.Do(context.Background(), p.cfg.Retry, isRetriable, func() error {
		q, err := p.agg.Quote(network, walletAddress, sellBinding, buyBinding, sellAmountRaw, slippageBps)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if err != nil {
		return safegmx.Quote{}, safegmx.WrapError(safegmx.CodeSwapQuoteFailed, "", "aggregator quote failed after retries", safegmx.Context{
			Service: "aggregator", Operation: "Quote", WalletAddress: walletAddress, NetworkKey: network,
		}, err)
	}
	return quote, nil
}

// isRetriable treats any TradeError by its own Retriable flag, and any
// other (transport-level) error as retriable, matching the
// "network and rate-limit errors are retriable" contract.
func isRetriable(err error) bool {
	if te, ok := err.(*safegmx.TradeError); ok {
		return te.Retriable
	}
	return true
}
