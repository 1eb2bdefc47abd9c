// Package sizer implements the Position Sizer: reads a
// wallet's base-stablecoin balance, reserves gas when the base asset is
// native, applies minimum-amount and maximum-percentage policy, and
// emits a concrete PositionPlan. It requests no quotes from the
// aggregator; it reads only the chain (via BalanceReader) and the
// aggregator's advisory per-token minimum (via MinAmountSource).
package sizer

import (
	"fmt"
	"math/big"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/util"
)

// BalanceReader is the subset of the RPC Provider collaborator the sizer needs to read a balance in a token's smallest unit.
type BalanceReader interface {
	Balance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding) (*big.Int, error)
}

// MinAmountSource is the DEX Aggregator's advisory per-token minimum.
type MinAmountSource interface {
	MinSellAmountRaw(symbol string, network safegmx.NetworkKey) (*big.Int, error)
}

// Config carries the startup-only policy fields of the
// configuration table that the sizer consults.
type Config struct {
	PositionPercentage    int64 // default 20
	MaxPositionPercentage int64 // default 80
	MinUsdAmount          float64 // default 0.01
	NativeGasReserveRaw   *big.Int // default 10^15 (0.001 @ 18dp)

	// StableSymbols names the symbols the sizer treats as 1:1 USD when
	// enforcing MinUsdAmount; for non-stable base tokens, no USD
	// minimum is enforced here.
	StableSymbols map[string]bool
}

func (c Config) withDefaults() Config {
	if c.MaxPositionPercentage == 0 {
		c.MaxPositionPercentage = 80
	}
	if c.MinUsdAmount == 0 {
		c.MinUsdAmount = 0.01
	}
	if c.NativeGasReserveRaw == nil {
		c.NativeGasReserveRaw = new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	}
	return c
}

// Sizer implements safegmx.Sizer.
type Sizer struct {
	cfg     Config
	balance BalanceReader
	minAmt  MinAmountSource
}

// New wires a BalanceReader and the aggregator's MinAmountSource.
func New(cfg Config, balance BalanceReader, minAmt MinAmountSource) *Sizer {
	return &Sizer{cfg: cfg.withDefaults(), balance: balance, minAmt: minAmt}
}

func newErr(code safegmx.ErrorCode, recommendation string, walletAddress string, network safegmx.NetworkKey) error {
	return safegmx.NewError(code, "", recommendation, safegmx.Context{
		Service: "sizer", Operation: "SizePosition", WalletAddress: walletAddress, NetworkKey: network,
	})
}

// SizePosition implements safegmx.Sizer. percentRequested of 0 falls
// back to cfg.PositionPercentage (defaulting to 20).
func (s *Sizer) SizePosition(walletAddress string, network safegmx.NetworkKey, sellBinding, buyBinding safegmx.TokenBinding, percentRequested int64) (safegmx.PositionPlan, error) {
	pct := percentRequested
	if pct == 0 {
		pct = s.cfg.PositionPercentage
		if pct == 0 {
			pct = 20
		}
	}
	if pct < 1 || pct > 80 {
		return safegmx.PositionPlan{}, newErr(safegmx.CodeInvalidPositionPercentage, fmt.Sprintf("percentRequested must be in [1, 80], got %d", pct), walletAddress, network)
	}
	if s.cfg.MaxPositionPercentage > 0 && pct > s.cfg.MaxPositionPercentage {
		return safegmx.PositionPlan{}, newErr(safegmx.CodePositionSizeTooLarge, fmt.Sprintf("percentRequested %d exceeds configured cap %d", pct, s.cfg.MaxPositionPercentage), walletAddress, network)
	}

	balance, err := s.balance.Balance(walletAddress, network, sellBinding)
	if err != nil {
		return safegmx.PositionPlan{}, safegmx.WrapError(safegmx.CodeInsufficientStablecoinBalance, "", "could not read balance", safegmx.Context{
			Service: "sizer", Operation: "SizePosition", WalletAddress: walletAddress, NetworkKey: network,
		}, err)
	}
	if balance == nil {
		balance = big.NewInt(0)
	}

	gasReserve := big.NewInt(0)
	if sellBinding.IsNative {
		gasReserve = new(big.Int).Set(s.cfg.NativeGasReserveRaw)
	}

	available := new(big.Int).Sub(balance, gasReserve)
	if available.Sign() < 0 {
		available = big.NewInt(0)
	}

	sellAmount := util.ApplyBasisPoints(available, pct*100)

	minAmountRaw, err := s.minimumRaw(sellBinding, network)
	if err != nil {
		return safegmx.PositionPlan{}, err
	}

	if sellAmount.Sign() <= 0 || sellAmount.Cmp(minAmountRaw) < 0 {
		return safegmx.PositionPlan{}, newErr(safegmx.CodePositionSizeTooSmall,
			fmt.Sprintf("sell amount %s raw is below the minimum %s raw", sellAmount.String(), minAmountRaw.String()),
			walletAddress, network)
	}

	effectivePct := pct
	rationale := "sized from balance minus gas reserve"
	if balance.Sign() > 0 {
		effectivePct = new(big.Int).Div(new(big.Int).Mul(sellAmount, big.NewInt(100)), balance).Int64()
		if pct-effectivePct > 10 {
			rationale = "capital efficiency warning: effective percentage is more than 10 points below the requested percentage"
		}
	}

	return safegmx.PositionPlan{
		WalletAddress:       walletAddress,
		NetworkKey:          network,
		SellBinding:         sellBinding,
		BuyBinding:          buyBinding,
		SellAmountRaw:       sellAmount,
		PercentageRequested: pct,
		PercentageEffective: effectivePct,
		MinAmountRaw:        minAmountRaw,
		GasReserveRaw:       gasReserve,
		Rationale:           rationale,
	}, nil
}

// minimumRaw combines the stablecoin USD floor with the aggregator's
// per-token advisory minimum, returning the larger of the two so the
// rejection message can quote it back.
func (s *Sizer) minimumRaw(sellBinding safegmx.TokenBinding, network safegmx.NetworkKey) (*big.Int, error) {
	usdMin := big.NewInt(0)
	if s.cfg.StableSymbols[sellBinding.Symbol] {
		usdMin, _ = util.DecimalToRaw(fmt.Sprintf("%.18f", s.cfg.MinUsdAmount), sellBinding.Decimals)
	}

	aggMin := big.NewInt(0)
	if s.minAmt != nil {
		m, err := s.minAmt.MinSellAmountRaw(sellBinding.Symbol, network)
		if err == nil && m != nil {
			aggMin = m
		}
	}

	if usdMin.Cmp(aggMin) >= 0 {
		return usdMin, nil
	}
	return aggMin, nil
}
