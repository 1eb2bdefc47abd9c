// Package executor implements the Trade Executor: for a
// single ExecutionRequest it quotes a route, ensures allowances, builds
// and signs a multi-sig transaction carrying the swap call, chooses a
// gas price, broadcasts, awaits the receipt, and recovers the filled
// amount from the receipt's Transfer logs. Concurrency across trades is
// the scheduler's job; the executor itself is stateless beyond the
// per-trade lease the scheduler already holds while Execute runs.
package executor

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/util"
	"github.com/purvik6062/safegmx/pkg/safewallet"
	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

// Quoter is the Route Provider collaborator.
type Quoter interface {
	Quote(walletAddress string, network safegmx.NetworkKey, sellBinding, buyBinding safegmx.TokenBinding, sellAmountRaw *big.Int, slippageBps int64) (safegmx.Quote, error)
}

// AllowanceEnsurer is the Allowance Manager collaborator.
type AllowanceEnsurer interface {
	EnsureAllowances(walletAddress string, network safegmx.NetworkKey, sellBinding safegmx.TokenBinding, quote safegmx.Quote, sellAmountRaw *big.Int) error
}

// FeeReader is the subset of the RPC Provider the executor needs to
// choose a gas price.
type FeeReader interface {
	FeeData(network safegmx.NetworkKey) (chaintypes.FeeData, error)
}

// Wallet is the per-(wallet,chain) Multi-Signature Wallet Adapter
// surface the executor drives: NewTx/Sign/Execute, using
// pkg/safewallet's wire types directly.
type Wallet interface {
	NewTx(calls []safewallet.Call) (safewallet.UnsignedTx, error)
	Sign(unsigned safewallet.UnsignedTx) (safewallet.SignedTx, error)
	Execute(signed safewallet.SignedTx, gasPrice *big.Int) (safewallet.PendingTx, error)
}

// WalletResolver returns the shared Wallet instance for a (wallet,
// chain) pair.
type WalletResolver interface {
	Wallet(walletAddress string, network safegmx.NetworkKey) (Wallet, error)
}

// Config carries the startup-only, policy-affecting options of
// the configuration table that the executor consults.
type Config struct {
	GasBumpPercent int64    // default 20
	GasFloorWei    *big.Int // per-chain clamp floor, nil disables it
}

func (c Config) withDefaults() Config {
	if c.GasBumpPercent == 0 {
		c.GasBumpPercent = 20
	}
	return c
}

// Executor implements safegmx.Executor.
type Executor struct {
	cfg        Config
	quoter     Quoter
	allowances AllowanceEnsurer
	fees       FeeReader
	wallets    WalletResolver
}

// New wires every collaborator the executor depends on.
func New(cfg Config, quoter Quoter, allowances AllowanceEnsurer, fees FeeReader, wallets WalletResolver) *Executor {
	return &Executor{cfg: cfg.withDefaults(), quoter: quoter, allowances: allowances, fees: fees, wallets: wallets}
}

// Execute implements safegmx.Executor, dispatching to the enter or
// exit leg depending on req.Action; both legs share the same
// quote→allowances→build→sign→broadcast→await pipeline with sell/buy
// bindings swapped.
func (e *Executor) Execute(trade *safegmx.Trade, req safegmx.ExecutionRequest) (string, *big.Int, error) {
	switch req.Action {
	case safegmx.ActionEnter:
		return e.run(trade, trade.SellBinding, trade.BuyBinding, req.AmountRaw, "enter-swap")
	case safegmx.ActionExit:
		return e.run(trade, trade.BuyBinding, trade.SellBinding, req.AmountRaw, "exit-swap")
	default:
		return "", nil, safegmx.NewError(safegmx.CodeConfigurationError, "", "unknown execution action", safegmx.Context{
			Service: "executor", Operation: "Execute", TradeId: trade.TradeId,
		})
	}
}

func (e *Executor) run(trade *safegmx.Trade, sellBinding, buyBinding safegmx.TokenBinding, amountRaw *big.Int, op string) (string, *big.Int, error) {
	ctx := safegmx.Context{Service: "executor", Operation: op, TradeId: trade.TradeId, WalletAddress: trade.WalletAddress, NetworkKey: trade.NetworkKey}

	quote, err := e.quoter.Quote(trade.WalletAddress, trade.NetworkKey, sellBinding, buyBinding, amountRaw, 0)
	if err != nil {
		return "", nil, err
	}

	if err := e.allowances.EnsureAllowances(trade.WalletAddress, trade.NetworkKey, sellBinding, quote, amountRaw); err != nil {
		return "", nil, err
	}

	wallet, err := e.wallets.Wallet(trade.WalletAddress, trade.NetworkKey)
	if err != nil {
		return "", nil, safegmx.WrapError(safegmx.CodeRPCConnectionFailed, "", "could not resolve wallet adapter", ctx, err)
	}

	unsigned, err := wallet.NewTx([]safewallet.Call{{
		To:    common.HexToAddress(quote.To),
		Value: quote.Value,
		Data:  quote.Data,
	}})
	if err != nil {
		return "", nil, safegmx.WrapError(safegmx.CodeSwapExecutionFailed, "", "could not build wallet transaction", ctx, err)
	}

	signed, err := wallet.Sign(unsigned)
	if err != nil {
		return "", nil, safegmx.WrapError(safegmx.CodeSwapExecutionFailed, "", "could not sign wallet transaction", ctx, err)
	}

	gasPrice, err := e.chooseGasPrice(trade.NetworkKey)
	if err != nil {
		return "", nil, err
	}

	pending, err := wallet.Execute(signed, gasPrice)
	if err != nil {
		return "", nil, safegmx.WrapError(safegmx.CodeSwapExecutionFailed, "", "broadcast failed", ctx, err)
	}

	receipt, err := pending.Wait()
	if err != nil {
		return "", nil, safegmx.WrapError(safegmx.CodeTransactionTimeout, "", "timed out waiting for receipt", ctx, err)
	}
	if !util.ReceiptSucceeded(receipt) {
		return "", nil, safegmx.NewError(safegmx.CodeSwapExecutionFailed, "", "receipt status indicates failure", ctx)
	}

	filled := safewallet.DecodeTransferAmount(receipt, common.HexToAddress(buyBinding.ContractAddress), common.HexToAddress(trade.WalletAddress))
	if filled == nil {
		filled = quote.BuyAmountHintRaw
	}

	if gasCost, gasErr := util.ExtractGasCost(receipt); gasErr == nil {
		gasUsed, _ := new(big.Int).SetString(receipt.GasUsed, 10)
		gasPriceUsed, _ := new(big.Int).SetString(receipt.EffectiveGasPrice, 10)
		trade.GasLedger = append(trade.GasLedger, safegmx.GasLedgerEntry{
			Operation:  op,
			GasUsed:    gasUsed,
			GasPrice:   gasPriceUsed,
			GasCostWei: gasCost,
			TxHash:     pending.TxHash.Hex(),
			At:         time.Now(),
		})
	}

	return pending.TxHash.Hex(), filled, nil
}

// chooseGasPrice prefers live EIP-1559
// fee data; otherwise bump the legacy gas price by cfg.GasBumpPercent
// and clamp to the configured floor.
func (e *Executor) chooseGasPrice(network safegmx.NetworkKey) (*big.Int, error) {
	fee, err := e.fees.FeeData(network)
	if err != nil {
		return nil, safegmx.WrapError(safegmx.CodeRPCConnectionFailed, "", "could not read fee data", safegmx.Context{
			Service: "executor", Operation: "chooseGasPrice", NetworkKey: network,
		}, err)
	}

	var price *big.Int
	if fee.SupportsDynamicFee() {
		price = new(big.Int).Set(fee.SuggestedFeeCap)
	} else {
		bumpBps := (100 + e.cfg.GasBumpPercent) * 100
		price = util.ApplyBasisPoints(fee.GasPrice, bumpBps)
	}

	if e.cfg.GasFloorWei != nil && price.Cmp(e.cfg.GasFloorWei) < 0 {
		price = new(big.Int).Set(e.cfg.GasFloorWei)
	}
	return price, nil
}
