// Package safegmx implements the signal-to-trade pipeline and post-entry
// position monitor for multi-signature custodial wallets: ingestion,
// chain/wallet resolution, position sizing, swap routing, allowance
// management, multi-sig execution, and exit monitoring.
package safegmx

import (
	"math/big"
	"time"
)

// Side is which direction a Signal trades.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ChainId / NetworkKey are opaque identifiers round-tripped through the
// RPC Provider, Token Registry and Directory collaborators.
// The core never hardcodes chain-specific numerics outside of those
// collaborator implementations.
type NetworkKey string

// Signal is the immutable request that starts a Trade's lifecycle.
type Signal struct {
	SignalId      string
	Side          Side
	Symbol        string
	TP1           *big.Float
	TP2           *big.Float
	StopLoss      *big.Float
	EntryPrice    *big.Float
	Deadline      time.Time
	CallerId      string
	WalletAddress string
}

// Validate enforces the price-band invariant for the signal's side and
// that the deadline is strictly in the future.
func (s Signal) Validate(now time.Time) error {
	if s.StopLoss == nil || s.EntryPrice == nil || s.TP1 == nil || s.TP2 == nil {
		return newError(CodeInvalidPriceLevels, KindValidation, "missing price level", Context{})
	}

	var ok bool
	switch s.Side {
	case SideBuy:
		ok = s.StopLoss.Cmp(s.EntryPrice) < 0 &&
			s.EntryPrice.Cmp(s.TP1) < 0 &&
			s.TP1.Cmp(s.TP2) <= 0
	case SideSell:
		ok = s.TP2.Cmp(s.TP1) <= 0 &&
			s.TP1.Cmp(s.EntryPrice) < 0 &&
			s.EntryPrice.Cmp(s.StopLoss) < 0
	default:
		return newError(CodeInvalidSignalFormat, KindValidation, "unknown side", Context{})
	}
	if !ok {
		return newError(CodeInvalidPriceLevels, KindValidation, "price levels violate side ordering", Context{})
	}

	if !s.Deadline.After(now) {
		return newError(CodeSignalExpired, KindValidation, "deadline is not strictly in the future", Context{})
	}
	return nil
}

// WalletDeployment records one chain on which a caller's wallet is
// known to be deployed. Owned by the Directory collaborator; read-only
// to the core.
type WalletDeployment struct {
	CallerId      string
	WalletAddress string
	NetworkKey    NetworkKey
	Active        bool
	Status        string
}

// TokenSource identifies which resolver source produced a TokenBinding.
type TokenSource string

const (
	SourceKnown    TokenSource = "known"
	SourceRegistry TokenSource = "registry"
	SourceListing  TokenSource = "dex-listing"
)

// TokenBinding is a resolved (symbol, network, contract) triple, cached
// with a TTL by the Token/Chain Resolver.
type TokenBinding struct {
	Symbol          string
	NetworkKey      NetworkKey
	ContractAddress string
	Decimals        uint8
	IsNative        bool
	Source          TokenSource
	Verified        bool
}

// Balance is always expressed as a non-negative arbitrary-precision
// integer in the token's smallest unit.
type Balance struct {
	WalletAddress string
	NetworkKey    NetworkKey
	Token         TokenBinding
	Raw           *big.Int
}

// PositionPlan is the Position Sizer's output.
type PositionPlan struct {
	WalletAddress       string
	NetworkKey          NetworkKey
	SellBinding         TokenBinding
	BuyBinding          TokenBinding
	SellAmountRaw       *big.Int
	PercentageRequested int64 // basis points-free integer percent, 1-80
	PercentageEffective int64
	MinAmountRaw        *big.Int
	GasReserveRaw       *big.Int
	Rationale           string
}

// Quote is the DEX Aggregator's response; opaque to the core apart from
// Spender, which the Allowance Manager must grant.
type Quote struct {
	To               string
	Data             []byte
	Value            *big.Int
	GasHint          uint64
	Spender          string
	BuyAmountHintRaw *big.Int
}

// TradeState is the trade state alphabet:
// pending → entering → entered → (partially_exited)* → terminal.
type TradeState string

const (
	TradeStatePending         TradeState = "pending"
	TradeStateEntering        TradeState = "entering"
	TradeStateEntered         TradeState = "entered"
	TradeStatePartiallyExited TradeState = "partially_exited"
	TradeStateExited          TradeState = "exited"
	TradeStateStoppedOut      TradeState = "stopped_out"
	TradeStateExpired         TradeState = "expired"
	TradeStateFailed          TradeState = "failed"
)

// IsTerminal reports whether s is an absorbing state.
func (s TradeState) IsTerminal() bool {
	switch s {
	case TradeStateExited, TradeStateStoppedOut, TradeStateExpired, TradeStateFailed:
		return true
	default:
		return false
	}
}

// ExitKind enumerates why a position was closed.
type ExitKind string

const (
	ExitTP1           ExitKind = "TP1"
	ExitTP2           ExitKind = "TP2"
	ExitStopLoss      ExitKind = "STOP_LOSS"
	ExitTrailingStop  ExitKind = "TRAILING_STOP"
	ExitDeadline      ExitKind = "DEADLINE"
	ExitManual        ExitKind = "MANUAL"
)

// ExitEvent records one partial or full close of a Trade's position.
type ExitEvent struct {
	Kind                ExitKind
	Price               *big.Float
	AmountRaw           *big.Int
	PercentageOfPosition int64
	TxHash              string
	At                  time.Time
	PnlBase             *big.Float
}

// Trade is the central mutable record of the core.
type Trade struct {
	TradeId            string
	SignalId           string
	CallerId           string
	WalletAddress      string
	NetworkKey         NetworkKey
	SellBinding        TokenBinding
	BuyBinding         TokenBinding
	Side               Side
	TP1                *big.Float
	TP2                *big.Float
	StopLoss           *big.Float
	Deadline           time.Time
	EntryPriceExpected *big.Float

	State              TradeState
	EntryTxHash        string
	EntryFilledRaw     *big.Int
	EntryPriceObserved *big.Float
	TrailingHigh       *big.Float
	TrailingLow        *big.Float
	ExitEvents         []ExitEvent
	UpdatedAt          time.Time

	// GasLedger accumulates the gas cost of this trade's enter-swap and
	// exit-swap transactions; approval transactions are not recorded.
	GasLedger []GasLedgerEntry
}

// GasLedgerEntry is one on-chain step's gas cost, recorded so a trade's
// total execution cost can be reconstructed after the fact.
type GasLedgerEntry struct {
	Operation  string
	GasUsed    *big.Int
	GasPrice   *big.Int
	GasCostWei *big.Int
	TxHash     string
	At         time.Time
}

// ExitedPercentage sums PercentageOfPosition across all exit events.
func (t *Trade) ExitedPercentage() int64 {
	var total int64
	for _, e := range t.ExitEvents {
		total += e.PercentageOfPosition
	}
	return total
}

// Action is what an ExecutionRequest asks the executor to do.
type Action string

const (
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)

// Priority is the scheduler's dispatch-order class.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// ExecutionRequest is the scheduler's work unit.
type ExecutionRequest struct {
	TradeId   string
	Action    Action
	AmountRaw *big.Int
	Reason    string
	Priority  Priority

	// seq breaks ties within a priority class to preserve FIFO order;
	// set by the scheduler on Enqueue, never by callers.
	seq uint64
}
