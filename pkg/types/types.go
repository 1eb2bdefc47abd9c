// Package types holds the small set of wire-level types shared between
// pkg/contractclient, pkg/txlistener and pkg/safewallet. It intentionally
// knows nothing about trading domain concepts (Signal, Trade, ...); those
// live in the root safegmx package.
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxSendType selects how a contract-bound transaction is constructed.
// Standard covers ordinary EOA-style calls; the orchestrator only ever
// uses Standard today, but the alphabet is kept open for collaborator
// adapters that need e.g. raw pre-signed payloads.
type TxSendType int

const (
	Standard TxSendType = iota
	Raw
)

// TxReceipt mirrors the subset of an Ethereum transaction receipt the
// core cares about. Numeric fields are kept as strings deliberately:
// different RPC providers return status/gas fields in different shapes
// (hex string, decimal string, number), and normalizing them to a single
// string representation at this layer means every consumer parses the
// same way instead of re-deriving provider quirks.
type TxReceipt struct {
	TxHash            common.Hash
	BlockNumber       string
	Status            string
	GasUsed           string
	EffectiveGasPrice string
	Logs              []Log
}

// Log is a minimal event log entry, enough to let ParseReceipt-style
// helpers recover ERC-20 Transfer amounts and similar.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// FeeData is the subset of eth_feeHistory / eth_gasPrice the executor
// needs to choose a gas price.
type FeeData struct {
	GasPrice             *big.Int // legacy gas price, always populated
	SuggestedTip         *big.Int // EIP-1559 priority fee, nil if unsupported
	SuggestedFeeCap      *big.Int // EIP-1559 max fee, nil if unsupported
}

// SupportsDynamicFee reports whether the chain quoted EIP-1559 style fees.
func (f FeeData) SupportsDynamicFee() bool {
	return f.SuggestedTip != nil && f.SuggestedFeeCap != nil
}
