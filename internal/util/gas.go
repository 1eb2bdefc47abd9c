package util

import (
	"fmt"
	"math/big"

	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

// ExtractGasCost parses a receipt's GasUsed/EffectiveGasPrice strings
// and returns their product in wei, the figure the executor folds into
// a Trade's gas ledger.
func ExtractGasCost(receipt *chaintypes.TxReceipt) (*big.Int, error) {
	gasUsed, ok := new(big.Int).SetString(receipt.GasUsed, 10)
	if !ok {
		return nil, fmt.Errorf("parse gasUsed %q", receipt.GasUsed)
	}

	gasPrice, ok := new(big.Int).SetString(receipt.EffectiveGasPrice, 10)
	if !ok {
		return nil, fmt.Errorf("parse effectiveGasPrice %q", receipt.EffectiveGasPrice)
	}

	return new(big.Int).Mul(gasUsed, gasPrice), nil
}

// ReceiptSucceeded reports whether a receipt's status string indicates
// success ("1"). Any other value, including absent status on very old
// chains, is treated as failure.
func ReceiptSucceeded(receipt *chaintypes.TxReceipt) bool {
	return receipt.Status == "1"
}
