package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

func TestExtractGasCost(t *testing.T) {
	receipt := &chaintypes.TxReceipt{GasUsed: "21000", EffectiveGasPrice: "1000000000"}
	cost, err := ExtractGasCost(receipt)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(21_000_000_000_000), cost)
}

func TestExtractGasCost_Invalid(t *testing.T) {
	receipt := &chaintypes.TxReceipt{GasUsed: "not-a-number", EffectiveGasPrice: "1"}
	_, err := ExtractGasCost(receipt)
	assert.Error(t, err)
}

func TestReceiptSucceeded(t *testing.T) {
	assert.True(t, ReceiptSucceeded(&chaintypes.TxReceipt{Status: "1"}))
	assert.False(t, ReceiptSucceeded(&chaintypes.TxReceipt{Status: "0"}))
}
