package util

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawToDecimal(t *testing.T) {
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.500000000000000000", RawToDecimal(raw, 18))
}

func TestDecimalToRaw_RoundTrip(t *testing.T) {
	raw, err := DecimalToRaw("1.5", 18)
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, expected, raw)

	back := RawToDecimal(raw, 18)
	assert.Equal(t, "1.500000000000000000", back)
}

func TestDecimalToRaw_TruncatesExtraPrecision(t *testing.T) {
	raw, err := DecimalToRaw("1.23456789", 2)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(123), raw)
}

func TestDecimalToRaw_Invalid(t *testing.T) {
	_, err := DecimalToRaw("not-a-number", 18)
	assert.Error(t, err)
}

func TestApplyBasisPoints(t *testing.T) {
	amount := big.NewInt(1_000_000)
	assert.Equal(t, big.NewInt(50_000), ApplyBasisPoints(amount, 500)) // 5%
}

func TestSubtractBasisPoints(t *testing.T) {
	amount := big.NewInt(1_000_000)
	assert.Equal(t, big.NewInt(950_000), SubtractBasisPoints(amount, 500)) // 5% slippage
}
