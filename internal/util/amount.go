package util

import (
	"fmt"
	"math/big"
)

// BasisPointsDenominator is the denominator percentages and slippage
// tolerances are expressed against (1 bp = 1/10000).
const BasisPointsDenominator = 10_000

// RawToDecimal converts a token's smallest-unit integer amount into a
// human decimal string at the given number of decimals, using
// big.Float for the precision raw/decimal round-tripping needs.
func RawToDecimal(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
	return value.Text('f', int(decimals))
}

// DecimalToRaw converts a human decimal amount string into a token's
// smallest-unit integer representation, truncating any precision past
// decimals rather than rounding, so repeated conversions never inflate
// an amount above what was requested.
func DecimalToRaw(decimal string, decimals uint8) (*big.Int, error) {
	value, ok := new(big.Float).SetPrec(256).SetString(decimal)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", decimal)
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(value, scale)

	raw, _ := scaled.Int(nil)
	return raw, nil
}

// ApplyBasisPoints truncates amount by bps/10000, used for slippage
// tolerances and sizing percentages. It never rounds up,
// so the result never exceeds the mathematically exact share.
func ApplyBasisPoints(amount *big.Int, bps int64) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(amount, big.NewInt(bps))
	return product.Div(product, big.NewInt(BasisPointsDenominator))
}

// SubtractBasisPoints returns amount reduced by bps/10000, e.g. the
// minimum-out amount after applying a slippage tolerance.
func SubtractBasisPoints(amount *big.Int, bps int64) *big.Int {
	reduction := ApplyBasisPoints(amount, bps)
	return new(big.Int).Sub(amount, reduction)
}
