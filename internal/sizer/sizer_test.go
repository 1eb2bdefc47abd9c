package sizer

import (
	"math/big"
	"testing"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBalance struct {
	raw *big.Int
	err error
}

func (f fakeBalance) Balance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding) (*big.Int, error) {
	return f.raw, f.err
}

type fakeMinAmount struct{ min *big.Int }

func (f fakeMinAmount) MinSellAmountRaw(symbol string, network safegmx.NetworkKey) (*big.Int, error) {
	return f.min, nil
}

var usdc = safegmx.TokenBinding{Symbol: "USDC", NetworkKey: "arbitrum", Decimals: 6}
var foo = safegmx.TokenBinding{Symbol: "FOO", NetworkKey: "arbitrum", Decimals: 18}

func TestSizePosition_ScenarioA_HappyPathBuy(t *testing.T) {
	bal := fakeBalance{raw: big.NewInt(1_000_000_000)} // 1000.00 USDC, 6dp
	s := New(Config{StableSymbols: map[string]bool{"USDC": true}}, bal, fakeMinAmount{min: big.NewInt(0)})

	plan, err := s.SizePosition("0xAAAA", "arbitrum", usdc, foo, 20)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200_000_000), plan.SellAmountRaw)
	assert.Equal(t, int64(20), plan.PercentageEffective)
}

func TestSizePosition_InvalidPercentage(t *testing.T) {
	s := New(Config{}, fakeBalance{raw: big.NewInt(1000)}, fakeMinAmount{min: big.NewInt(0)})

	_, err := s.SizePosition("0xAAAA", "arbitrum", usdc, foo, 0)
	require.NoError(t, err)
	// 0 falls back to default 20%, which is legal; use an out-of-range value instead.
	_, err = s.SizePosition("0xAAAA", "arbitrum", usdc, foo, 90)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodeInvalidPositionPercentage, te.Code)
}

func TestSizePosition_ScenarioC_PositionTooSmall(t *testing.T) {
	bal := fakeBalance{raw: big.NewInt(5_000)} // $0.005
	s := New(Config{StableSymbols: map[string]bool{"USDC": true}}, bal, fakeMinAmount{min: big.NewInt(0)})

	_, err := s.SizePosition("0xAAAA", "arbitrum", usdc, foo, 20)
	require.Error(t, err)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodePositionSizeTooSmall, te.Code)
}

func TestSizePosition_NativeReservesGas(t *testing.T) {
	native := safegmx.TokenBinding{Symbol: "ETH", NetworkKey: "arbitrum", Decimals: 18, IsNative: true}
	gasReserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	balance := new(big.Int).Mul(big.NewInt(1000), gasReserve) // 1 ETH
	s := New(Config{NativeGasReserveRaw: gasReserve}, fakeBalance{raw: balance}, fakeMinAmount{min: big.NewInt(0)})

	plan, err := s.SizePosition("0xAAAA", "arbitrum", native, foo, 50)
	require.NoError(t, err)
	expectedAvailable := new(big.Int).Sub(balance, gasReserve)
	expectedSell := new(big.Int).Div(new(big.Int).Mul(expectedAvailable, big.NewInt(50)), big.NewInt(100))
	assert.Equal(t, expectedSell, plan.SellAmountRaw)
	assert.Equal(t, gasReserve, plan.GasReserveRaw)
}

func TestSizePosition_AggregatorMinimumWins(t *testing.T) {
	bal := fakeBalance{raw: big.NewInt(1_000_000_000)}
	s := New(Config{StableSymbols: map[string]bool{"USDC": true}}, bal, fakeMinAmount{min: big.NewInt(500_000_000)})

	_, err := s.SizePosition("0xAAAA", "arbitrum", usdc, foo, 20)
	require.Error(t, err)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodePositionSizeTooSmall, te.Code)
}
