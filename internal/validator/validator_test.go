package validator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	safegmx "github.com/purvik6062/safegmx"
)

type fakeChainReader struct {
	hasCode       bool
	hasCodeErr    error
	owners        []string
	ownersErr     error
	threshold     int
	thresholdErr  error
	nativeBalance *big.Int
	nativeErr     error

	hasCodeCalls int
}

func (f *fakeChainReader) HasCode(walletAddress string, network safegmx.NetworkKey) (bool, error) {
	f.hasCodeCalls++
	return f.hasCode, f.hasCodeErr
}

func (f *fakeChainReader) Owners(walletAddress string, network safegmx.NetworkKey) ([]string, error) {
	return f.owners, f.ownersErr
}

func (f *fakeChainReader) Threshold(walletAddress string, network safegmx.NetworkKey) (int, error) {
	return f.threshold, f.thresholdErr
}

func (f *fakeChainReader) NativeBalance(walletAddress string, network safegmx.NetworkKey) (*big.Int, error) {
	return f.nativeBalance, f.nativeErr
}

func activeDeployment(wallet string, network safegmx.NetworkKey) []safegmx.WalletDeployment {
	return []safegmx.WalletDeployment{{WalletAddress: wallet, NetworkKey: network, Active: true}}
}

func healthyChain() *fakeChainReader {
	return &fakeChainReader{
		hasCode:       true,
		owners:        []string{"0x1", "0x2", "0x3"},
		threshold:     2,
		nativeBalance: big.NewInt(1_000_000_000_000_000_000),
	}
}

func TestValidateWallet_HappyPath(t *testing.T) {
	chain := healthyChain()
	v := New(chain, nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum"))
	assert.NoError(t, err)
}

func TestValidateWallet_NoActiveDirectoryEntryIsSafeNotDeployed(t *testing.T) {
	v := New(healthyChain(), nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", nil)
	require.Error(t, err)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodeSafeNotDeployed, te.Code)
}

func TestValidateWallet_DirectoryEntryOnWrongNetworkIsSafeNotDeployed(t *testing.T) {
	v := New(healthyChain(), nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "optimism"))
	require.Error(t, err)
	te := err.(*safegmx.TradeError)
	assert.Equal(t, safegmx.CodeSafeNotDeployed, te.Code)
}

func TestValidateWallet_NoOnChainCodeIsSafeNotDeployed(t *testing.T) {
	chain := healthyChain()
	chain.hasCode = false
	v := New(chain, nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum"))
	require.Error(t, err)
	te := err.(*safegmx.TradeError)
	assert.Equal(t, safegmx.CodeSafeNotDeployed, te.Code)
}

func TestValidateWallet_NoOwnersIsInvalidConfiguration(t *testing.T) {
	chain := healthyChain()
	chain.owners = nil
	v := New(chain, nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum"))
	require.Error(t, err)
	te := err.(*safegmx.TradeError)
	assert.Equal(t, safegmx.CodeSafeInvalidConfiguration, te.Code)
}

func TestValidateWallet_ThresholdBelowOneIsInvalidConfiguration(t *testing.T) {
	chain := healthyChain()
	chain.threshold = 0
	v := New(chain, nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum"))
	require.Error(t, err)
	te := err.(*safegmx.TradeError)
	assert.Equal(t, safegmx.CodeSafeInvalidConfiguration, te.Code)
}

func TestValidateWallet_ZeroNativeBalanceIsNonFatal(t *testing.T) {
	chain := healthyChain()
	chain.nativeBalance = big.NewInt(0)
	v := New(chain, nil)

	err := v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum"))
	assert.NoError(t, err)
}

func TestValidateWallet_CachesSuccessWithinTTL(t *testing.T) {
	chain := healthyChain()
	v := New(chain, nil)
	active := activeDeployment("0xwallet", "arbitrum")

	require.NoError(t, v.ValidateWallet("0xwallet", "arbitrum", active))
	require.NoError(t, v.ValidateWallet("0xwallet", "arbitrum", active))

	assert.Equal(t, 1, chain.hasCodeCalls, "second call should be served from cache, not hit the chain again")
}

func TestValidateWallet_InvalidateForcesRecheck(t *testing.T) {
	chain := healthyChain()
	v := New(chain, nil)
	active := activeDeployment("0xwallet", "arbitrum")

	require.NoError(t, v.ValidateWallet("0xwallet", "arbitrum", active))
	v.Invalidate("0xwallet", "arbitrum")
	require.NoError(t, v.ValidateWallet("0xwallet", "arbitrum", active))

	assert.Equal(t, 2, chain.hasCodeCalls)
}

func TestValidateWallet_DifferentNetworksAreCachedIndependently(t *testing.T) {
	chain := healthyChain()
	v := New(chain, nil)

	require.NoError(t, v.ValidateWallet("0xwallet", "arbitrum", activeDeployment("0xwallet", "arbitrum")))
	require.NoError(t, v.ValidateWallet("0xwallet", "optimism", activeDeployment("0xwallet", "optimism")))

	assert.Equal(t, 2, chain.hasCodeCalls)
}
