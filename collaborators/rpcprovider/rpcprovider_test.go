package rpcprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	safegmx "github.com/purvik6062/safegmx"
)

func TestABIsParse(t *testing.T) {
	require.NotEmpty(t, erc20ABI.Methods)
	require.NotEmpty(t, safeABI.Methods)
	_, ok := erc20ABI.Methods["approve"]
	assert.True(t, ok)
	_, ok = safeABI.Methods["execTransaction"]
	assert.True(t, ok)
}

func TestEthclientFor_UnsupportedNetwork(t *testing.T) {
	p := New(nil, nil, nil)
	_, err := p.ethclientFor(safegmx.NetworkKey("nowhere"))
	require.Error(t, err)

	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodeUnsupportedNetwork, te.Code)
}

// Balance, Allowance, Approve, FeeData, and Wallet all need a live
// *ethclient.Client (a concrete type with no usable fake), so this file
// does not test them.
