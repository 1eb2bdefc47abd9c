package allowance

import (
	"errors"
	"math/big"
	"testing"
	"time"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	calls  int
	values []*big.Int // returned in order across calls; last value repeats
	err    error
}

func (f *fakeReader) Allowance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	if idx >= len(f.values) {
		idx = len(f.values) - 1
	}
	f.calls++
	return f.values[idx], nil
}

type fakeApprover struct {
	approved bool
	err      error
}

func (f *fakeApprover) Approve(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string, amount *big.Int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.approved = true
	return "0xapprovetx", nil
}

func noSleep(time.Duration) {}

func TestEnsureAllowances_SkipsWhenAlreadySufficient(t *testing.T) {
	reader := &fakeReader{values: []*big.Int{big.NewInt(1_000_000)}}
	approver := &fakeApprover{}
	m := New(Config{}, reader, approver)
	m.sleep = noSleep

	quote := safegmx.Quote{Spender: "0xSpender"}
	err := m.EnsureAllowances("0xWallet", "arbitrum", safegmx.TokenBinding{}, quote, big.NewInt(500_000))
	require.NoError(t, err)
	assert.False(t, approver.approved)
}

func TestEnsureAllowances_ApprovesWhenInsufficient(t *testing.T) {
	reader := &fakeReader{values: []*big.Int{big.NewInt(0), MaxAllowance}}
	approver := &fakeApprover{}
	m := New(Config{}, reader, approver)
	m.sleep = noSleep

	quote := safegmx.Quote{Spender: "0xSpender"}
	err := m.EnsureAllowances("0xWallet", "arbitrum", safegmx.TokenBinding{}, quote, big.NewInt(500_000))
	require.NoError(t, err)
	assert.True(t, approver.approved)
}

func TestEnsureAllowances_StillInsufficientAfterApproval(t *testing.T) {
	reader := &fakeReader{values: []*big.Int{big.NewInt(0), big.NewInt(1)}}
	approver := &fakeApprover{}
	m := New(Config{}, reader, approver)
	m.sleep = noSleep

	quote := safegmx.Quote{Spender: "0xSpender"}
	err := m.EnsureAllowances("0xWallet", "arbitrum", safegmx.TokenBinding{}, quote, big.NewInt(500_000))
	require.Error(t, err)
	te, ok := err.(*safegmx.TradeError)
	require.True(t, ok)
	assert.Equal(t, safegmx.CodeSwapExecutionFailed, te.Code)
}

func TestEnsureAllowances_SkipsNativeAsset(t *testing.T) {
	reader := &fakeReader{err: errors.New("should not be called")}
	m := New(Config{}, reader, &fakeApprover{})

	quote := safegmx.Quote{Spender: "0xSpender"}
	err := m.EnsureAllowances("0xWallet", "arbitrum", safegmx.TokenBinding{IsNative: true}, quote, big.NewInt(500_000))
	require.NoError(t, err)
}

func TestEnsureAllowances_ChecksPermitAndSpender(t *testing.T) {
	reader := &fakeReader{values: []*big.Int{big.NewInt(0), MaxAllowance}}
	approver := &fakeApprover{}
	m := New(Config{PermitContracts: map[safegmx.NetworkKey]string{"arbitrum": "0xPermit"}}, reader, approver)
	m.sleep = noSleep

	quote := safegmx.Quote{Spender: "0xSpender"}
	err := m.EnsureAllowances("0xWallet", "arbitrum", safegmx.TokenBinding{}, quote, big.NewInt(500_000))
	require.NoError(t, err)
}
