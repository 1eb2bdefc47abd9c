// Package allowance implements the Allowance Manager: it
// ensures the wallet holds sufficient allowance, at swap time, to the
// canonical permit contract (if one is in use on that chain) and to the
// aggregator's quoted spender, issuing multi-sig approvals when
// insufficient and re-reading on chain before letting the swap proceed.
package allowance

import (
	"math/big"
	"time"

	safegmx "github.com/purvik6062/safegmx"
)

// settleDelay is the short post-confirmation delay (~2s) applied
// before re-reading allowance, to tolerate RPC state propagation.
const settleDelay = 2 * time.Second

// MaxAllowance is 2^256 - 1, the standing approval this package
// deliberately sets to amortise approval cost across trades.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// AllowanceReader is the subset of the RPC Provider collaborator
// the manager needs to read an ERC-20 allowance.
type AllowanceReader interface {
	Allowance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string) (*big.Int, error)
}

// Approver submits a multi-sig approval transaction and blocks until it
// is confirmed, mirroring the Multi-Signature Wallet Adapter's
// Execute(...).wait() contract.
type Approver interface {
	Approve(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string, amount *big.Int) (txHash string, err error)
}

// Config names the canonical permit contract per network, if one is in
// use there.
type Config struct {
	PermitContracts map[safegmx.NetworkKey]string
	SettleDelay     time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleDelay == 0 {
		c.SettleDelay = settleDelay
	}
	return c
}

// Manager implements the Allowance Manager.
type Manager struct {
	cfg      Config
	reader   AllowanceReader
	approver Approver
	sleep    func(time.Duration)
}

// New wires an AllowanceReader and Approver.
func New(cfg Config, reader AllowanceReader, approver Approver) *Manager {
	return &Manager{cfg: cfg.withDefaults(), reader: reader, approver: approver, sleep: time.Sleep}
}

// EnsureAllowances implements the algorithm for every
// required spender: the permit contract (if configured for network),
// then quote.Spender.
func (m *Manager) EnsureAllowances(walletAddress string, network safegmx.NetworkKey, sellBinding safegmx.TokenBinding, quote safegmx.Quote, sellAmountRaw *big.Int) error {
	if sellBinding.IsNative {
		return nil
	}

	spenders := make([]string, 0, 2)
	if permit := m.cfg.PermitContracts[network]; permit != "" {
		spenders = append(spenders, permit)
	}
	spenders = append(spenders, quote.Spender)

	for _, spender := range spenders {
		if err := m.ensureSpender(walletAddress, network, sellBinding, spender, sellAmountRaw); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) ensureSpender(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string, sellAmountRaw *big.Int) error {
	current, err := m.reader.Allowance(walletAddress, network, token, spender)
	if err != nil {
		return safegmx.WrapError(safegmx.CodeRPCConnectionFailed, "", "could not read allowance", safegmx.Context{
			Service: "allowance", Operation: "EnsureAllowances", WalletAddress: walletAddress, NetworkKey: network,
		}, err)
	}
	if current != nil && current.Cmp(sellAmountRaw) >= 0 {
		return nil
	}

	if _, err := m.approver.Approve(walletAddress, network, token, spender, MaxAllowance); err != nil {
		return safegmx.WrapError(safegmx.CodeSwapExecutionFailed, "", "approval transaction failed", safegmx.Context{
			Service: "allowance", Operation: "EnsureAllowances", WalletAddress: walletAddress, NetworkKey: network,
		}, err)
	}

	m.sleep(m.cfg.SettleDelay)

	reread, err := m.reader.Allowance(walletAddress, network, token, spender)
	if err != nil {
		return safegmx.WrapError(safegmx.CodeRPCConnectionFailed, "", "could not re-read allowance after approval", safegmx.Context{
			Service: "allowance", Operation: "EnsureAllowances", WalletAddress: walletAddress, NetworkKey: network,
		}, err)
	}
	if reread == nil || reread.Cmp(sellAmountRaw) < 0 {
		return safegmx.NewError(safegmx.CodeSwapExecutionFailed, "", "allowance still insufficient after approval confirmed", safegmx.Context{
			Service: "allowance", Operation: "EnsureAllowances", WalletAddress: walletAddress, NetworkKey: network,
		})
	}
	return nil
}
