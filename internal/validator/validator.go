// Package validator implements the Wallet Validator:
// confirms directory state, on-chain deployment, and owner/threshold
// configuration for a multi-signature wallet, with a short TTL cache
// keyed by (walletAddress, networkKey).
package validator

import (
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/cache"
)

const (
	cacheTTL      = 2 * time.Minute
	cacheCapacity = 4096
)

// ChainReader is the subset of the RPC Provider collaborator the validator needs.
type ChainReader interface {
	HasCode(walletAddress string, network safegmx.NetworkKey) (bool, error)
	Owners(walletAddress string, network safegmx.NetworkKey) ([]string, error)
	Threshold(walletAddress string, network safegmx.NetworkKey) (int, error)
	NativeBalance(walletAddress string, network safegmx.NetworkKey) (*big.Int, error)
}

type cacheKey struct {
	wallet  string
	network safegmx.NetworkKey
}

// Validator implements safegmx.Validator.
type Validator struct {
	chain ChainReader
	cache *cache.TTLCache[cacheKey, struct{}]
	log   *logrus.Logger
}

// New wires a ChainReader. log defaults to logrus.StandardLogger() when nil.
func New(chain ChainReader, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{
		chain: chain,
		cache: cache.NewTTLCache[cacheKey, struct{}](cacheCapacity, cacheTTL),
		log:   log,
	}
}

// Invalidate drops a cached validation, e.g. after the executor
// observes a state change for this wallet.
func (v *Validator) Invalidate(walletAddress string, network safegmx.NetworkKey) {
	v.cache.Remove(cacheKey{walletAddress, network})
}

func newSafeNotDeployed(walletAddress string, network safegmx.NetworkKey, recommendation string) error {
	return safegmx.NewError(safegmx.CodeSafeNotDeployed, "", recommendation, safegmx.Context{
		Service: "validator", Operation: "ValidateWallet", WalletAddress: walletAddress, NetworkKey: network,
	})
}

func newInvalidConfiguration(walletAddress string, network safegmx.NetworkKey, recommendation string) error {
	return safegmx.NewError(safegmx.CodeSafeInvalidConfiguration, "", recommendation, safegmx.Context{
		Service: "validator", Operation: "ValidateWallet", WalletAddress: walletAddress, NetworkKey: network,
	})
}

// ValidateWallet implements safegmx.Validator.
func (v *Validator) ValidateWallet(walletAddress string, network safegmx.NetworkKey, active []safegmx.WalletDeployment) error {
	key := cacheKey{walletAddress, network}
	if _, ok := v.cache.Get(key); ok {
		return nil
	}

	// Step 1: directory must list an active entry with exactly this
	// wallet on this network.
	hasActiveDeployment := false
	for _, d := range active {
		if d.Active && d.WalletAddress == walletAddress && d.NetworkKey == network {
			hasActiveDeployment = true
			break
		}
	}
	if !hasActiveDeployment {
		return newSafeNotDeployed(walletAddress, network, "deploy wallet on that network")
	}

	// Step 2: on-chain code must be present regardless of directory state.
	hasCode, err := v.chain.HasCode(walletAddress, network)
	if err != nil {
		return newSafeNotDeployed(walletAddress, network, "could not confirm on-chain deployment")
	}
	if !hasCode {
		return newSafeNotDeployed(walletAddress, network, "no contract code found on that network")
	}

	// Step 3: owners/threshold must be sane.
	owners, err := v.chain.Owners(walletAddress, network)
	if err != nil || len(owners) == 0 {
		return newInvalidConfiguration(walletAddress, network, "wallet has no readable owners")
	}
	threshold, err := v.chain.Threshold(walletAddress, network)
	if err != nil || threshold < 1 {
		return newInvalidConfiguration(walletAddress, network, "wallet threshold must be at least 1")
	}

	// Step 4: a zero native balance is a non-fatal advisory, not
	// enforced here. Whether the upcoming trade is itself
	// native-denominated (in which case a zero balance is fatal, not
	// advisory) is decided downstream by the sizer, which has the
	// trade's token binding; this call only surfaces the warning.
	if nativeBalance, err := v.chain.NativeBalance(walletAddress, network); err == nil && nativeBalance != nil && nativeBalance.Sign() == 0 {
		v.log.WithFields(logrus.Fields{
			"walletAddress": walletAddress,
			"networkKey":    network,
		}).Warn("wallet has zero native balance, gas-paying trades on this network will fail")
	}

	v.cache.Set(key, struct{}{})
	return nil
}
