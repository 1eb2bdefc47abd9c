// Package configs loads the orchestrator's startup configuration file
// and maps it onto the policy structs the core and its collaborators
// consume.
package configs

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/allowance"
	"github.com/purvik6062/safegmx/internal/executor"
	"github.com/purvik6062/safegmx/internal/monitor"
	"github.com/purvik6062/safegmx/internal/sizer"
)

// Config is the entire configuration structure read from config.yml,
// covering the configuration surface plus the chain/contract
// wiring needed to stand the collaborators up.
type Config struct {
	RPC            map[string]string                 `yaml:"rpc"`
	ContractClient map[string]ContractClientYAMLData `yaml:"contract_client"`
	Policy         PolicyYAMLData                    `yaml:"policy"`

	BaseSymbol      string                          `yaml:"baseSymbol"`
	PermitContracts map[string]string               `yaml:"permitContracts"` // networkKey -> permit contract address
	StaticTokens    map[string][]TokenBindingYAML   `yaml:"staticTokens"`    // symbol -> built-in bindings
	Collaborators   CollaboratorYAMLData            `yaml:"collaborators"`
}

// TokenBindingYAML is one built-in registry entry for configs.StaticTokens.
type TokenBindingYAML struct {
	NetworkKey      string `yaml:"networkKey"`
	ContractAddress string `yaml:"contractAddress"`
	Decimals        uint8  `yaml:"decimals"`
	IsNative        bool   `yaml:"isNative"`
}

// CollaboratorYAMLData names the base URLs / DSNs for every reference
// collaborator adapter this repository ships, none of
// which the core itself imports.
type CollaboratorYAMLData struct {
	DirectoryURL     string `yaml:"directoryUrl"`
	PriceFeedURL     string `yaml:"priceFeedUrl"`
	AggregatorURL    string `yaml:"aggregatorUrl"`
	TokenRegistryURL string `yaml:"tokenRegistryUrl"`
	ListingIndexURL  string `yaml:"listingIndexUrl"`
	PersistenceDSN   string `yaml:"persistenceDsn"`
	HTTPIngressAddr  string `yaml:"httpIngressAddr"`
}

// ContractClientYAMLData is one chain's contract address/ABI pair,
// keyed by contract name (e.g. "safeWallet", "aggregatorRouter").
type ContractClientYAMLData struct {
	Address string `yaml:"address"`
	ABI     string `yaml:"abi"`
}

// PolicyYAMLData is the configuration surface, startup-only
// and never mutated at runtime without explicit re-entry.
type PolicyYAMLData struct {
	PositionPercentage     int64   `yaml:"positionPercentage"`
	MinUsdAmount           float64 `yaml:"minUsdAmount"`
	MaxPositionPercentage  int64   `yaml:"maxPositionPercentage"`
	NativeGasReserve       string  `yaml:"nativeGasReserve"` // decimal string, parsed as big.Int
	DefaultSlippageBps     int64   `yaml:"defaultSlippageBps"`
	MonitorTickSeconds     int     `yaml:"monitorTickSeconds"`
	TrailingStopEnabled    bool    `yaml:"trailingStopEnabled"`
	TrailingRetracementPct int64   `yaml:"trailingRetracementPct"`
	ExecutorFanOut         int     `yaml:"executorFanOut"`
	ReceiptWaitSeconds     int     `yaml:"receiptWaitSeconds"`
	GasBumpPercent         int64   `yaml:"gasBumpPercent"`
}

// withDefaults fills every zero-valued numeric or string policy field
// with its default. TrailingStopEnabled is a plain bool and is not
// defaulted: it is false unless the YAML sets it.
func (p PolicyYAMLData) withDefaults() PolicyYAMLData {
	if p.PositionPercentage == 0 {
		p.PositionPercentage = 20
	}
	if p.MinUsdAmount == 0 {
		p.MinUsdAmount = 0.01
	}
	if p.MaxPositionPercentage == 0 {
		p.MaxPositionPercentage = 80
	}
	if p.NativeGasReserve == "" {
		p.NativeGasReserve = "1000000000000000" // 10^15, 0.001 @ 18dp
	}
	if p.DefaultSlippageBps == 0 {
		p.DefaultSlippageBps = 50
	}
	if p.MonitorTickSeconds == 0 {
		p.MonitorTickSeconds = 30
	}
	if p.TrailingRetracementPct == 0 {
		p.TrailingRetracementPct = 2
	}
	if p.ExecutorFanOut == 0 {
		p.ExecutorFanOut = 8
	}
	if p.ReceiptWaitSeconds == 0 {
		p.ReceiptWaitSeconds = 120
	}
	if p.GasBumpPercent == 0 {
		p.GasBumpPercent = 20
	}
	return p
}

// LoadConfig reads and parses a config.yml into a Config struct,
// applying the defaults for any field left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	config.Policy = config.Policy.withDefaults()

	return &config, nil
}

// ToSizerConfig converts the policy surface into the Position Sizer's
// config.
func (c *Config) ToSizerConfig(stableSymbols map[string]bool) (sizer.Config, error) {
	reserve, ok := new(big.Int).SetString(c.Policy.NativeGasReserve, 10)
	if !ok {
		return sizer.Config{}, fmt.Errorf("invalid nativeGasReserve %q", c.Policy.NativeGasReserve)
	}
	return sizer.Config{
		PositionPercentage:    c.Policy.PositionPercentage,
		MaxPositionPercentage: c.Policy.MaxPositionPercentage,
		MinUsdAmount:          c.Policy.MinUsdAmount,
		NativeGasReserveRaw:   reserve,
		StableSymbols:         stableSymbols,
	}, nil
}

// ToAllowanceConfig converts the policy surface into the Allowance
// Manager's config.
func (c *Config) ToAllowanceConfig(permitContracts map[string]string) allowance.Config {
	return allowance.Config{
		PermitContracts: stringKeyedNetworks(permitContracts),
		SettleDelay:     2 * time.Second,
	}
}

// ToExecutorConfig converts the policy surface into the Trade
// Executor's config.
func (c *Config) ToExecutorConfig(gasFloorWei *big.Int) executor.Config {
	return executor.Config{
		GasBumpPercent: c.Policy.GasBumpPercent,
		GasFloorWei:    gasFloorWei,
	}
}

// ToMonitorConfig converts the policy surface into the Position
// Monitor's config.
func (c *Config) ToMonitorConfig() monitor.Config {
	return monitor.Config{
		TickPeriod:             time.Duration(c.Policy.MonitorTickSeconds) * time.Second,
		TrailingStopEnabled:    c.Policy.TrailingStopEnabled,
		TrailingRetracementPct: c.Policy.TrailingRetracementPct,
	}
}

// ReceiptWait is the per-transaction receipt timeout as a
// time.Duration, for wiring pkg/txlistener's WithTimeout option.
func (c *Config) ReceiptWait() time.Duration {
	return time.Duration(c.Policy.ReceiptWaitSeconds) * time.Second
}

// ToStaticBindings converts the operator-curated StaticTokens table into
// the shape collaborators/tokenregistry.NewStatic expects.
func (c *Config) ToStaticBindings() map[string][]safegmx.TokenBinding {
	out := make(map[string][]safegmx.TokenBinding, len(c.StaticTokens))
	for symbol, entries := range c.StaticTokens {
		bindings := make([]safegmx.TokenBinding, 0, len(entries))
		for _, e := range entries {
			bindings = append(bindings, safegmx.TokenBinding{
				Symbol:          symbol,
				NetworkKey:      safegmx.NetworkKey(e.NetworkKey),
				ContractAddress: e.ContractAddress,
				Decimals:        e.Decimals,
				IsNative:        e.IsNative,
			})
		}
		out[symbol] = bindings
	}
	return out
}

// StableSymbolSet builds the sizer's 1:1-to-USD symbol set. Only the
// configured BaseSymbol is assumed stable; the sizer enforces no USD
// minimum for any other base token.
func (c *Config) StableSymbolSet() map[string]bool {
	return map[string]bool{c.BaseSymbol: true}
}

func stringKeyedNetworks(m map[string]string) map[safegmx.NetworkKey]string {
	out := make(map[safegmx.NetworkKey]string, len(m))
	for k, v := range m {
		out[safegmx.NetworkKey(k)] = v
	}
	return out
}
