// Package rpcprovider is a reference RPC Provider collaborator: it
// multiplexes go-ethereum ethclient connections per network and
// answers the narrow ChainReader/BalanceReader/AllowanceReader/
// Approver/FeeReader interfaces each core component defines for
// itself, layered over its own per-contract clients.
package rpcprovider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/pkg/contractclient"
	"github.com/purvik6062/safegmx/pkg/safewallet"
	chaintypes "github.com/purvik6062/safegmx/pkg/types"
	"github.com/purvik6062/safegmx/pkg/txlistener"
)

// erc20ABIJSON covers the handful of ERC-20 methods the core needs:
// balance reads, allowance reads, and the approve call the Allowance
// Manager submits through the multi-sig wallet.
const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// safeABIJSON covers the Gnosis Safe-style surface the Wallet Validator
// and Multi-Signature Wallet Adapter need: owner/threshold reads and the
// execTransaction entry point.
const safeABIJSON = `[
	{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"execTransaction","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"signatures","type":"bytes"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	erc20ABI abi.ABI
	safeABI  abi.ABI
)

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("rpcprovider: invalid erc20 ABI: %v", err))
	}
	safeABI, err = abi.JSON(strings.NewReader(safeABIJSON))
	if err != nil {
		panic(fmt.Sprintf("rpcprovider: invalid safe ABI: %v", err))
	}
}

type addrKey struct {
	network safegmx.NetworkKey
	address string
}

// Provider wires one ethclient per network and lazily caches the
// per-address contract clients and wallet adapters built on top of it.
type Provider struct {
	ethClients map[safegmx.NetworkKey]*ethclient.Client
	listeners  map[safegmx.NetworkKey]*txlistener.TxListener
	signerKey  *ecdsa.PrivateKey

	mu      sync.Mutex
	tokens  map[addrKey]contractclient.ContractClient
	wallets map[addrKey]*safewallet.Wallet
}

// New wires the per-network ethclients, the receipt listeners built on
// top of them, and the agent signer's key used to drive every
// multi-sig wallet's threshold-of-one signature.
func New(ethClients map[safegmx.NetworkKey]*ethclient.Client, listeners map[safegmx.NetworkKey]*txlistener.TxListener, signerKey *ecdsa.PrivateKey) *Provider {
	return &Provider{
		ethClients: ethClients,
		listeners:  listeners,
		signerKey:  signerKey,
		tokens:     make(map[addrKey]contractclient.ContractClient),
		wallets:    make(map[addrKey]*safewallet.Wallet),
	}
}

func (p *Provider) ethclientFor(network safegmx.NetworkKey) (*ethclient.Client, error) {
	ec, ok := p.ethClients[network]
	if !ok {
		return nil, safegmx.NewError(safegmx.CodeUnsupportedNetwork, "", fmt.Sprintf("no RPC client configured for %s", network), safegmx.Context{
			Service: "rpcprovider", NetworkKey: network,
		})
	}
	return ec, nil
}

func (p *Provider) tokenClient(network safegmx.NetworkKey, tokenAddress string) (contractclient.ContractClient, error) {
	key := addrKey{network, tokenAddress}

	p.mu.Lock()
	if c, ok := p.tokens[key]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	ec, err := p.ethclientFor(network)
	if err != nil {
		return nil, err
	}
	client := contractclient.NewContractClient(ec, common.HexToAddress(tokenAddress), erc20ABI)

	p.mu.Lock()
	p.tokens[key] = client
	p.mu.Unlock()
	return client, nil
}

// Wallet returns the cached Multi-Signature Wallet Adapter for
// (walletAddress, network), implementing internal/executor's Wallet
// interface.
func (p *Provider) Wallet(walletAddress string, network safegmx.NetworkKey) (*safewallet.Wallet, error) {
	key := addrKey{network, walletAddress}

	p.mu.Lock()
	if w, ok := p.wallets[key]; ok {
		p.mu.Unlock()
		return w, nil
	}
	p.mu.Unlock()

	ec, err := p.ethclientFor(network)
	if err != nil {
		return nil, err
	}
	listener := p.listeners[network]

	client := contractclient.NewContractClient(ec, common.HexToAddress(walletAddress), safeABI)
	w, err := safewallet.Init(client, listener, p.signerKey)
	if err != nil {
		return nil, fmt.Errorf("rpcprovider: init wallet adapter: %w", err)
	}

	p.mu.Lock()
	p.wallets[key] = w
	p.mu.Unlock()
	return w, nil
}

// HasCode implements internal/validator.ChainReader.
func (p *Provider) HasCode(walletAddress string, network safegmx.NetworkKey) (bool, error) {
	ec, err := p.ethclientFor(network)
	if err != nil {
		return false, err
	}
	code, err := ec.CodeAt(context.Background(), common.HexToAddress(walletAddress), nil)
	if err != nil {
		return false, fmt.Errorf("rpcprovider: code at %s: %w", walletAddress, err)
	}
	return len(code) > 0, nil
}

// Owners implements internal/validator.ChainReader.
func (p *Provider) Owners(walletAddress string, network safegmx.NetworkKey) ([]string, error) {
	w, err := p.Wallet(walletAddress, network)
	if err != nil {
		return nil, err
	}
	return w.Owners()
}

// Threshold implements internal/validator.ChainReader.
func (p *Provider) Threshold(walletAddress string, network safegmx.NetworkKey) (int, error) {
	w, err := p.Wallet(walletAddress, network)
	if err != nil {
		return 0, err
	}
	return w.Threshold()
}

// NativeBalance implements internal/validator.ChainReader and the
// native-token branch of internal/sizer.BalanceReader.
func (p *Provider) NativeBalance(walletAddress string, network safegmx.NetworkKey) (*big.Int, error) {
	ec, err := p.ethclientFor(network)
	if err != nil {
		return nil, err
	}
	bal, err := ec.BalanceAt(context.Background(), common.HexToAddress(walletAddress), nil)
	if err != nil {
		return nil, fmt.Errorf("rpcprovider: native balance of %s: %w", walletAddress, err)
	}
	return bal, nil
}

// Balance implements internal/sizer.BalanceReader.
func (p *Provider) Balance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding) (*big.Int, error) {
	if token.IsNative {
		return p.NativeBalance(walletAddress, network)
	}
	client, err := p.tokenClient(network, token.ContractAddress)
	if err != nil {
		return nil, err
	}
	owner := common.HexToAddress(walletAddress)
	out, err := client.Call(&owner, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("rpcprovider: balanceOf %s: %w", token.Symbol, err)
	}
	return out[0].(*big.Int), nil
}

// Allowance implements internal/allowance.AllowanceReader.
func (p *Provider) Allowance(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string) (*big.Int, error) {
	client, err := p.tokenClient(network, token.ContractAddress)
	if err != nil {
		return nil, err
	}
	owner := common.HexToAddress(walletAddress)
	out, err := client.Call(&owner, "allowance", owner, common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("rpcprovider: allowance %s: %w", token.Symbol, err)
	}
	return out[0].(*big.Int), nil
}

// Approve implements internal/allowance.Approver: builds an ERC-20
// approve call and drives it through the wallet's threshold-of-one
// multi-sig signature, the same build→sign→execute pipeline the
// executor uses for swaps.
func (p *Provider) Approve(walletAddress string, network safegmx.NetworkKey, token safegmx.TokenBinding, spender string, amount *big.Int) (string, error) {
	w, err := p.Wallet(walletAddress, network)
	if err != nil {
		return "", err
	}

	data, err := erc20ABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", fmt.Errorf("rpcprovider: pack approve: %w", err)
	}

	unsigned, err := w.NewTx([]safewallet.Call{{
		To:    common.HexToAddress(token.ContractAddress),
		Value: big.NewInt(0),
		Data:  data,
	}})
	if err != nil {
		return "", fmt.Errorf("rpcprovider: build approve tx: %w", err)
	}

	signed, err := w.Sign(unsigned)
	if err != nil {
		return "", fmt.Errorf("rpcprovider: sign approve tx: %w", err)
	}

	pending, err := w.Execute(signed, nil)
	if err != nil {
		return "", fmt.Errorf("rpcprovider: broadcast approve tx: %w", err)
	}
	if _, err := pending.Wait(); err != nil {
		return "", fmt.Errorf("rpcprovider: await approve receipt: %w", err)
	}
	return pending.TxHash.Hex(), nil
}

// FeeData implements internal/executor.FeeReader: the legacy gas price
// is always populated; the EIP-1559 fields are left nil on chains that
// don't support SuggestGasTipCap.
func (p *Provider) FeeData(network safegmx.NetworkKey) (chaintypes.FeeData, error) {
	ec, err := p.ethclientFor(network)
	if err != nil {
		return chaintypes.FeeData{}, err
	}

	ctx := context.Background()
	gasPrice, err := ec.SuggestGasPrice(ctx)
	if err != nil {
		return chaintypes.FeeData{}, fmt.Errorf("rpcprovider: suggest gas price: %w", err)
	}
	fee := chaintypes.FeeData{GasPrice: gasPrice}

	tip, tipErr := ec.SuggestGasTipCap(ctx)
	if tipErr != nil {
		return fee, nil // legacy chain, not an error
	}
	header, headErr := ec.HeaderByNumber(ctx, nil)
	if headErr != nil || header.BaseFee == nil {
		return fee, nil
	}

	fee.SuggestedTip = tip
	fee.SuggestedFeeCap = new(big.Int).Add(tip, new(big.Int).Mul(header.BaseFee, big.NewInt(2)))
	return fee, nil
}
