// Package contractclient wraps a single on-chain contract (address + ABI)
// behind a small call/send/decode surface. It is the building block the
// RPC Provider and Multi-Signature Wallet Adapter collaborators
// are implemented on top of; the orchestrator core never
// imports it directly.
package contractclient

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

// ContractClient is implemented by *Client; the RPC Provider and
// Multi-Signature Wallet Adapter depend on this interface, never on the
// concrete type.
type ContractClient interface {
	ContractAddress() common.Address
	Abi() abi.ABI
	Call(from *common.Address, method string, args ...interface{}) ([]interface{}, error)
	Send(sendType chaintypes.TxSendType, gasLimit *uint64, gasPrice *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error)
	ParseReceipt(receipt *chaintypes.TxReceipt) (string, error)
	DecodeTransaction(data []byte) (*DecodedCall, error)
	DecodeTransactionHex(hexData string) (*DecodedCall, error)
	TransactionData(hash common.Hash) ([]byte, error)
}

// DecodedCall is the result of decoding a transaction's input data
// against the contract's ABI.
type DecodedCall struct {
	MethodName string                 `json:"methodName"`
	Parameter  map[string]interface{} `json:"parameter"`
}

// Client is a thin, address+ABI scoped wrapper over an ethclient.Client.
type Client struct {
	ec      *ethclient.Client
	address common.Address
	abi     abi.ABI
}

// NewContractClient binds an ABI to a contract address over the given
// RPC client.
func NewContractClient(ec *ethclient.Client, address common.Address, contractAbi abi.ABI) *Client {
	return &Client{ec: ec, address: address, abi: contractAbi}
}

func (c *Client) ContractAddress() common.Address { return c.address }

func (c *Client) Abi() abi.ABI { return c.abi }

// Call performs a read-only eth_call and unpacks the result according
// to the method's ABI outputs.
func (c *Client) Call(from *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &c.address, Data: data}
	if from != nil {
		msg.From = *from
	}

	out, err := c.ec.CallContract(context.Background(), msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	unpacked, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return unpacked, nil
}

// Send builds, signs and broadcasts a transaction invoking method, then
// returns its hash without waiting for a receipt (that is pkg/txlistener's
// job). A nil gasPrice falls back to the node's suggestion; callers that
// have already chosen a price (e.g. the executor's gas-bump policy) pass
// it explicitly so it isn't silently overridden here.
func (c *Client) Send(sendType chaintypes.TxSendType, gasLimit *uint64, gasPrice *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	if sendType != chaintypes.Standard {
		return common.Hash{}, fmt.Errorf("send type %d not supported by contractclient", sendType)
	}
	if privateKey == nil {
		return common.Hash{}, fmt.Errorf("nil signer for %s", method)
	}
	if from == nil {
		return common.Hash{}, fmt.Errorf("nil sender for %s", method)
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx := context.Background()
	nonce, err := c.ec.PendingNonceAt(ctx, *from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce for %s: %w", method, err)
	}

	if gasPrice == nil {
		gasPrice, err = c.ec.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("gas price for %s: %w", method, err)
		}
	}

	limit := uint64(0)
	if gasLimit != nil {
		limit = *gasLimit
	} else {
		estimate, err := c.ec.EstimateGas(ctx, ethereum.CallMsg{From: *from, To: &c.address, Data: data})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", method, err)
		}
		limit = estimate
	}

	chainID, err := c.ec.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id for %s: %w", method, err)
	}

	tx := types.NewTransaction(nonce, c.address, big.NewInt(0), limit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.ec.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast %s: %w", method, err)
	}

	return signedTx.Hash(), nil
}

// ParseReceipt decodes every log in receipt that matches this contract's
// ABI into a JSON array of {EventName, Parameter} objects.
func (c *Client) ParseReceipt(receipt *chaintypes.TxReceipt) (string, error) {
	type event struct {
		EventName string                 `json:"EventName"`
		Parameter map[string]interface{} `json:"Parameter"`
	}
	var events []event

	for _, l := range receipt.Logs {
		if l.Address != c.address || len(l.Topics) == 0 {
			continue
		}
		for _, evt := range c.abi.Events {
			if evt.ID != l.Topics[0] {
				continue
			}
			params := map[string]interface{}{}
			if err := c.abi.UnpackIntoMap(params, evt.Name, l.Data); err != nil {
				continue
			}
			for i, arg := range evt.Inputs {
				if arg.Indexed && i < len(l.Topics)-1 {
					params[arg.Name] = topicToValue(arg, l.Topics[i+1])
				}
			}
			events = append(events, event{EventName: evt.Name, Parameter: params})
		}
	}

	out, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("marshal parsed receipt: %w", err)
	}
	return string(out), nil
}

func topicToValue(arg abi.Argument, topic common.Hash) interface{} {
	switch arg.Type.T {
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes()).Hex()
	case abi.UintTy, abi.IntTy:
		return new(big.Int).SetBytes(topic.Bytes())
	default:
		return topic.Hex()
	}
}

// DecodeTransaction recovers the method name and argument map from raw
// calldata using this contract's ABI.
func (c *Client) DecodeTransaction(data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("lookup method selector: %w", err)
	}

	params := map[string]interface{}{}
	if err := method.Inputs.UnpackIntoMap(params, data[4:]); err != nil {
		return nil, fmt.Errorf("unpack %s args: %w", method.Name, err)
	}

	return &DecodedCall{MethodName: method.Name, Parameter: params}, nil
}

// DecodeTransactionHex is DecodeTransaction for a 0x-prefixed hex string.
func (c *Client) DecodeTransactionHex(hexData string) (*DecodedCall, error) {
	trimmed := strings.TrimPrefix(hexData, "0x")
	data := common.FromHex("0x" + trimmed)
	return c.DecodeTransaction(data)
}

// TransactionData fetches a transaction's raw input by hash.
func (c *Client) TransactionData(hash common.Hash) ([]byte, error) {
	tx, _, err := c.ec.TransactionByHash(context.Background(), hash)
	if err != nil {
		return nil, fmt.Errorf("fetch tx %s: %w", hash.Hex(), err)
	}
	return tx.Data(), nil
}
