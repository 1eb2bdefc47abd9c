package contractclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

const erc20ABIJSON = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

func mustABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	require.NoError(t, err)
	return parsed
}

func TestDecodeTransaction(t *testing.T) {
	contractAbi := mustABI(t)
	c := NewContractClient(nil, common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"), contractAbi)

	to := common.HexToAddress("0x000000000000000000000000000000000000aa")
	amount := big.NewInt(1_000_000)
	data, err := contractAbi.Pack("transfer", to, amount)
	require.NoError(t, err)

	decoded, err := c.DecodeTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, "transfer", decoded.MethodName)
	assert.Equal(t, amount, decoded.Parameter["amount"])
	assert.Equal(t, to, decoded.Parameter["to"])
}

func TestDecodeTransactionHex(t *testing.T) {
	contractAbi := mustABI(t)
	c := NewContractClient(nil, common.Address{}, contractAbi)

	to := common.HexToAddress("0x00000000000000000000000000000000000abc")
	data, err := contractAbi.Pack("transfer", to, big.NewInt(42))
	require.NoError(t, err)

	decoded, err := c.DecodeTransactionHex("0x" + common.Bytes2Hex(data))
	require.NoError(t, err)
	assert.Equal(t, "transfer", decoded.MethodName)
}

func TestDecodeTransaction_TooShort(t *testing.T) {
	c := NewContractClient(nil, common.Address{}, mustABI(t))
	_, err := c.DecodeTransaction([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestParseReceipt_ExtractsTransferEvent(t *testing.T) {
	contractAbi := mustABI(t)
	addr := common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E")
	c := NewContractClient(nil, addr, contractAbi)

	from := common.Address{}
	to := common.HexToAddress("0x00000000000000000000000000000000000abc")
	value := big.NewInt(500)

	packedValue, err := contractAbi.Events["Transfer"].Inputs.NonIndexed().Pack(value)
	require.NoError(t, err)

	receipt := &chaintypes.TxReceipt{
		Logs: []chaintypes.Log{
			{
				Address: addr,
				Topics: []common.Hash{
					contractAbi.Events["Transfer"].ID,
					common.BytesToHash(from.Bytes()),
					common.BytesToHash(to.Bytes()),
				},
				Data: packedValue,
			},
		},
	}

	out, err := c.ParseReceipt(receipt)
	require.NoError(t, err)
	assert.Contains(t, out, "Transfer")
	assert.Contains(t, out, "500")
}

func TestContractAddressAndAbi(t *testing.T) {
	addr := common.HexToAddress("0x04E1dee021Cd12bBa022A72806441B43d8212Fec")
	contractAbi := mustABI(t)
	c := NewContractClient(nil, addr, contractAbi)

	assert.Equal(t, addr, c.ContractAddress())
	assert.Equal(t, contractAbi, c.Abi())
}
