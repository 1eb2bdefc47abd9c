package safewallet

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purvik6062/safegmx/pkg/contractclient"
	chaintypes "github.com/purvik6062/safegmx/pkg/types"
)

type fakeClient struct {
	owners    []common.Address
	threshold *big.Int
	sendHash  common.Hash
	sendErr   error
	lastArgs  []interface{}
}

func (f *fakeClient) ContractAddress() common.Address { return common.Address{} }
func (f *fakeClient) Abi() abi.ABI                     { return abi.ABI{} }

func (f *fakeClient) Call(from *common.Address, method string, args ...interface{}) ([]interface{}, error) {
	switch method {
	case "getOwners":
		return []interface{}{f.owners}, nil
	case "getThreshold":
		return []interface{}{f.threshold}, nil
	}
	return nil, nil
}

func (f *fakeClient) Send(sendType chaintypes.TxSendType, gasLimit *uint64, gasPrice *big.Int, from *common.Address, privateKey *ecdsa.PrivateKey, method string, args ...interface{}) (common.Hash, error) {
	f.lastArgs = args
	return f.sendHash, f.sendErr
}

func (f *fakeClient) ParseReceipt(receipt *chaintypes.TxReceipt) (string, error) { return "", nil }

func (f *fakeClient) DecodeTransaction(data []byte) (*contractclient.DecodedCall, error) {
	return nil, nil
}
func (f *fakeClient) DecodeTransactionHex(hexData string) (*contractclient.DecodedCall, error) {
	return nil, nil
}
func (f *fakeClient) TransactionData(hash common.Hash) ([]byte, error) { return nil, nil }

var _ contractclient.ContractClient = (*fakeClient)(nil)

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := gethcrypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestInit_DerivesAgentAddress(t *testing.T) {
	key := mustKey(t)
	w, err := Init(nil, nil, key)
	require.NoError(t, err)
	expected := gethcrypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, expected, w.agent)
}

func TestInit_NilSignerRejected(t *testing.T) {
	_, err := Init(nil, nil, nil)
	assert.Error(t, err)
}

func TestOwnersAndThreshold(t *testing.T) {
	fc := &fakeClient{
		owners:    []common.Address{common.HexToAddress("0xaa"), common.HexToAddress("0xbb")},
		threshold: big.NewInt(1),
	}
	w := &Wallet{client: fc}

	owners, err := w.Owners()
	require.NoError(t, err)
	assert.Len(t, owners, 2)

	threshold, err := w.Threshold()
	require.NoError(t, err)
	assert.Equal(t, 1, threshold)
}

func TestNewTx_RequiresCalls(t *testing.T) {
	w := &Wallet{}
	_, err := w.NewTx(nil)
	assert.Error(t, err)
}

func TestSignThenExecute(t *testing.T) {
	key := mustKey(t)
	fc := &fakeClient{sendHash: common.HexToHash("0x01")}
	w, err := Init(fc, nil, key)
	require.NoError(t, err)

	unsigned, err := w.NewTx([]Call{{To: common.HexToAddress("0xcc"), Value: big.NewInt(0), Data: []byte{0x01}}})
	require.NoError(t, err)

	signed, err := w.Sign(unsigned)
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Signature)

	pending, err := w.Execute(signed, nil)
	require.NoError(t, err)
	assert.Equal(t, fc.sendHash, pending.TxHash)
	assert.Equal(t, signed.Signature, fc.lastArgs[3])
}

func TestDecodeTransferAmount(t *testing.T) {
	token := common.HexToAddress("0x000000000000000000000000000000000070ce")
	recipient := common.HexToAddress("0x00000000000000000000000000000000000abc")
	transferTopic := gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	amount := big.NewInt(1_000_000)
	amountBytes := make([]byte, 32)
	amount.FillBytes(amountBytes)

	receipt := &chaintypes.TxReceipt{
		Logs: []chaintypes.Log{{
			Address: token,
			Topics: []common.Hash{
				transferTopic,
				common.BytesToHash(common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes()),
				common.BytesToHash(recipient.Bytes()),
			},
			Data: amountBytes,
		}},
	}

	got := DecodeTransferAmount(receipt, token, recipient)
	require.NotNil(t, got)
	assert.Equal(t, amount, got)
}
