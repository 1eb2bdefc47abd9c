// Package safewallet is a reference Multi-Signature Wallet Adapter:
// Init/Owners/Threshold/NewTx/Sign/Execute over a Gnosis Safe-style
// `execTransaction` ABI, built on pkg/contractclient and pkg/txlistener.
// It is explicitly a collaborator, never imported by the core.
package safewallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/purvik6062/safegmx/pkg/contractclient"
	chaintypes "github.com/purvik6062/safegmx/pkg/types"
	"github.com/purvik6062/safegmx/pkg/txlistener"
)

// Call is one (to, value, data) leg of a wallet-executed transaction.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// UnsignedTx is the wallet call batch before the agent signer has
// attached its threshold-of-one signature.
type UnsignedTx struct {
	Calls []Call
}

// SignedTx is an UnsignedTx with the agent signer's ECDSA signature
// attached, ready to broadcast via Execute.
type SignedTx struct {
	Calls     []Call
	Signature []byte
}

// PendingTx is returned by Execute: the broadcast hash plus a Wait
// closure that blocks for the receipt.
type PendingTx struct {
	TxHash common.Hash
	Wait   func() (*chaintypes.TxReceipt, error)
}

// Wallet wraps a single (wallet address, chain) multi-sig deployment.
// It is shared across workers for the same (wallet, chain): reads
// (Owners, Threshold) are safe for concurrent use; writes (Sign,
// Execute) must be serialized by the caller's per-trade lease.
type Wallet struct {
	client   contractclient.ContractClient
	listener *txlistener.TxListener
	signer   *ecdsa.PrivateKey
	agent    common.Address
}

// Init binds a contract client (address + wallet ABI, over chainRpc)
// and the agent signer's key to a wallet instance.
func Init(client contractclient.ContractClient, listener *txlistener.TxListener, signerKey *ecdsa.PrivateKey) (*Wallet, error) {
	if signerKey == nil {
		return nil, fmt.Errorf("safewallet: nil signer key")
	}
	pub, ok := signerKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("safewallet: invalid public key")
	}
	return &Wallet{
		client:   client,
		listener: listener,
		signer:   signerKey,
		agent:    gethcrypto.PubkeyToAddress(*pub),
	}, nil
}

// Owners reads the wallet's configured owner set.
func (w *Wallet) Owners() ([]string, error) {
	out, err := w.client.Call(&w.agent, "getOwners")
	if err != nil {
		return nil, fmt.Errorf("safewallet: read owners: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("safewallet: empty owners result")
	}
	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("safewallet: unexpected owners shape %T", out[0])
	}
	owners := make([]string, 0, len(addrs))
	for _, a := range addrs {
		owners = append(owners, a.Hex())
	}
	return owners, nil
}

// Threshold reads the wallet's required-signature threshold.
func (w *Wallet) Threshold() (int, error) {
	out, err := w.client.Call(&w.agent, "getThreshold")
	if err != nil {
		return 0, fmt.Errorf("safewallet: read threshold: %w", err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("safewallet: empty threshold result")
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("safewallet: unexpected threshold shape %T", out[0])
	}
	return int(n.Int64()), nil
}

// NewTx builds an UnsignedTx carrying calls. The core only ever builds
// a single-call batch (the quote's to/value/data), but the alphabet is
// kept open for batched approve+swap execution.
func (w *Wallet) NewTx(calls []Call) (UnsignedTx, error) {
	if len(calls) == 0 {
		return UnsignedTx{}, fmt.Errorf("safewallet: no calls in batch")
	}
	return UnsignedTx{Calls: calls}, nil
}

// Sign satisfies the wallet's threshold-of-one policy using the agent
// signer.
func (w *Wallet) Sign(unsigned UnsignedTx) (SignedTx, error) {
	digest := txDigest(unsigned.Calls)
	sig, err := gethcrypto.Sign(digest, w.signer)
	if err != nil {
		return SignedTx{}, fmt.Errorf("safewallet: sign: %w", err)
	}
	return SignedTx{Calls: unsigned.Calls, Signature: sig}, nil
}

// Execute broadcasts signed through execTransaction and returns a
// handle whose Wait blocks for the receipt. gasPrice of nil lets the
// underlying contract client estimate its own.
func (w *Wallet) Execute(signed SignedTx, gasPrice *big.Int) (PendingTx, error) {
	call := signed.Calls[0]
	hash, err := w.client.Send(chaintypes.Standard, nil, gasPrice, &w.agent, w.signer, "execTransaction",
		call.To, call.Value, call.Data, signed.Signature)
	if err != nil {
		return PendingTx{}, fmt.Errorf("safewallet: execTransaction: %w", err)
	}

	return PendingTx{
		TxHash: hash,
		Wait:   func() (*chaintypes.TxReceipt, error) { return w.listener.WaitForTransaction(hash) },
	}, nil
}

// txDigest derives a deterministic hash of the call batch to sign,
// standing in for the wallet's actual EIP-712 domain-separated digest,
// a contract-specific detail out of the core's scope.
func txDigest(calls []Call) []byte {
	var buf []byte
	for _, c := range calls {
		buf = append(buf, c.To.Bytes()...)
		if c.Value != nil {
			buf = append(buf, c.Value.Bytes()...)
		}
		buf = append(buf, c.Data...)
	}
	return gethcrypto.Keccak256(buf)
}

// Transfer events on the sell/buy token logs in a receipt are how the
// executor recovers filled amounts; DecodeTransferAmount
// is the small helper shared by both legs.
func DecodeTransferAmount(receipt *chaintypes.TxReceipt, token common.Address, recipient common.Address) *big.Int {
	transferTopic := gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	for _, l := range receipt.Logs {
		if l.Address != token || len(l.Topics) != 3 || l.Topics[0] != transferTopic {
			continue
		}
		to := common.BytesToAddress(l.Topics[2].Bytes())
		if to != recipient {
			continue
		}
		return new(big.Int).SetBytes(l.Data)
	}
	return nil
}
