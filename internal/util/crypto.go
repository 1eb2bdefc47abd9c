// Package util holds small, dependency-light helpers shared across the
// orchestrator: private key decryption, ABI loading, and the
// raw/decimal amount arithmetic the Position Sizer and Trade Executor
// both need.
package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Decrypt AES-GCM decrypts ciphertext (hex or raw bytes, caller's
// choice of encoding upstream) using key.
func Decrypt(key []byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext shorter than nonce size %d", nonceSize)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", err)
	}
	return plaintext, nil
}

// DecryptPrivateKey decrypts an AES-GCM encrypted, hex-encoded private
// key and parses it into an *ecdsa.PrivateKey, the exact shape the
// agent signer needs before it can call contractclient.Send.
func DecryptPrivateKey(key []byte, encryptedHex string) (*ecdsa.PrivateKey, error) {
	ciphertext, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext hex: %w", err)
	}

	plaintext, err := Decrypt(key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}

	pk, err := crypto.HexToECDSA(string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("parse decrypted private key: %w", err)
	}
	return pk, nil
}
