// Package cryptox holds the symmetric crypto primitives used by the private
// vault: argon2id password-based key derivation and AES-256-GCM
// authenticated encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the derived AES-256 key length in bytes.
	KeySize = 32
	// SaltSize is the random salt length used for key derivation.
	SaltSize = 16
	// NonceSize is the AES-GCM nonce length.
	NonceSize = 12
)

// DeriveKey derives a 32-byte symmetric key from a password and salt using
// argon2id (t=1, m=64MiB, p=4). Deterministic for equal inputs.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext with AES-GCM under the given key. A fresh random
// 12-byte nonce is generated per call and returned alongside the ciphertext.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Open decrypts an AES-GCM ciphertext produced by Seal. The key and nonce
// must match the ones used for encryption; any mismatch or tampering fails
// authentication.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return aesgcm.Open(nil, nonce, ciphertext, nil)
}
