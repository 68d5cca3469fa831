// Package crypto provides AES-256-CBC encryption for storefront API keys that
// must be stored at rest in the database. A stored key grants read access to a
// customer's full product catalog and scheduling data on the remote platform,
// so keys are never persisted or returned in plaintext. Ciphertext is encoded
// as "ivHex:cipherHex" with a fresh random 16-byte IV per encryption, so two
// encryptions of the same key never produce equal ciphertext.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MinSecretLength is the minimum length of the configured encryption secret.
	MinSecretLength = 32

	keySize = 32 // AES-256
)

var (
	// ErrSecretTooShort is returned when the configured encryption secret is shorter
	// than MinSecretLength characters.
	ErrSecretTooShort = errors.New("crypto: encryption secret must be at least 32 characters")
	// ErrCiphertextCorrupted is returned when stored ciphertext is not valid
	// "ivHex:cipherHex", fails hex decoding, or is structurally too short.
	ErrCiphertextCorrupted = errors.New("crypto: ciphertext is corrupted")
	// ErrDecryptionFailed is returned when decryption produces invalid padding,
	// indicating tampered ciphertext or the wrong key material.
	ErrDecryptionFailed = errors.New("crypto: decryption operation failed")
	// ErrEmptyPlaintext is returned when an empty key is passed to Encrypt.
	ErrEmptyPlaintext = errors.New("crypto: plaintext must not be empty")
)

// KeyCipher encrypts and decrypts API key material with a fixed 32-byte key
// derived from the configured secret (zero-padded or truncated to 32 bytes).
type KeyCipher struct {
	key []byte
}

// NewKeyCipher creates a cipher from the configured encryption secret.
// The secret must be at least 32 characters; longer secrets are truncated to
// the AES-256 key size, shorter-than-32-byte key material never occurs.
func NewKeyCipher(secret string) (*KeyCipher, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	key := make([]byte, keySize)
	copy(key, secret)
	return &KeyCipher{key: key}, nil
}

// Encrypt encrypts plaintext and returns ciphertext in "ivHex:cipherHex" form.
func (kc *KeyCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	block, err := aes.NewCipher(kc.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt decodes "ivHex:cipherHex" ciphertext and returns the plaintext key.
// Corruption of the encoding surfaces as ErrCiphertextCorrupted; a padding
// failure after decryption (wrong key, tampered bytes) as ErrDecryptionFailed.
func (kc *KeyCipher) Decrypt(encoded string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return "", ErrCiphertextCorrupted
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrCiphertextCorrupted
	}

	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrCiphertextCorrupted
	}

	block, err := aes.NewCipher(kc.key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(unpadded), nil
}

// MaskCiphertext returns a short display fragment of stored ciphertext for UI
// identification (first and last four characters). This is cosmetic masking of
// ciphertext, not a key fingerprint: it carries no information about the
// plaintext key.
func MaskCiphertext(encoded string) string {
	if len(encoded) <= 8 {
		return encoded
	}
	return encoded[:4] + "..." + encoded[len(encoded)-4:]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
