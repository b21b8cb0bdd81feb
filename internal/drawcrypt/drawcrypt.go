// Package drawcrypt seals lottery numbers at rest with the deployment draw key.
//
// Every draw gets its own random nonce, so two identical submissions never share
// a ciphertext. The sealed blob is nonce || ciphertext
package drawcrypt

import (
	"crypto/cipher" // AEAD interface
	"crypto/rand"   // Nonces and keys
	"encoding/hex"  // Key encoding
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping

	"golang.org/x/crypto/chacha20poly1305" // XChaCha20-Poly1305 AEAD
)

const KeySize = chacha20poly1305.KeySize // Length in bytes of a draw key

var ErrMalformed = errors.New("drawcrypt: malformed sealed draw") // Sealed blob too short to hold a nonce

// Cipher seals and opens draw numbers
type Cipher struct {
	aead cipher.AEAD // XChaCha20-Poly1305 instance
}

// New returns a Cipher for a 32 byte key
func New(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key) // Extended nonce variant
	if err != nil {
		return nil, fmt.Errorf("drawcrypt: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// ParseKey decodes a hex encoded draw key
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("drawcrypt: decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("drawcrypt: key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// GenerateKey returns a fresh hex encoded draw key
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err // No entropy available
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts the draw numbers
func (c *Cipher) Seal(numbers string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(numbers)+c.aead.Overhead()) // Room for the ciphertext
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, []byte(numbers), nil), nil // Ciphertext appended after the nonce
}

// Open decrypts a blob produced by Seal
func (c *Cipher) Open(sealed []byte) (string, error) {
	ns := c.aead.NonceSize()
	if len(sealed) < ns {
		return "", ErrMalformed
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil) // Authenticate and decrypt
	if err != nil {
		return "", fmt.Errorf("drawcrypt: open: %w", err)
	}
	return string(plain), nil
}
