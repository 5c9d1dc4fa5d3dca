package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// ErrCiphertextTooShort is returned when the input cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Cipher encrypts short secrets (OAuth tokens, state cookies) with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a 32-byte key from the given passphrase.
func NewCipher(key string) (*Cipher, error) {
	if key == "" {
		return nil, errors.New("encryption key is empty")
	}
	sum := sha256.Sum256([]byte(key))

	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	size := c.aead.NonceSize()
	if len(raw) < size {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := c.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
