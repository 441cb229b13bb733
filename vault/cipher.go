package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

var errCiphertextTooShort = errors.New("ciphertext too short")

// Cipher encrypts credential secrets with AES-256-GCM. The data key is
// derived from the application secret; rotating the secret invalidates
// all stored credentials.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a cipher from the application secret.
func NewCipher(appSecret string) (*Cipher, error) {
	if appSecret == "" {
		return nil, errors.New("vault: application secret must not be empty")
	}

	key := sha256.Sum256([]byte(appSecret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext and returns a base64 token safe for a text
// column.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt.
func (c *Cipher) Decrypt(token string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", errCiphertextTooShort
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
