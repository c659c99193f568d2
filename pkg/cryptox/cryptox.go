package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// Engine provides symmetric encryption for token payloads and slow hashing
// for MFA secrets. The AES key is loaded once at startup and never changes
// for the life of the process.
type Engine struct {
	aead       cipher.AEAD
	bcryptCost int
}

// NewEngine creates an engine from a hex-encoded 32-byte AES key.
func NewEngine(hexKey string, bcryptCost int) (*Engine, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalidKey, err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey().WithDetail("key_bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalidKey, err)
	}

	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &Engine{aead: aead, bcryptCost: bcryptCost}, nil
}

// Encrypt seals the plaintext with AES-256-GCM and returns
// base64(nonce || ciphertext).
func (e *Engine) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrRegistry.NewWithCause(CodeEncryptFailed, err)
	}

	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any malformed or tampered
// input fails the same way; callers must not surface the distinction.
func (e *Engine) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeDecryptFailed, err)
	}

	nonceSize := e.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrDecryptFailed()
	}

	plaintext, err := e.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeDecryptFailed, err)
	}
	return plaintext, nil
}

// Hash derives a bcrypt digest for an MFA secret.
func (e *Engine) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), e.bcryptCost)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeHashFailed, err)
	}
	return string(digest), nil
}

// Compare checks a secret against a stored digest. A mismatch is a plain
// false, never an error.
func (e *Engine) Compare(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
