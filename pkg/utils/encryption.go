package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var (
	// ErrInvalidCiphertext indicates the ciphertext is malformed or too short
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrEmptyKey indicates the encryption key is empty
	ErrEmptyKey = errors.New("encryption key cannot be empty")
	// ErrInvalidKeyLength indicates the encryption key is not 32 bytes
	ErrInvalidKeyLength = errors.New("encryption key must be 32 bytes for AES-256")
)

// EncryptToken encrypts an OAuth token using AES-256-GCM.
// Returns base64-encoded ciphertext with nonce prepended.
func EncryptToken(token, key string) (string, error) {
	if token == "" {
		return "", nil // Don't encrypt empty strings
	}

	if key == "" {
		return "", ErrEmptyKey
	}

	keyBytes := []byte(key)
	if len(keyBytes) != 32 {
		return "", ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return "", err
	}

	// GCM gives authenticated encryption
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(token), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptToken decrypts a token that was encrypted with EncryptToken.
// Expects base64-encoded ciphertext with nonce prepended.
func DecryptToken(encrypted, key string) (string, error) {
	if encrypted == "" {
		return "", nil // Don't decrypt empty strings
	}

	if key == "" {
		return "", ErrEmptyKey
	}

	keyBytes := []byte(key)
	if len(keyBytes) != 32 {
		return "", ErrInvalidKeyLength
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	nonce := ciphertext[:nonceSize]
	ciphertext = ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
