package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 bytes

func TestEncryptDecryptToken(t *testing.T) {
	plaintext := "1//0gRefreshTokenValue"

	encrypted, err := EncryptToken(plaintext, testKey)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := DecryptToken(encrypted, testKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptTokenProducesUniqueCiphertext(t *testing.T) {
	// Random nonce means identical plaintexts encrypt differently
	first, err := EncryptToken("token", testKey)
	require.NoError(t, err)
	second, err := EncryptToken("token", testKey)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptTokenEmptyString(t *testing.T) {
	encrypted, err := EncryptToken("", testKey)
	require.NoError(t, err)
	assert.Empty(t, encrypted)
}

func TestEncryptTokenKeyValidation(t *testing.T) {
	_, err := EncryptToken("token", "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = EncryptToken("token", "short-key")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestDecryptTokenErrors(t *testing.T) {
	_, err := DecryptToken("ciphertext", "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = DecryptToken("not-base64!!!", testKey)
	assert.Error(t, err)

	// Valid base64 but too short to contain a nonce
	_, err = DecryptToken("YWJj", testKey)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptTokenWrongKey(t *testing.T) {
	encrypted, err := EncryptToken("token", testKey)
	require.NoError(t, err)

	otherKey := "fedcba9876543210fedcba9876543210"
	_, err = DecryptToken(encrypted, otherKey)
	assert.Error(t, err)
}
