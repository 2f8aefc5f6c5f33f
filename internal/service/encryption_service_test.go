package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	plaintext := `{"bank":"First Bank","account":"0123456789"}`
	ciphertext, err := svc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "First Bank")

	decrypted, err := svc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESEncryptionService_NonceUniqueness(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	c1, err := svc.Encrypt("same payload")
	require.NoError(t, err)
	c2, err := svc.Encrypt("same payload")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2)
}

func TestAESEncryptionService_BadKey(t *testing.T) {
	_, err := NewAESEncryptionService("too-short")
	assert.Error(t, err)

	_, err = NewAESEncryptionService(strings.Repeat("zz", 32))
	assert.Error(t, err)
}

func TestAESEncryptionService_TamperedCiphertext(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	ciphertext, err := svc.Encrypt("secret")
	require.NoError(t, err)

	tampered := ciphertext[:len(ciphertext)-2] + "00"
	_, err = svc.Decrypt(tampered)
	assert.Error(t, err)
}
