package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_GenerateNewKey(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	assert.NotNil(t, enc.identity)
	assert.NotNil(t, enc.recipient)
}

func TestNewEncryptor_WithProvidedKey(t *testing.T) {
	key, pub, err := GenerateKey()
	require.NoError(t, err)

	enc, err := NewEncryptor(key)
	require.NoError(t, err)
	assert.Equal(t, pub, enc.PublicKey())
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("invalid-key-format")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing identity")
}

func TestGenerateKey_Unique(t *testing.T) {
	key1, _, err := GenerateKey()
	require.NoError(t, err)
	key2, _, err := GenerateKey()
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestEncrypt_Decrypt_Signature(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	// PNG magic followed by arbitrary bytes
	signature := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}

	sealed, err := enc.Encrypt(signature)
	require.NoError(t, err)
	assert.NotEqual(t, signature, sealed)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, signature, opened)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	a, err := enc.Encrypt([]byte("evidence"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("evidence"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc1, err := NewEncryptor("")
	require.NoError(t, err)
	enc2, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc1.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = enc2.Decrypt(sealed)
	assert.Error(t, err)
}

func TestDecrypt_Garbage(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte("not age data"))
	assert.Error(t, err)
}
