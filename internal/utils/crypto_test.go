package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ciphertext, err := Encrypt("super-secret-value")
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-value", ciphertext)

	plaintext, err := Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	ciphertext, err := Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)

	plaintext, err := Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestEncryptNonDeterministic(t *testing.T) {
	a, err := Encrypt("same")
	require.NoError(t, err)
	b, err := Encrypt("same")
	require.NoError(t, err)
	// 随机 nonce 使相同明文每次产生不同密文
	assert.NotEqual(t, a, b)
}

func TestDecryptInvalidInput(t *testing.T) {
	_, err := Decrypt("not-base64!!")
	assert.Error(t, err)

	_, err = Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestSetSecretKey(t *testing.T) {
	assert.Error(t, SetSecretKey("too-short"))
	assert.NoError(t, SetSecretKey("feiyu-secret-var-key-32bytes!!ab"))
}

// 属性:任意明文加密后解密还原
func TestEncryptDecryptProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plaintext := rapid.String().Draw(t, "plaintext")

		ciphertext, err := Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})
}
