package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString(make([]byte, 32))
	key, err := ParseKey(valid)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	for _, n := range []int{16, 24, 64} {
		_, err := ParseKey(base64.StdEncoding.EncodeToString(make([]byte, n)))
		assert.ErrorIs(t, err, ErrInvalidEncryptionKey, "%d bytes", n)
	}

	_, err = ParseKey("not-valid-base64!@#")
	assert.ErrorIs(t, err, ErrInvalidEncryptionKey)
}

func TestGenerateKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		k, err := GenerateKey()
		require.NoError(t, err)
		_, err = ParseKey(k)
		require.NoError(t, err)
		assert.False(t, seen[k])
		seen[k] = true
	}
}

func TestNewSealer_InvalidKey(t *testing.T) {
	_, err := NewSealer("bad")
	assert.ErrorIs(t, err, ErrInvalidEncryptionKey)
}
