package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSalt() []byte {
	return bytes.Repeat([]byte{0x42}, SaltSize)
}

func TestDeriveKey(t *testing.T) {
	salt := testSalt()

	t.Run("Deterministic", func(t *testing.T) {
		k1, err := DeriveKey("hunter2", salt, MinRounds)
		require.NoError(t, err)
		require.Len(t, k1, 32)

		k2, err := DeriveKey("hunter2", salt, MinRounds)
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
	})

	t.Run("NulFixChangesKey", func(t *testing.T) {
		k1, err := DeriveKey("hunter2", salt, MinRounds)
		require.NoError(t, err)
		k2, err := DeriveKeyWithoutNul("hunter2", salt, MinRounds)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2, "the trailing NUL must affect the schedule")
	})

	t.Run("NormalizesPassword", func(t *testing.T) {
		// Precomposed and decomposed é must derive the same key.
		k1, err := DeriveKey("café", salt, MinRounds)
		require.NoError(t, err)
		k2, err := DeriveKey("café", salt, MinRounds)
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		// The trailing NUL keeps the schedule input non-empty.
		_, err := DeriveKey("", salt, MinRounds)
		assert.NoError(t, err)

		_, err = DeriveKeyWithoutNul("", salt, MinRounds)
		assert.Error(t, err)
	})

	t.Run("RejectBadRounds", func(t *testing.T) {
		_, err := DeriveKey("hunter2", salt, MaxRounds+1)
		assert.Error(t, err)
	})
}

func TestDeriveKeyPBE(t *testing.T) {
	k1 := DeriveKeyPBE("hunter2")
	require.Len(t, k1, 32)
	assert.Equal(t, k1, DeriveKeyPBE("hunter2"))
	assert.NotEqual(t, k1, DeriveKeyPBE("hunter3"))
}

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	require.NoError(t, err)
	require.Len(t, s1, SaltSize)

	s2, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestDetermineBestRounds(t *testing.T) {
	rounds, err := DetermineBestRounds()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rounds, MinRounds)
	assert.LessOrEqual(t, rounds, MaxRounds)
}

func TestCipherInfo(t *testing.T) {
	salt := testSalt()
	key, err := DeriveKey("hunter2", salt, MinRounds)
	require.NoError(t, err)

	ci := NewCipherInfo(key, salt, MinRounds)
	assert.Equal(t, salt, ci.Salt())
	assert.Equal(t, MinRounds, ci.Rounds())

	t.Run("RoundTrip", func(t *testing.T) {
		cipherText, err := ci.Encrypt([]byte("payload"))
		require.NoError(t, err)
		plainText, err := ci.Decrypt(cipherText)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), plainText)
	})

	t.Run("SaltIsACopy", func(t *testing.T) {
		s := ci.Salt()
		s[0] ^= 0xFF
		assert.Equal(t, salt, ci.Salt())
	})

	t.Run("Destroy", func(t *testing.T) {
		key2, err := DeriveKey("hunter2", salt, MinRounds)
		require.NoError(t, err)
		dead := NewCipherInfo(key2, salt, MinRounds)
		dead.Destroy()

		_, err = dead.Encrypt([]byte("payload"))
		assert.ErrorIs(t, err, ErrCipherDestroyed)
		_, err = dead.Decrypt([]byte("payload"))
		assert.ErrorIs(t, err, ErrCipherDestroyed)
	})
}

func TestCipherInfoPBE(t *testing.T) {
	ci := NewCipherInfoPBE("hunter2")
	assert.Empty(t, ci.Salt())
	assert.Zero(t, ci.Rounds())

	cipherText, err := ci.Encrypt([]byte("payload"))
	require.NoError(t, err)

	plainText, err := NewCipherInfoPBE("hunter2").Decrypt(cipherText)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), plainText)
}
