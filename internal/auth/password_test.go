package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt.MinCost keeps each hash in the low milliseconds.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(bcrypt.MinCost)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"), "not a bcrypt hash: %q", hash)
}

func TestHash_SaltIsRandom(t *testing.T) {
	ps := newTestPasswordService()

	hash1, err := ps.Hash("same-password")
	require.NoError(t, err)
	hash2, err := ps.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestHash_LengthLimit(t *testing.T) {
	ps := newTestPasswordService()

	_, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)

	_, err = ps.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse-battery-staple")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		assert.NoError(t, ps.Verify(hash, "correct-horse-battery-staple"))
	})

	t.Run("wrong password", func(t *testing.T) {
		err := ps.Verify(hash, "Correct-horse-battery-staple")
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("empty password", func(t *testing.T) {
		assert.ErrorIs(t, ps.Verify(hash, ""), ErrPasswordMismatch)
	})

	t.Run("garbage hash is not a mismatch", func(t *testing.T) {
		err := ps.Verify("not-a-valid-bcrypt-hash", "password")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrPasswordMismatch))
	})
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
	}{
		{"simple alphanumeric", "hello123"},
		{"special characters", "p@$$w0rd!#%"},
		{"unicode", "пароль-密码"},
		{"whitespace", "  leading and trailing  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			require.NoError(t, err)
			assert.NoError(t, ps.Verify(hash, tc.password))
		})
	}
}
