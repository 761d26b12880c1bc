package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
}

func TestHashPassword_OverLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("x", maxPasswordBytes+1))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestHashPassword_LongPasswordsNotTruncated(t *testing.T) {
	// bcrypt alone silently truncates past 72 bytes; the SHA-256 pre-hash
	// must keep long passwords distinct.
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long)
	require.NoError(t, err)

	assert.True(t, CheckPassword(long, hash))
	assert.False(t, CheckPassword(strings.Repeat("a", 72)+"different-tail-beyond-bcrypt", hash))
}

func TestCheckPassword_BadInputs(t *testing.T) {
	hash, err := HashPassword("some password")
	require.NoError(t, err)

	assert.False(t, CheckPassword("", hash))
	assert.False(t, CheckPassword(strings.Repeat("x", maxPasswordBytes+1), hash))
	assert.False(t, CheckPassword("some password", "not-a-bcrypt-hash"))
}
