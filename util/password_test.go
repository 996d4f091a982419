package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, saltLen*2)

	hash, err := HashPasswordArgon2("s3cret!", salt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "argon2id$"))

	ok, err := VerifyPassword("s3cret!", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash, salt)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltMatters(t *testing.T) {
	h1, err := HashPasswordArgon2("password", "salt-one")
	require.NoError(t, err)
	h2, err := HashPasswordArgon2("password", "salt-two")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = HashPasswordArgon2("password", "")
	assert.Error(t, err)
}

func TestVerifyPasswordRejectsUnknownHash(t *testing.T) {
	_, err := VerifyPassword("password", "plaintext", "salt")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestGeneratePassword(t *testing.T) {
	p1 := GeneratePassword()
	p2 := GeneratePassword()
	assert.Len(t, p1, 8)
	assert.NotEqual(t, p1, p2)
}

func TestNewPasswordHash(t *testing.T) {
	hash, salt, err := NewPasswordHash("abc12345")
	require.NoError(t, err)
	ok, err := VerifyPassword("abc12345", hash, salt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret-123")

	token, err := IssueSessionToken(42, 2, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, uint32(2), claims.RoleID)
}

func TestSessionTokenExpiredOrForeign(t *testing.T) {
	SetJWTSecret("test-secret-123")

	expired, err := IssueSessionToken(1, 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ParseSessionToken(expired)
	assert.Error(t, err)

	token, err := IssueSessionToken(1, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	SetJWTSecret("another-secret")
	_, err = ParseSessionToken(token)
	assert.Error(t, err)
	SetJWTSecret("test-secret-123")
}

func TestIssueSessionTokenNeedsSecret(t *testing.T) {
	SetJWTSecret("")
	defer SetJWTSecret("test-secret-123")

	_, err := IssueSessionToken(1, 1, time.Now().Add(time.Hour))
	assert.Error(t, err)
}
