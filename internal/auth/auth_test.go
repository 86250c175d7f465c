package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherRoundTrip(t *testing.T) {
	hasher := NewHasher(1000)

	record, err := hasher.Create("secret1")
	require.NoError(t, err)

	assert.Len(t, record.Hash, 128)
	assert.Len(t, record.Salt, 32)
	assert.Equal(t, 1000, record.Iterations)
	assert.True(t, hasher.Verify("secret1", record))
	assert.False(t, hasher.Verify("secret2", record))
	assert.False(t, hasher.Verify("", record))
}

func TestHasherFreshSalt(t *testing.T) {
	hasher := NewHasher(1000)

	a, err := hasher.Create("secret1")
	require.NoError(t, err)
	b, err := hasher.Create("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestHasherVerifiesOtherCost(t *testing.T) {
	old, err := NewHasher(500).Create("secret1")
	require.NoError(t, err)

	assert.True(t, NewHasher(DefaultIterations).Verify("secret1", old))
}

func TestHasherRejectsEmptyPassword(t *testing.T) {
	_, err := NewHasher(0).Create("")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestHasherMalformedRecord(t *testing.T) {
	hasher := NewHasher(1000)

	assert.False(t, hasher.Verify("secret1", types.AuthRecord{}))
	assert.False(t, hasher.Verify("secret1", types.AuthRecord{Hash: "zz", Salt: "aa", Iterations: 1}))
}

func TestTokenRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", 0)
	require.NoError(t, err)

	token, err := codec.Issue("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	accountID, err := codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", accountID)

	extracted, ok := ExtractAccountID(token)
	assert.True(t, ok)
	assert.Equal(t, accountID, extracted)
}

func TestTokenWithoutExpiry(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", 0)
	require.NoError(t, err)

	token, err := codec.Issue("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(10 * 365 * 24 * time.Hour) }
	_, err = codec.Validate(token)
	assert.NoError(t, err)
}

func TestTokenExpiry(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", time.Hour)
	require.NoError(t, err)

	token, err := codec.Issue("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = codec.Validate(token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokenValidateFailures(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", 0)
	require.NoError(t, err)
	other, err := NewTokenCodec("other-secret", 0)
	require.NoError(t, err)

	foreign, err := other.Issue("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	anonymous, err := codec.Issue("")
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{User: "507f1f77bcf86cd799439011"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"missing":       "",
		"malformed":     "not.a.token",
		"bad signature": foreign,
		"empty subject": anonymous,
		"alg none":      none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Validate(token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
			assert.True(t, apperr.ForceLogOut(err))
		})
	}
}

func TestExtractAccountIDMalformed(t *testing.T) {
	_, ok := ExtractAccountID("garbage")
	assert.False(t, ok)
}

func TestNewTokenCodecRequiresSecret(t *testing.T) {
	_, err := NewTokenCodec("  ", 0)
	assert.Error(t, err)
}
