package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "m1001@temp.pwaburton.org", "M1001", "member", "secret", 15)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "M1001", claims.MemberNumber)
	assert.Equal(t, "member", claims.Role)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "a@b.c", "", "", "secret", 15)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken("user-1", "a@b.c", "", "", "secret", -1)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken("user-1", "token-id-1", "refresh-secret", 7)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(token, "refresh-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "token-id-1", claims.TokenID)
}

func TestTokensNotInterchangeable(t *testing.T) {
	access, err := GenerateAccessToken("user-1", "a@b.c", "", "", "secret", 15)
	require.NoError(t, err)

	// An access token parsed as a refresh token yields empty refresh claims
	claims, err := ValidateRefreshToken(access, "secret")
	if err == nil {
		assert.Empty(t, claims.TokenID)
	}
}
