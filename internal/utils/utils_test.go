package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("s3cret", 42, "OWNER", 15)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), at.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", at.Token)
	require.NoError(t, err)
	require.Equal(t, "OWNER", claims.Role)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
}

func TestParseAccessTokenRejects(t *testing.T) {
	at, err := NewAccessToken("s3cret", 1, "TENANT", 15)
	require.NoError(t, err)

	_, err = ParseAccessToken("other", at.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAccessToken("s3cret", 1, "TENANT", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", none)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	require.Len(t, rt.Raw, 96)
	require.Len(t, HashRefreshRaw(rt.Raw), 64)
	require.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
	require.NotEqual(t, rt.Raw, HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	require.True(t, VerifyPassword(h, "correct horse"))
	require.False(t, VerifyPassword(h, "battery staple"))
}
