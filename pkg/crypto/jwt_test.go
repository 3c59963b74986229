package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lborres/tipsapi/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *JWTCodec {
	t.Helper()
	c, err := NewJWTCodec(testSecret, "tipsapi")
	require.NoError(t, err)
	return c
}

func TestNewJWTCodec_Secret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr error
	}{
		{name: "empty", secret: "", wantErr: core.ErrSecretRequired},
		{name: "too short", secret: "short", wantErr: core.ErrSecretTooShort},
		{name: "minimum length", secret: strings.Repeat("s", core.MinSecretLength)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewJWTCodec(test.secret, "")
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// Requirement: a signed token round-trips its identity claims and expiry.
func TestJWTCodec_SignVerify(t *testing.T) {
	// Arrange
	c := newTestCodec(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	// Act
	token, err := c.Sign(42, "alice", exp)
	require.NoError(t, err)
	claims, err := c.Verify(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.NotEmpty(t, claims.ID)
}

// Requirement: two tokens for the same user in the same second are distinct.
func TestJWTCodec_Sign_Distinct(t *testing.T) {
	c := newTestCodec(t)
	exp := time.Now().Add(time.Hour)

	a, err := c.Sign(1, "admin", exp)
	require.NoError(t, err)
	b, err := c.Sign(1, "admin", exp)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestJWTCodec_Verify_Failures(t *testing.T) {
	c := newTestCodec(t)
	valid, err := c.Sign(7, "bob", time.Now().Add(time.Hour))
	require.NoError(t, err)

	expired, err := c.Sign(7, "bob", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	other, err := NewJWTCodec(strings.Repeat("x", 40), "tipsapi")
	require.NoError(t, err)
	foreign, err := other.Sign(7, "bob", time.Now().Add(time.Hour))
	require.NoError(t, err)

	otherIssuer, err := NewJWTCodec(testSecret, "someone-else")
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.Sign(7, "bob", time.Now().Add(time.Hour))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           7,
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{UserID: 7})
	noExp, err := noExpiry.SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: core.ErrTokenMissing},
		{name: "garbage", token: "not.a.jwt", wantErr: core.ErrTokenInvalid},
		{name: "tampered", token: valid[:len(valid)-2] + "xx", wantErr: core.ErrTokenInvalid},
		{name: "expired", token: expired, wantErr: core.ErrTokenExpired},
		{name: "wrong secret", token: foreign, wantErr: core.ErrTokenInvalid},
		{name: "wrong issuer", token: wrongIssuer, wantErr: core.ErrTokenInvalid},
		{name: "alg none", token: unsigned, wantErr: core.ErrTokenInvalid},
		{name: "missing exp", token: noExp, wantErr: core.ErrTokenInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			claims, err := c.Verify(test.token)

			assert.Nil(t, claims)
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

// Requirement: an expired token reports expiry even when its signature is valid.
func TestJWTCodec_Verify_ExpiryUsesClock(t *testing.T) {
	c := newTestCodec(t)
	issued := time.Now()
	token, err := c.Sign(3, "carol", issued.Add(time.Hour))
	require.NoError(t, err)

	c.now = func() time.Time { return issued.Add(2 * time.Hour) }

	_, err = c.Verify(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}
