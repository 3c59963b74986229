package crypto

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lborres/tipsapi/core"
)

// jwtClaims is the wire form of an auth token.
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// JWTCodec signs and verifies HS256 tokens.
type JWTCodec struct {
	secret []byte
	issuer string
	ids    *NanoIDGenerator
	now    func() time.Time
}

var _ core.TokenCodec = (*JWTCodec)(nil)

func NewJWTCodec(secret, issuer string) (*JWTCodec, error) {
	if secret == "" {
		return nil, core.ErrSecretRequired
	}
	if len(secret) < core.MinSecretLength {
		return nil, fmt.Errorf("%w - minimum of %d characters", core.ErrSecretTooShort, core.MinSecretLength)
	}

	ids, err := NewNanoID()
	if err != nil {
		return nil, err
	}

	return &JWTCodec{secret: []byte(secret), issuer: issuer, ids: ids, now: time.Now}, nil
}

// Sign issues a token for the user that expires at expiresAt.
// Every token carries a random jti, so two tokens issued within the same
// second for the same user still differ.
func (c *JWTCodec) Sign(userID int64, username string, expiresAt time.Time) (string, error) {
	jti, err := c.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}

	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Expired tokens yield core.ErrTokenExpired,
// every other failure yields core.ErrTokenInvalid.
func (c *JWTCodec) Verify(tokenString string) (*core.Claims, error) {
	if tokenString == "" {
		return nil, core.ErrTokenMissing
	}

	claims := &jwtClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrTokenInvalid, err)
	}
	if claims.UserID <= 0 {
		return nil, core.ErrTokenInvalid
	}

	out := &core.Claims{
		ID:        claims.ID,
		UserID:    claims.UserID,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
