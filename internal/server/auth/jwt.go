// Package auth mints and verifies the stateless bearer tokens that gate
// every file operation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultValidity is how long a token stays valid when no duration is
// configured.
const DefaultValidity = time.Hour

// Token is a signed bearer token and the instant it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenIssuer signs HS256 tokens whose subject is the user id.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenIssuer returns an issuer using the wall clock. A non-positive
// validity falls back to DefaultValidity.
func NewTokenIssuer(secret []byte, validity time.Duration) *TokenIssuer {
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &TokenIssuer{secret: secret, validity: validity, now: time.Now}
}

// WithClock replaces the clock used for issuing and verifying.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

func (i *TokenIssuer) Issue(userID string) (*Token, error) {
	now := i.now()
	expires := now.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return nil, err
	}

	return &Token{Value: tokenString, ExpiresAt: expires.Truncate(time.Second)}, nil
}

// Verify returns the user id carried by tokenString. Every failure wraps
// common.ErrorUnauthorized; expired tokens additionally match
// common.ErrTokenExpired.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired)
		}
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	return claims.Subject, nil
}
