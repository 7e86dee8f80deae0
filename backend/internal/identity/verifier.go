// Package identity verifies bearer credentials issued by the institution's
// identity provider and yields the verified principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"attendtrack/backend/internal/shared"
)

// Principal is the verified identity behind a bearer token.
type Principal struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verifier validates a bearer credential and returns the principal it proves.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Claims are the token claims the provider issues for staff accounts.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HMAC-signed tokens from the identity provider.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier bound to the provider's signing secret.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates the token, returning the principal on success.
func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (*Principal, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrUnauthorized)
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, shared.ErrInvalidToken
	}

	uid := claims.Subject
	if uid == "" && claims.Email == "" {
		return nil, fmt.Errorf("%w: token carries neither subject nor email", shared.ErrInvalidToken)
	}

	return &Principal{UID: uid, Email: claims.Email, Name: claims.Name}, nil
}
