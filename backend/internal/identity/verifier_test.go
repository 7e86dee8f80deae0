package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"attendtrack/backend/internal/shared"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func staffClaims() Claims {
	return Claims{
		Email: "teacher@example.edu",
		Name:  "Test Teacher",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "teacher-uid-1",
			Issuer:    "identity.example.edu",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestJWTVerifier(t *testing.T) {
	ctx := context.Background()
	v := NewJWTVerifier(testSecret, "identity.example.edu")

	t.Run("valid token yields the principal", func(t *testing.T) {
		p, err := v.Verify(ctx, mintToken(t, testSecret, staffClaims()))
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if p.UID != "teacher-uid-1" || p.Email != "teacher@example.edu" || p.Name != "Test Teacher" {
			t.Errorf("principal = %+v", p)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := staffClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		if _, err := v.Verify(ctx, mintToken(t, testSecret, claims)); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("Verify error = %v, want ErrTokenExpired", err)
		}
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		if _, err := v.Verify(ctx, mintToken(t, "other-secret", staffClaims())); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := staffClaims()
		claims.Issuer = "attacker.example.com"
		if _, err := v.Verify(ctx, mintToken(t, testSecret, claims)); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("issuer check skipped when not configured", func(t *testing.T) {
		lax := NewJWTVerifier(testSecret, "")
		claims := staffClaims()
		claims.Issuer = "anything"
		if _, err := lax.Verify(ctx, mintToken(t, testSecret, claims)); err != nil {
			t.Errorf("Verify failed: %v", err)
		}
	})

	t.Run("token without subject falls back to email", func(t *testing.T) {
		claims := staffClaims()
		claims.Subject = ""
		p, err := v.Verify(ctx, mintToken(t, testSecret, claims))
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if p.UID != "" || p.Email != "teacher@example.edu" {
			t.Errorf("principal = %+v", p)
		}
	})

	t.Run("token with neither subject nor email", func(t *testing.T) {
		claims := staffClaims()
		claims.Subject = ""
		claims.Email = ""
		if _, err := v.Verify(ctx, mintToken(t, testSecret, claims)); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage and empty tokens", func(t *testing.T) {
		if _, err := v.Verify(ctx, "not.a.jwt"); !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("Verify error = %v, want ErrInvalidToken", err)
		}
		if _, err := v.Verify(ctx, "  "); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("Verify error = %v, want ErrUnauthorized", err)
		}
	})
}
