package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, claims, err := IssueToken(secret, Claims{ID: 7, Name: "Avery", Role: RoleAdmin, IsSuper: true}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if claims.RegisteredClaims.ID == "" || claims.Subject != "7" {
		t.Fatalf("expected jti and subject to be filled in: %+v", claims)
	}
	parsed, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if parsed.ID != 7 || parsed.Name != "Avery" || parsed.Role != RoleAdmin || !parsed.IsSuper {
		t.Fatalf("unexpected claims: %+v", parsed)
	}
	if parsed.RegisteredClaims.ID != claims.RegisteredClaims.ID {
		t.Fatalf("jti = %q, want %q", parsed.RegisteredClaims.ID, claims.RegisteredClaims.ID)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, _, err := IssueToken(secret, Claims{
		ID:   1,
		Role: RoleStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	_, err = ParseToken(secret, issued)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issued, _, err := IssueToken([]byte("secret"), Claims{ID: 1, Role: RoleStudent}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("other"), issued); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsTampered(t *testing.T) {
	secret := []byte("secret")
	issued, _, err := IssueToken(secret, Claims{ID: 1, Role: RoleStudent}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	parts := strings.Split(issued, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	if _, err := ParseToken(secret, parts[0]+"."+parts[1]+".AAAA"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseToken(secret, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("HashToken must be deterministic and input sensitive")
	}
	if len(HashToken("abc")) != 64 {
		t.Fatalf("HashToken length = %d, want 64", len(HashToken("abc")))
	}
}
