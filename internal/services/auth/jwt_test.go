package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issuedAt }

	token, expiresAt, err := manager.GenerateAccessToken(101)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if want := issuedAt.Add(time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := manager.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 101 {
		t.Fatalf("UserID = %d, want 101", claims.UserID)
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("claims.ExpiresAt = %v, want %v", claims.ExpiresAt, expiresAt)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour)

	token, _, err := issuer.GenerateAccessToken(101)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	if _, err := verifier.ParseAccessToken(token); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	for _, raw := range []string{"", "   ", "not-a-token"} {
		if _, err := manager.ParseAccessToken(raw); err != ErrUnauthorized {
			t.Fatalf("ParseAccessToken(%q) = %v, want ErrUnauthorized", raw, err)
		}
	}
}

func TestGenerateAccessTokenRequiresSecretAndUser(t *testing.T) {
	if _, _, err := NewJWTManager("", time.Hour).GenerateAccessToken(101); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, _, err := NewJWTManager("test-secret", time.Hour).GenerateAccessToken(0); err == nil {
		t.Fatal("expected error for zero user id")
	}
}
