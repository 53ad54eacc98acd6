package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCreateAndVerifyToken(t *testing.T) {
	cfg := TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := CreateToken(42, cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	claims, err := VerifyToken(tok, cfg)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%v)", id, err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	cfg := TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := CreateToken(1, cfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	_, err = VerifyToken(tok, TokenConfig{Secret: "wrong", Expiry: time.Hour, Issuer: "test"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestCreateToken_Invalid(t *testing.T) {
	if _, err := CreateToken(1, TokenConfig{Secret: "secret", Expiry: -time.Second}); err == nil {
		t.Fatalf("expected error for negative expiry")
	}
	if _, err := CreateToken(0, DefaultTokenConfig("secret")); err == nil {
		t.Fatalf("expected error for zero user id")
	}
	if _, err := CreateToken(1, DefaultTokenConfig("")); err == nil {
		t.Fatalf("expected error for missing secret")
	}
}

func TestClaims_UserIDRejectsGarbage(t *testing.T) {
	c := &Claims{}
	c.Subject = "abc"
	if _, err := c.UserID(); !errors.Is(err, ErrTokenSubject) {
		t.Fatalf("expected ErrTokenSubject, got %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("hash must not equal the password")
	}
	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "nope"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
