package service

import (
	"errors"
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("secret-1")
	token, expiresAt, err := svc.GenerateServiceToken("checkout", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry should be in the future")
	}
	claims, err := svc.ParseServiceToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.Caller != "checkout" || claims.Subject != "checkout" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestServiceTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewAuthService("secret-1").GenerateServiceToken("checkout", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := NewAuthService("secret-2").ParseServiceToken(token); !errors.Is(err, ErrServiceTokenInvalid) {
		t.Fatalf("want ErrServiceTokenInvalid got %v", err)
	}
}

func TestServiceTokenRejectsExpired(t *testing.T) {
	svc := NewAuthService("secret-1")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.GenerateServiceToken("checkout", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := NewAuthService("secret-1").ParseServiceToken(token); !errors.Is(err, ErrServiceTokenInvalid) {
		t.Fatalf("expired token should be rejected, got %v", err)
	}
}

func TestServiceTokenWithoutSecret(t *testing.T) {
	svc := NewAuthService(" ")
	if _, _, err := svc.GenerateServiceToken("checkout", time.Hour); !errors.Is(err, ErrServiceSecretMissing) {
		t.Fatalf("want ErrServiceSecretMissing got %v", err)
	}
}
