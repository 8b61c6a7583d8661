package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Failed to hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("Expected a hash, got the plain password")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Error("Expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("Expected wrong password to fail")
	}
	if CheckPassword("not-a-hash", "s3cret") {
		t.Error("Expected malformed hash to fail")
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := issuer.Issue("user7")
		if err != nil {
			t.Fatalf("Failed to issue: %v", err)
		}
		handle, err := issuer.Validate(token)
		if err != nil {
			t.Fatalf("Failed to validate: %v", err)
		}
		if handle != "user7" {
			t.Errorf("Expected user7, got %s", handle)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _ := NewTokenIssuer("other-secret", time.Hour).Issue("user7")
		if _, err := issuer.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		past := NewTokenIssuer("test-secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue("user7")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := issuer.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected expired token to be rejected, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := issuer.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}
