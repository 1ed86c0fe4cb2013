package util

import (
	"errors"
	"testing"
	"time"
)

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), time.Minute)

	token, err := signer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	ownerID, err := signer.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if ownerID != "user-42" {
		t.Fatalf("expected owner user-42, got %q", ownerID)
	}
}

func TestTokenSigner_RejectsForeignSignature(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), time.Minute)
	other := NewTokenSigner([]byte("other-secret"), time.Minute)

	token, err := other.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := signer.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenSigner_RejectsExpired(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), -time.Second)

	token, err := signer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := signer.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenSigner_RejectsGarbage(t *testing.T) {
	signer := NewTokenSigner([]byte("test-secret"), time.Minute)

	for _, token := range []string{"", "junk", "a.b", "a.b.c"} {
		if _, err := signer.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Validate(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestTokenSigner_RequiresSecret(t *testing.T) {
	signer := NewTokenSigner(nil, time.Minute)

	if _, err := signer.Issue("user-42"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
