package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTManager(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := manager.Generate("alice", true)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		identity, err := manager.Verify(token)
		if err != nil {
			t.Fatalf("Verify failed: %v", err)
		}
		if identity.PersonID != "alice" || !identity.Admin {
			t.Errorf("unexpected identity: %+v", identity)
		}
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		token, err := NewJWTManager("other-secret", time.Hour).Generate("alice", false)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := NewJWTManager("test-secret", -time.Minute).Generate("alice", false)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("empty person id cannot be issued", func(t *testing.T) {
		if _, err := manager.Generate("", false); err == nil {
			t.Error("Expected error for empty person id")
		}
	})
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	claims := &Claims{
		PersonID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTManager("test-secret", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}
