package auth

import (
	"testing"
	"time"
)

func TestLoginAndVerify(t *testing.T) {
	m, err := NewManager("test-secret", "letmein")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Login("letmein")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Verify(token); err != nil {
		t.Fatalf("verify fresh token: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	m, err := NewManager("test-secret", "letmein")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Login("nope"); err != ErrBadPassword {
		t.Fatalf("expected ErrBadPassword, got %v", err)
	}
}

func TestVerifyRejectsGarbageAndForeignTokens(t *testing.T) {
	m, _ := NewManager("secret-a", "pw")
	other, _ := NewManager("secret-b", "pw")

	if err := m.Verify("not-a-jwt"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	foreign, err := other.Login("pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Verify(foreign); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, err := NewManager("test-secret", "pw")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.issue(time.Now().Add(-TokenTTL - time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestNewManagerRequiresSecretAndPassword(t *testing.T) {
	if _, err := NewManager("", "pw"); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewManager("s", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
