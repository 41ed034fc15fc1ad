package httpapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bengkelin/backend/internal/domain"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func stubWithUser(t *testing.T, username, password, role string, active bool) *userStoreStub {
	t.Helper()
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			username: {
				Username:  username,
				Password:  hashFor(t, password),
				Role:      role,
				Active:    active,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, stubWithUser(t, "admin", "admin123", "admin", true))

	resp, err := auth.Login(domain.LoginRequest{Username: "ADMIN", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role, got %q", resp.Role)
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Fatalf("expected RFC3339 expiry, got %q", resp.ExpiresAt)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, stubWithUser(t, "admin", "admin123", "admin", true))

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := auth.Login(domain.LoginRequest{Username: "nobody", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, stubWithUser(t, "mechanic", "bengkel123", "mechanic", false))

	if _, err := auth.Login(domain.LoginRequest{Username: "mechanic", Password: "bengkel123"}); err == nil {
		t.Fatalf("expected inactive account to fail")
	}
}

func TestLoginRejectsPlainTextStoredPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"legacy": {
				Username: "legacy",
				Password: "plaintext-password",
				Role:     "mechanic",
				Active:   true,
			},
		},
	}
	auth := NewAuthManager("unit-secret", time.Hour, store)

	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext-password"}); err == nil {
		t.Fatalf("expected unhashed stored password to be unusable")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, stubWithUser(t, "admin", "admin123", "admin", true))
	verifier := NewAuthManager("secret-two", time.Hour, nil)

	resp, err := issuer.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, nil)

	token, err := auth.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("unit-secret", time.Hour, nil)

	if _, err := auth.ParseToken("not.a.token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}
