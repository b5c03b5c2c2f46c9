package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dukapos/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
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

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "428613", store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginRejectsWrongPasswordAndInactiveAccount(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {Username: "admin", Password: "admin123", Role: "admin", Active: true},
			"ghost": {Username: "ghost", Password: "ghost123", Role: "cashier", Active: false},
		},
	}
	manager := NewAuthManager("test-secret", time.Hour, "428613", store)

	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password rejected")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "ghost", Password: "ghost123"}); err == nil {
		t.Fatalf("expected inactive account rejected")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"kasi": {Username: "kasi", Password: "kasi1234", Role: "cashier", Active: true},
		},
	}
	manager := NewAuthManager("test-secret", time.Hour, "428613", store)

	resp, err := manager.Login(domain.LoginRequest{Username: "kasi", Password: "kasi1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "kasi" || actor.Role != "cashier" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := manager.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token rejected")
	}
}

func TestValidateManagerPIN(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "428613", nil)

	if !manager.ValidateManagerPIN("428613") {
		t.Fatalf("expected correct PIN accepted")
	}
	if manager.ValidateManagerPIN("000000") {
		t.Fatalf("expected wrong PIN rejected")
	}
	if manager.ValidateManagerPIN("") {
		t.Fatalf("expected empty PIN rejected")
	}
}
