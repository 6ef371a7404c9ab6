package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"scanpos/internal/domain"
	"scanpos/internal/records"
	"scanpos/internal/store/memory"
)

func newTestAuth(t *testing.T, users []domain.UserAccount) (*AuthManager, *records.Records) {
	t.Helper()

	recs := records.New(memory.New())
	if len(users) > 0 {
		if err := recs.SaveUsers(context.Background(), users); err != nil {
			t.Fatalf("seed users: %v", err)
		}
	}
	return NewAuthManager("test-secret-key", time.Hour, recs), recs
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t, []domain.UserAccount{
		{Username: "admin", Password: mustHashPassword(t, "admin123"), Role: "admin", Active: true},
	})

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	auth, _ := newTestAuth(t, []domain.UserAccount{
		{Username: "ghost", Password: mustHashPassword(t, "ghost123"), Role: "cashier", Active: false},
	})

	if _, err := auth.Login(domain.LoginRequest{Username: "ghost", Password: "ghost123"}); err == nil {
		t.Fatalf("expected login to fail for inactive account")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth, _ := newTestAuth(t, nil)

	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected parse error for garbage token")
	}
}

func TestBootstrapUpgradesPlainTextPasswords(t *testing.T) {
	auth, recs := newTestAuth(t, []domain.UserAccount{
		{Username: "legacy", Password: "plaintext1", Role: "cashier", Active: true},
	})

	// Login must succeed against the plain-text seed and leave a bcrypt hash
	// behind in the store.
	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plaintext1"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := recs.Users(context.Background())
	if err != nil {
		t.Fatalf("load users: %v", err)
	}
	if len(users) != 1 || !isPasswordHash(users[0].Password) {
		t.Fatalf("expected stored password upgraded to a hash, got %+v", users)
	}
}

func TestLoginPicksUpUsersSeededAfterConstruction(t *testing.T) {
	auth, recs := newTestAuth(t, nil)

	// The account lands in the store after the manager booted, as seeding or a
	// second instance would do. The cache miss triggers a reload.
	user := domain.UserAccount{Username: "late", Password: mustHashPassword(t, "late123"), Role: "cashier", Active: true}
	if err := recs.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, err := auth.Login(domain.LoginRequest{Username: "late", Password: "late123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "cashier" {
		t.Fatalf("unexpected role: %s", resp.Role)
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth, _ := newTestAuth(t, nil)

	cases := []domain.CashierCreateRequest{
		{Username: "ab", Password: "secret1"},
		{Username: "valid user", Password: "secret1"},
		{Username: "validname", Password: "123"},
	}
	for i, req := range cases {
		if _, err := auth.CreateCashier(req); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, req)
		}
	}

	cashier, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "Kasir1", Password: "secret1"})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if cashier.Username != "kasir1" || cashier.Role != "cashier" || !cashier.Active {
		t.Fatalf("unexpected cashier: %+v", cashier)
	}

	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "kasir1", Password: "secret1"}); err == nil || !strings.Contains(err.Error(), "exists") {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	listed := auth.ListCashiers()
	if len(listed) != 1 || listed[0].Username != "kasir1" {
		t.Fatalf("unexpected cashier list: %+v", listed)
	}
}
