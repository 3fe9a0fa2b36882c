package store

import (
	"testing"
	"time"
)

func setupTokenTest(t *testing.T) (*UserStore, *TokenStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewUserStore(db), NewTokenStore(db)
}

func TestTokenCreate(t *testing.T) {
	us, ts := setupTokenTest(t)
	u, _ := us.Create("alice@example.com")

	mt, err := ts.Create(u.ID)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if len(mt.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(mt.Token))
	}
	if mt.UserID != u.ID {
		t.Errorf("user id = %q, want %q", mt.UserID, u.ID)
	}

	ttl := time.Until(mt.ExpiresAt)
	if ttl < 59*time.Minute || ttl > 61*time.Minute {
		t.Errorf("ttl = %v, want about 1 hour", ttl)
	}
}

func TestTokenConsumeOnce(t *testing.T) {
	us, ts := setupTokenTest(t)
	u, _ := us.Create("alice@example.com")
	mt, _ := ts.Create(u.ID)

	now := time.Now().UTC()

	userID, err := ts.Consume(mt.Token, now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if userID != u.ID {
		t.Errorf("user id = %q, want %q", userID, u.ID)
	}

	// Consumption is destructive: a second verify must fail.
	userID, err = ts.Consume(mt.Token, now)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if userID != "" {
		t.Errorf("second consume returned %q, want empty", userID)
	}
}

func TestTokenConsumeUnknown(t *testing.T) {
	_, ts := setupTokenTest(t)

	userID, err := ts.Consume("deadbeef", time.Now().UTC())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if userID != "" {
		t.Errorf("consume of unknown token returned %q, want empty", userID)
	}
}

func TestTokenConsumeExpired(t *testing.T) {
	us, ts := setupTokenTest(t)
	u, _ := us.Create("alice@example.com")
	mt, _ := ts.Create(u.ID)

	// The boundary instant itself counts as expired.
	userID, err := ts.Consume(mt.Token, mt.ExpiresAt)
	if err != nil {
		t.Fatalf("consume at expiry: %v", err)
	}
	if userID != "" {
		t.Error("token consumed exactly at its expiry instant should be expired")
	}

	userID, err = ts.Consume(mt.Token, mt.ExpiresAt.Add(time.Second))
	if err != nil {
		t.Fatalf("consume after expiry: %v", err)
	}
	if userID != "" {
		t.Error("expired token should not be consumable")
	}
}

func TestTokenMultipleOutstanding(t *testing.T) {
	us, ts := setupTokenTest(t)
	u, _ := us.Create("alice@example.com")

	first, _ := ts.Create(u.ID)
	second, _ := ts.Create(u.ID)

	if n, _ := ts.CountForUser(u.ID); n != 2 {
		t.Fatalf("outstanding tokens = %d, want 2", n)
	}

	now := time.Now().UTC()

	// Issuing a new token does not invalidate the earlier one.
	if userID, _ := ts.Consume(first.Token, now); userID != u.ID {
		t.Error("first token should still be valid after a second was issued")
	}
	if userID, _ := ts.Consume(second.Token, now); userID != u.ID {
		t.Error("second token should be valid")
	}
}

func TestTokenDeleteExpired(t *testing.T) {
	us, ts := setupTokenTest(t)
	u, _ := us.Create("alice@example.com")

	first, _ := ts.Create(u.ID)
	second, _ := ts.Create(u.ID)

	count, err := ts.DeleteExpired(first.ExpiresAt.Add(-30 * time.Minute))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 0 {
		t.Errorf("deleted = %d, want 0 before expiry", count)
	}

	count, err = ts.DeleteExpired(second.ExpiresAt)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted = %d, want 2", count)
	}

	if userID, _ := ts.Consume(first.Token, time.Now().UTC()); userID != "" {
		t.Error("swept token should be gone")
	}
}
