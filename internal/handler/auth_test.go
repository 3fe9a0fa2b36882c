package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dapperAuteur/my-health-blueprint/internal/database"
	"github.com/dapperAuteur/my-health-blueprint/internal/email"
	"github.com/dapperAuteur/my-health-blueprint/internal/store"
)

type authTestEnv struct {
	db     *sql.DB
	users  *store.UserStore
	tokens *store.TokenStore
	h      *AuthHandler
}

func setupAuthTest(t *testing.T) *authTestEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)
	// Unconfigured email client: tokens are logged instead of mailed
	ec := email.NewClient("", "", "http://localhost:8080")

	return &authTestEnv{
		db:     db,
		users:  users,
		tokens: tokens,
		h:      NewAuthHandler(users, tokens, ec, slog.Default()),
	}
}

func (env *authTestEnv) latestToken(t *testing.T, userID string) string {
	t.Helper()
	var token string
	err := env.db.QueryRow(
		`SELECT token FROM magic_tokens WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&token)
	if err != nil {
		t.Fatalf("read issued token: %v", err)
	}
	return token
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestMagicLinkInvalidEmail(t *testing.T) {
	env := setupAuthTest(t)

	for _, body := range []string{
		`{"email":""}`,
		`{"email":"no-at-sign"}`,
		`{}`,
		`not json`,
	} {
		rec := postJSON(t, env.h.MagicLink, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestMagicLinkCreatesUserAndToken(t *testing.T) {
	env := setupAuthTest(t)

	rec := postJSON(t, env.h.MagicLink, `{"email":"new@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["success"] != true {
		t.Errorf("response = %v, want success true", resp)
	}

	user, err := env.users.GetByEmail("new@example.com")
	if err != nil || user == nil {
		t.Fatalf("user not created: %v", err)
	}
	if n, _ := env.tokens.CountForUser(user.ID); n != 1 {
		t.Errorf("outstanding tokens = %d, want 1", n)
	}

	// A repeat request reuses the user and mints a fresh token
	postJSON(t, env.h.MagicLink, `{"email":"new@example.com"}`)
	if n, _ := env.tokens.CountForUser(user.ID); n != 2 {
		t.Errorf("outstanding tokens = %d, want 2", n)
	}
}

func TestVerifyIsSingleUse(t *testing.T) {
	env := setupAuthTest(t)

	postJSON(t, env.h.MagicLink, `{"email":"alice@example.com"}`)
	user, _ := env.users.GetByEmail("alice@example.com")
	token := env.latestToken(t, user.ID)

	rec := postJSON(t, env.h.Verify, `{"token":"`+token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["userId"] != user.ID {
		t.Errorf("userId = %v, want %q", resp["userId"], user.ID)
	}

	// Single use: the same token must not verify twice
	rec = postJSON(t, env.h.Verify, `{"token":"`+token+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second verify status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	env := setupAuthTest(t)

	rec := postJSON(t, env.h.Verify, `{"token":"deadbeef"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	env := setupAuthTest(t)

	user, _ := env.users.Create("alice@example.com")
	mt, _ := env.tokens.Create(user.ID)

	past := time.Now().UTC().Add(-time.Minute)
	if _, err := env.db.Exec(`UPDATE magic_tokens SET expires_at = ? WHERE token = ?`, past, mt.Token); err != nil {
		t.Fatalf("expire token: %v", err)
	}

	rec := postJSON(t, env.h.Verify, `{"token":"`+mt.Token+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for expired token", rec.Code, http.StatusBadRequest)
	}
}
