package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dapperAuteur/my-health-blueprint/internal/model"
)

// TokenTTL is the validity window of a magic-link token.
const TokenTTL = time.Hour

type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create mints a crypto-random 64-hex-char token for the user, valid for
// TokenTTL. Earlier outstanding tokens for the same user stay valid; a user
// who requests several links before verifying accumulates them.
func (s *TokenStore) Create(userID string) (*model.MagicToken, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expiresAt := time.Now().UTC().Add(TokenTTL)

	_, err := s.db.Exec(
		`INSERT INTO magic_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert magic token: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT token, user_id, expires_at, created_at FROM magic_tokens WHERE token = ?`,
		token,
	)
	var mt model.MagicToken
	if err := row.Scan(&mt.Token, &mt.UserID, &mt.ExpiresAt, &mt.CreatedAt); err != nil {
		return nil, fmt.Errorf("read magic token: %w", err)
	}
	return &mt, nil
}

// Consume atomically deletes the token and returns its owner's user id.
// Returns "" if the token does not exist or has expired at instant now
// (the boundary is exclusive: a token consumed exactly at its expiry
// instant is already expired). The single conditional DELETE ... RETURNING
// guarantees at most one of two racing verify calls succeeds.
func (s *TokenStore) Consume(token string, now time.Time) (string, error) {
	row := s.db.QueryRow(
		`DELETE FROM magic_tokens WHERE token = ? AND expires_at > ? RETURNING user_id`,
		token, now.UTC(),
	)
	var userID string
	err := row.Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("consume magic token: %w", err)
	}
	return userID, nil
}

// DeleteExpired removes tokens whose expiry is at or before now. Called by
// the background reaper; expired tokens are otherwise inert but accumulate.
func (s *TokenStore) DeleteExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_tokens WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired magic tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// CountForUser returns the number of outstanding tokens for a user.
func (s *TokenStore) CountForUser(userID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM magic_tokens WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count magic tokens: %w", err)
	}
	return n, nil
}
