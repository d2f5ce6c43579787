package serverdb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/models"
)

// Session is a stored login session (without the plaintext token).
type Session struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CreateSession issues a new session for userID valid for ttl.
// Returns the plaintext token (handed to the client once) and the record.
func (db *ServerDB) CreateSession(userID int64, ttl time.Duration) (string, *Session, error) {
	token, err := crypto.NewToken()
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	s := &Session{
		TokenHash: crypto.HashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	_, err = db.conn.Exec(
		`INSERT INTO sessions (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.TokenHash, s.UserID, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert session: %w", err)
	}
	return token, s, nil
}

// GetSessionUser resolves a plaintext token to its user.
// Returns nil, nil when the token is unknown or expired.
func (db *ServerDB) GetSessionUser(token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	hash := crypto.HashToken(token)

	var expiresAt time.Time
	var userID int64
	err := db.conn.QueryRow(`SELECT user_id, expires_at FROM sessions WHERE token_hash = ?`, hash).
		Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		slog.Debug("session not found", "token_hash_prefix", hash[:8])
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !expiresAt.After(time.Now().UTC()) {
		slog.Debug("session expired", "user_id", userID, "expires_at", expiresAt)
		return nil, nil
	}
	return db.GetUserByID(userID)
}

// DeleteSession removes the session for token. Returns false if none existed.
func (db *ServerDB) DeleteSession(token string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE token_hash = ?`, crypto.HashToken(token))
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CleanupExpiredSessions deletes expired sessions and returns how many.
func (db *ServerDB) CleanupExpiredSessions() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
