// Package session provides opaque-token session management backed by the
// sessions table.
//
// Tokens are random UUIDs handed to the client in an HttpOnly cookie. Lookup
// resolves a token to a numeric user ID; handlers receive that ID through an
// explicit context value rather than fetching the session themselves.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CookieName is the session cookie handed to clients.
const CookieName = "flowdeck_session"

// DefaultTTL is how long a session stays valid without re-login.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNoSession is returned when a token is unknown or expired.
var ErrNoSession = errors.New("no valid session")

// Manager creates, resolves, and revokes sessions.
type Manager struct {
	db  *sql.DB
	ttl time.Duration
}

// NewManager returns a Manager over the given database. A zero ttl means
// DefaultTTL.
func NewManager(db *sql.DB, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{db: db, ttl: ttl}
}

// Create issues a new session token for the user.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID,
		now.Format(time.RFC3339),
		now.Add(m.ttl).Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

// Lookup resolves a token to a user ID. Expired sessions are deleted on
// sight and reported as ErrNoSession.
func (m *Manager) Lookup(ctx context.Context, token string) (int64, error) {
	var userID int64
	var expiresAt string
	err := m.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query session: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || time.Now().After(expiry) {
		_ = m.Delete(ctx, token)
		return 0, ErrNoSession
	}
	return userID, nil
}

// Delete revokes a session. Unknown tokens are a no-op.
func (m *Manager) Delete(ctx context.Context, token string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PruneExpired removes all expired sessions and returns the count removed.
func (m *Manager) PruneExpired(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
