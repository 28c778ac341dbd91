package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession stores a session for the given token hash
func (m *Manager) CreateSession(ctx context.Context, tokenHash string, userID int64, ttl time.Duration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	sess := &Session{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err := m.db.GetDB().ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.TokenHash, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSessionUser resolves a token hash to its user. Expired and unknown
// sessions yield ErrNotFound.
func (m *Manager) GetSessionUser(ctx context.Context, tokenHash string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var u User
	err := m.db.GetDB().QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ? AND s.expires_at > ?`,
		tokenHash, m.now(),
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &u, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (m *Manager) DeleteSession(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.GetDB().ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired sessions and returns how many
func (m *Manager) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.GetDB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}
