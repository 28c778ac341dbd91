package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateUser inserts a user. A duplicate username or email yields ErrConflict.
func (m *Manager) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	res, err := m.db.GetDB().ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// GetUserByID returns ErrNotFound when the user does not exist
func (m *Manager) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return m.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail returns ErrNotFound when no account uses the email
func (m *Manager) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return m.getUser(ctx, `WHERE email = ?`, email)
}

// FindUserByNameOrEmail returns the first user whose username or email
// matches, used to reject duplicate registrations
func (m *Manager) FindUserByNameOrEmail(ctx context.Context, username, email string) (*User, error) {
	return m.getUser(ctx, `WHERE username = ? OR email = ? LIMIT 1`, username, email)
}

func (m *Manager) getUser(ctx context.Context, where string, args ...interface{}) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var u User
	err := m.db.GetDB().QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users `+where, args...,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
