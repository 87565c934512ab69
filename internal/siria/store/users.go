package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups when no matching row exists.
var ErrNotFound = errors.New("store: not found")

// ErrUsernameTaken is returned by CreateUser when the username is already
// registered. It rides the UNIQUE constraint on users.username.
var ErrUsernameTaken = errors.New("store: username already exists")

// User is a registered account. The credential is an opaque string compared
// by the login handler; this package never interprets it.
type User struct {
	ID         int64
	Name       string
	Username   string
	Credential string
	CreatedAt  time.Time
}

// CreateUser inserts a new user with a unique lowercase username.
func (s *Store) CreateUser(ctx context.Context, name, username, credential string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, name, username, credential, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &User{ID: id, Name: name, Username: username, Credential: credential, CreatedAt: now}, nil
}

// FindUserByUsername looks up a user by its lowercase handle.
// Returns ErrNotFound when the username is unknown.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrNotFound
	}

	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`, username).Scan(&user.ID, &user.Name, &user.Username, &user.Credential, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
