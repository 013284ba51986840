package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateEmail is returned by CreateUser when the email is taken.
var ErrDuplicateEmail = errors.New("email already exists")

// User is an account row. Password holds the bcrypt hash and is never
// serialized to API responses.
type User struct {
	ID    int64
	Name  string
	Email string
}

// CreateUser hashes the password and inserts a new account.
// Returns ErrDuplicateEmail when the email is already registered.
func (db *DB) CreateUser(ctx context.Context, name, email, password string) (*User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := nowString()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, email, string(hashed), now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &User{ID: id, Name: name, Email: email}, nil
}

// GetUserByEmail retrieves an account by email.
// Returns ErrNotFound if no such user exists.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// VerifyUser checks email/password credentials against the stored hash.
// Returns ErrNotFound for an unknown email or a mismatched password, so
// callers cannot distinguish the two.
func (db *DB) VerifyUser(ctx context.Context, email, password string) (*User, error) {
	var u User
	var hash string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return &u, nil
}
