package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
)

// CreateUser stores a new user row with its password hash.
func (db *DB) CreateUser(ctx context.Context, u models.User, passwordHash string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Email, passwordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// UserByEmail returns the user with the given email and its password hash.
func (db *DB) UserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var u models.User
	var hash string
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", apperr.ErrNotFound
	}
	if err != nil {
		return models.User{}, "", fmt.Errorf("store: user by email: %w", err)
	}
	return u, hash, nil
}

// UserByID returns the user with the given id.
func (db *DB) UserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, email, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("store: user by id: %w", err)
	}
	return u, nil
}
