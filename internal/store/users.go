package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"spotliner/internal/auth"
)

// dummyPasswordHash keeps login timing uniform for unknown emails.
var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// CreateUser registers a new account with the default role. Emails are
// matched case-insensitively.
func (s *Store) CreateUser(ctx context.Context, email, password string, displayName *string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("valid email is required")
	}
	if len(password) < 6 {
		return User{}, fmt.Errorf("password must be at least 6 characters")
	}

	var existing int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE LOWER(email) = $1
	`, email).Scan(&existing)
	if err == nil {
		return User{}, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	var user User
	var role string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, display_name, role, created_at
	`, email, hash, nullIfEmpty(displayName), string(auth.RoleUser)).
		Scan(&user.ID, &user.Email, &user.DisplayName, &role, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	user.Role, err = auth.ParseRole(role)
	if err != nil {
		return User{}, fmt.Errorf("parse role: %w", err)
	}
	return user, nil
}

// Authenticate validates credentials and returns the matching user.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		user User
		role string
		hash []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, password_hash, created_at
		FROM users
		WHERE LOWER(email) = $1
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &role, &hash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	user.Role, err = auth.ParseRole(role)
	if err != nil {
		return User{}, fmt.Errorf("parse role: %w", err)
	}
	return user, nil
}

// UserByID loads a single user.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var (
		user User
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.DisplayName, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}

	user.Role, err = auth.ParseRole(role)
	if err != nil {
		return User{}, fmt.Errorf("parse role: %w", err)
	}
	return user, nil
}
