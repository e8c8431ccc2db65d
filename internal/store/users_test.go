package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"spotliner/internal/auth"
)

func TestCreateUserValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "secret1"},
		{name: "email without at sign", email: "not-an-email", password: "secret1"},
		{name: "short password", email: "a@b.com", password: "abc"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreateUser(ctx, tc.email, tc.password, nil); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id
		FROM users
		WHERE LOWER(email) = $1
	`)).
		WithArgs("user@example.com").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, display_name, role, created_at
	`)).
		WithArgs("user@example.com", sqlmock.AnyArg(), nil, "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "role", "created_at"}).
			AddRow(int64(1), "user@example.com", nil, "user", sampleTime))

	got, err := s.CreateUser(context.Background(), "  User@Example.COM ", "secret1", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got.Email != "user@example.com" || got.Role != auth.RoleUser {
		t.Fatalf("unexpected user: %#v", got)
	}
	if got.DisplayName != nil {
		t.Fatalf("expected NULL display name, got %q", *got.DisplayName)
	}
	if got.Name() != "user@example.com" {
		t.Fatalf("expected email fallback name, got %q", got.Name())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserEmailTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id
		FROM users
		WHERE LOWER(email) = $1
	`)).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	_, err = s.CreateUser(context.Background(), "taken@example.com", "secret1", nil)
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, email, display_name, role, password_hash, created_at
		FROM users
		WHERE LOWER(email) = $1
	`)).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err = s.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
