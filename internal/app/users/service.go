package users

import (
	"context"
	"fmt"

	"spotliner/internal/auth"
	"spotliner/internal/store"
)

// Store captures the persistence needs for account workflows.
type Store interface {
	CreateUser(ctx context.Context, email, password string, displayName *string) (store.User, error)
	Authenticate(ctx context.Context, email, password string) (store.User, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
}

// Service coordinates registration, login and profile reads.
type Service interface {
	Register(ctx context.Context, email, password string, displayName *string) (store.User, string, error)
	Login(ctx context.Context, email, password string) (store.User, string, error)
	Me(ctx context.Context, userID int64) (store.User, error)
}

type service struct {
	store  Store
	tokens *auth.TokenManager
}

// New constructs a Service backed by the provided Store and token signer.
func New(store Store, tokens *auth.TokenManager) Service {
	return &service{store: store, tokens: tokens}
}

func (s *service) Register(ctx context.Context, email, password string, displayName *string) (store.User, string, error) {
	user, err := s.store.CreateUser(ctx, email, password, displayName)
	if err != nil {
		return store.User{}, "", err
	}
	token, err := s.tokens.Sign(user.ID, user.Role)
	if err != nil {
		return store.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (store.User, string, error) {
	user, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		return store.User{}, "", err
	}
	token, err := s.tokens.Sign(user.ID, user.Role)
	if err != nil {
		return store.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

func (s *service) Me(ctx context.Context, userID int64) (store.User, error) {
	return s.store.UserByID(ctx, userID)
}
