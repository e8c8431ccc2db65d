package favorites

import (
	"context"

	"spotliner/internal/store"
)

// Store captures the persistence needs for favorites and play history.
type Store interface {
	Favorites(ctx context.Context, userID int64) ([]store.Track, error)
	AddFavorite(ctx context.Context, userID, trackID int64) error
	RemoveFavorite(ctx context.Context, userID, trackID int64) error
	PlayHistory(ctx context.Context, userID int64, limit int) ([]store.Track, error)
}

// Service coordinates favorites and listening history for the
// authenticated user.
type Service interface {
	List(ctx context.Context, userID int64) ([]store.Track, error)
	Add(ctx context.Context, userID, trackID int64) error
	Remove(ctx context.Context, userID, trackID int64) error
	History(ctx context.Context, userID int64, limit int) ([]store.Track, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, userID int64) ([]store.Track, error) {
	return s.store.Favorites(ctx, userID)
}

func (s *service) Add(ctx context.Context, userID, trackID int64) error {
	return s.store.AddFavorite(ctx, userID, trackID)
}

func (s *service) Remove(ctx context.Context, userID, trackID int64) error {
	return s.store.RemoveFavorite(ctx, userID, trackID)
}

func (s *service) History(ctx context.Context, userID int64, limit int) ([]store.Track, error) {
	return s.store.PlayHistory(ctx, userID, limit)
}
