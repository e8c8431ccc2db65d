package playlists

import (
	"context"

	"spotliner/internal/app"
	"spotliner/internal/store"
)

// Store captures the persistence needs for playlist workflows. Mutating
// methods are already scoped to the owning user.
type Store interface {
	ListPlaylists(ctx context.Context, userID int64) ([]store.Playlist, error)
	PlaylistByIDAny(ctx context.Context, id int64) (store.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID int64) ([]store.Track, error)
	CreatePlaylist(ctx context.Context, userID int64, name string, isPublic bool) (store.Playlist, error)
	UpdatePlaylist(ctx context.Context, id, userID int64, name *string, isPublic *bool) (store.Playlist, error)
	DeletePlaylist(ctx context.Context, id, userID int64) error
	AddPlaylistTrack(ctx context.Context, playlistID, userID, trackID int64) error
	RemovePlaylistTrack(ctx context.Context, playlistID, userID, trackID int64) error
}

// Detail is a playlist with its tracks embedded in position order.
type Detail struct {
	store.Playlist
	Tracks []store.Track `json:"tracks"`
}

// Service coordinates playlist operations for the authenticated user.
type Service interface {
	List(ctx context.Context, userID int64) ([]store.Playlist, error)
	Get(ctx context.Context, id, userID int64) (Detail, error)
	Create(ctx context.Context, userID int64, name string, isPublic bool) (store.Playlist, error)
	Update(ctx context.Context, id, userID int64, name *string, isPublic *bool) (store.Playlist, error)
	Delete(ctx context.Context, id, userID int64) error
	AddTrack(ctx context.Context, playlistID, userID, trackID int64) error
	RemoveTrack(ctx context.Context, playlistID, userID, trackID int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) List(ctx context.Context, userID int64) ([]store.Playlist, error) {
	return s.store.ListPlaylists(ctx, userID)
}

// Get reads a playlist with its tracks. Non-owners may only read public
// playlists.
func (s *service) Get(ctx context.Context, id, userID int64) (Detail, error) {
	playlist, err := s.store.PlaylistByIDAny(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if playlist.UserID != userID && !playlist.IsPublic {
		return Detail{}, app.ErrForbidden
	}
	tracks, err := s.store.PlaylistTracks(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Playlist: playlist, Tracks: tracks}, nil
}

func (s *service) Create(ctx context.Context, userID int64, name string, isPublic bool) (store.Playlist, error) {
	return s.store.CreatePlaylist(ctx, userID, name, isPublic)
}

func (s *service) Update(ctx context.Context, id, userID int64, name *string, isPublic *bool) (store.Playlist, error) {
	return s.store.UpdatePlaylist(ctx, id, userID, name, isPublic)
}

func (s *service) Delete(ctx context.Context, id, userID int64) error {
	return s.store.DeletePlaylist(ctx, id, userID)
}

func (s *service) AddTrack(ctx context.Context, playlistID, userID, trackID int64) error {
	return s.store.AddPlaylistTrack(ctx, playlistID, userID, trackID)
}

func (s *service) RemoveTrack(ctx context.Context, playlistID, userID, trackID int64) error {
	return s.store.RemovePlaylistTrack(ctx, playlistID, userID, trackID)
}
