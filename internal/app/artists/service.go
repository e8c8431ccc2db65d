package artists

import (
	"context"
	"strings"

	"spotliner/internal/app"
	"spotliner/internal/auth"
	"spotliner/internal/store"
)

// Store captures the persistence needs for artist workflows.
type Store interface {
	ListArtists(ctx context.Context, limit, offset int) ([]store.Artist, error)
	ArtistByID(ctx context.Context, id int64) (store.Artist, error)
	TracksByArtist(ctx context.Context, artistID int64) ([]store.Track, error)
	CreateArtist(ctx context.Context, name string, createdBy int64, imagePath *string) (store.Artist, error)
	UpdateArtist(ctx context.Context, id int64, name string, setImage bool, imagePath *string) (store.Artist, error)
	TrackFilePathsByArtist(ctx context.Context, artistID int64) ([]string, error)
	DeleteArtist(ctx context.Context, id int64) error
}

// Files removes audio files orphaned by catalog deletes.
type Files interface {
	RemoveAudio(filePath string)
}

// Detail is an artist with its tracks embedded.
type Detail struct {
	store.Artist
	Tracks []store.Track `json:"tracks"`
}

// Service coordinates artist catalog operations.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]store.Artist, error)
	Get(ctx context.Context, id int64) (Detail, error)
	Create(ctx context.Context, identity auth.Identity, name string, imagePath *string) (store.Artist, error)
	Update(ctx context.Context, identity auth.Identity, id int64, name string, setImage bool, imagePath *string) (store.Artist, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

type service struct {
	store Store
	files Files
}

// New constructs a Service backed by the provided Store and file store.
func New(store Store, files Files) Service {
	return &service{store: store, files: files}
}

func (s *service) List(ctx context.Context, limit, offset int) ([]store.Artist, error) {
	return s.store.ListArtists(ctx, limit, offset)
}

func (s *service) Get(ctx context.Context, id int64) (Detail, error) {
	artist, err := s.store.ArtistByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	tracks, err := s.store.TracksByArtist(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Artist: artist, Tracks: tracks}, nil
}

func (s *service) Create(ctx context.Context, identity auth.Identity, name string, imagePath *string) (store.Artist, error) {
	if !identity.Role.CanUpload() {
		return store.Artist{}, app.ErrForbidden
	}
	return s.store.CreateArtist(ctx, name, identity.UserID, imagePath)
}

// Update edits an artist. An empty name keeps the current one so an
// image-only payload does not wipe the rename fan-out target.
func (s *service) Update(ctx context.Context, identity auth.Identity, id int64, name string, setImage bool, imagePath *string) (store.Artist, error) {
	artist, err := s.store.ArtistByID(ctx, id)
	if err != nil {
		return store.Artist{}, err
	}
	if !identity.CanManage(artist.CreatedBy) {
		return store.Artist{}, app.ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		name = artist.Name
	}
	return s.store.UpdateArtist(ctx, id, name, setImage, imagePath)
}

// Delete removes the artist, its albums and tracks, then the orphaned
// audio files. Row deletion wins over file cleanup: a failed unlink is
// logged but never surfaces.
func (s *service) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	artist, err := s.store.ArtistByID(ctx, id)
	if err != nil {
		return err
	}
	if !identity.CanManage(artist.CreatedBy) {
		return app.ErrForbidden
	}

	paths, err := s.store.TrackFilePathsByArtist(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteArtist(ctx, id); err != nil {
		return err
	}
	for _, p := range paths {
		s.files.RemoveAudio(p)
	}
	return nil
}
