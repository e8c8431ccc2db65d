package albums

import (
	"context"
	"strings"

	"spotliner/internal/app"
	"spotliner/internal/auth"
	"spotliner/internal/store"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	ListAlbums(ctx context.Context, limit, offset int) ([]store.Album, error)
	AlbumByID(ctx context.Context, id int64) (store.Album, error)
	TracksByAlbum(ctx context.Context, albumID int64) ([]store.Track, error)
	CreateAlbum(ctx context.Context, name string, artistID, createdBy int64, imagePath *string) (store.Album, error)
	UpdateAlbum(ctx context.Context, id int64, name string, artistID int64, setImage bool, imagePath *string) (store.Album, error)
	TrackFilePathsByAlbum(ctx context.Context, albumID int64) ([]string, error)
	DeleteAlbum(ctx context.Context, id int64) error
}

// Files removes audio files orphaned by catalog deletes.
type Files interface {
	RemoveAudio(filePath string)
}

// Detail is an album with its tracks embedded.
type Detail struct {
	store.Album
	Tracks []store.Track `json:"tracks"`
}

// Service coordinates album catalog operations.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]store.Album, error)
	Get(ctx context.Context, id int64) (Detail, error)
	Create(ctx context.Context, identity auth.Identity, name string, artistID int64, imagePath *string) (store.Album, error)
	Update(ctx context.Context, identity auth.Identity, id int64, name string, artistID int64, setImage bool, imagePath *string) (store.Album, error)
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

func (s *service) List(ctx context.Context, limit, offset int) ([]store.Album, error) {
	return s.store.ListAlbums(ctx, limit, offset)
}

func (s *service) Get(ctx context.Context, id int64) (Detail, error) {
	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	tracks, err := s.store.TracksByAlbum(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Album: album, Tracks: tracks}, nil
}

func (s *service) Create(ctx context.Context, identity auth.Identity, name string, artistID int64, imagePath *string) (store.Album, error) {
	if !identity.Role.CanUpload() {
		return store.Album{}, app.ErrForbidden
	}
	return s.store.CreateAlbum(ctx, name, artistID, identity.UserID, imagePath)
}

// Update edits an album. An empty name or zero artist id keeps the current
// value so clients can send partial payloads.
func (s *service) Update(ctx context.Context, identity auth.Identity, id int64, name string, artistID int64, setImage bool, imagePath *string) (store.Album, error) {
	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return store.Album{}, err
	}
	if !identity.CanManage(album.CreatedBy) {
		return store.Album{}, app.ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		name = album.Name
	}
	if artistID == 0 {
		artistID = album.ArtistID
	}
	return s.store.UpdateAlbum(ctx, id, name, artistID, setImage, imagePath)
}

// Delete removes the album, its tracks and the orphaned audio files.
func (s *service) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return err
	}
	if !identity.CanManage(album.CreatedBy) {
		return app.ErrForbidden
	}

	paths, err := s.store.TrackFilePathsByAlbum(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAlbum(ctx, id); err != nil {
		return err
	}
	for _, p := range paths {
		s.files.RemoveAudio(p)
	}
	return nil
}
