package tracks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spotliner/internal/app"
	"spotliner/internal/auth"
	"spotliner/internal/push"
	"spotliner/internal/store"
)

// Store captures the persistence needs for track workflows.
type Store interface {
	ListTracks(ctx context.Context, q string, limit, offset int) ([]store.Track, error)
	TrackByID(ctx context.Context, id int64) (store.Track, error)
	TrackFilePath(ctx context.Context, id int64) (string, error)
	TrackFileAndUploader(ctx context.Context, id int64) (string, int64, error)
	CreateTrack(ctx context.Context, nt store.NewTrack) (store.Track, error)
	UpdateTrack(ctx context.Context, id int64, title, artistName, albumName string, artistID int64, albumID *int64, setImage bool, imagePath *string, featured []int64) (store.Track, error)
	DeleteTrack(ctx context.Context, id int64) error
	ArtistByID(ctx context.Context, id int64) (store.Artist, error)
	EnsureArtist(ctx context.Context, name string, createdBy int64) (int64, string, error)
	AlbumByID(ctx context.Context, id int64) (store.Album, error)
	EnsureAlbum(ctx context.Context, artistID int64, name string, createdBy int64) (int64, string, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	RecordPlay(ctx context.Context, userID, trackID int64) error
}

// Files stores and removes uploaded audio.
type Files interface {
	AudioPath(filePath string) string
	RemoveAudio(filePath string)
}

// Notifier broadcasts new-track notifications.
type Notifier interface {
	NotifyNewTrack(ctx context.Context, track store.Track, uploaderName string) push.Result
}

// CreateInput carries a new upload. FilePath must already point at a
// stored audio file; the artist is given by id or by name, the album is
// optional.
type CreateInput struct {
	Title           string
	ArtistID        *int64
	ArtistName      string
	AlbumID         *int64
	AlbumName       string
	DurationSeconds int
	FilePath        string
	ImagePath       *string
}

// UpdateInput carries a metadata edit. Omitted fields keep the track's
// current values: a nil Title keeps the title, an absent artist reference
// keeps the artist, and the album changes only when SetAlbum is true or an
// id/name is given. SetImage distinguishes an omitted image field from an
// explicit null. A non-nil Featured fully replaces the featured credit
// list.
type UpdateInput struct {
	Title      *string
	ArtistID   *int64
	ArtistName string
	AlbumID    *int64
	AlbumName  string
	SetAlbum   bool
	SetImage   bool
	ImagePath  *string
	Featured   []int64
}

// Service coordinates track uploads, edits, deletion and playback reads.
type Service interface {
	List(ctx context.Context, q string, limit, offset int) ([]store.Track, error)
	Get(ctx context.Context, id int64) (store.Track, error)
	StreamPath(ctx context.Context, id int64) (string, error)
	Create(ctx context.Context, identity auth.Identity, in CreateInput) (store.Track, error)
	Update(ctx context.Context, identity auth.Identity, id int64, in UpdateInput) (store.Track, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
	RecordPlay(ctx context.Context, userID, trackID int64) error
}

type service struct {
	store    Store
	files    Files
	notifier Notifier
	logger   zerolog.Logger
}

// New constructs a Service. notifier may be nil when push is not
// configured.
func New(store Store, files Files, notifier Notifier, logger zerolog.Logger) Service {
	return &service{store: store, files: files, notifier: notifier, logger: logger}
}

func (s *service) List(ctx context.Context, q string, limit, offset int) ([]store.Track, error) {
	return s.store.ListTracks(ctx, q, limit, offset)
}

func (s *service) Get(ctx context.Context, id int64) (store.Track, error) {
	return s.store.TrackByID(ctx, id)
}

// StreamPath resolves a track id to the absolute path of its audio file.
func (s *service) StreamPath(ctx context.Context, id int64) (string, error) {
	filePath, err := s.store.TrackFilePath(ctx, id)
	if err != nil {
		return "", err
	}
	return s.files.AudioPath(filePath), nil
}

// Create registers an uploaded track and broadcasts a push notification to
// subscribers in the background. The notification never blocks or fails
// the upload.
func (s *service) Create(ctx context.Context, identity auth.Identity, in CreateInput) (store.Track, error) {
	if !identity.Role.CanUpload() {
		s.files.RemoveAudio(in.FilePath)
		return store.Track{}, app.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		s.files.RemoveAudio(in.FilePath)
		return store.Track{}, fmt.Errorf("title is required")
	}
	if in.FilePath == "" {
		return store.Track{}, fmt.Errorf("audio file is required")
	}

	artistID, artistName, err := s.resolveArtist(ctx, identity.UserID, in.ArtistID, in.ArtistName)
	if err != nil {
		s.files.RemoveAudio(in.FilePath)
		return store.Track{}, err
	}
	albumID, albumName, err := s.resolveAlbum(ctx, identity.UserID, artistID, in.AlbumID, in.AlbumName)
	if err != nil {
		s.files.RemoveAudio(in.FilePath)
		return store.Track{}, err
	}

	track, err := s.store.CreateTrack(ctx, store.NewTrack{
		Title:           strings.TrimSpace(in.Title),
		ArtistID:        artistID,
		ArtistName:      artistName,
		AlbumID:         albumID,
		AlbumName:       albumName,
		DurationSeconds: in.DurationSeconds,
		FilePath:        in.FilePath,
		ImagePath:       in.ImagePath,
		UploadedBy:      identity.UserID,
	})
	if err != nil {
		s.files.RemoveAudio(in.FilePath)
		return store.Track{}, err
	}

	if s.notifier != nil {
		uploaderName := "someone"
		if uploader, err := s.store.UserByID(ctx, identity.UserID); err == nil {
			uploaderName = uploader.Name()
		} else {
			s.logger.Warn().Err(err).Int64("user_id", identity.UserID).Msg("resolve uploader name")
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.notifier.NotifyNewTrack(ctx, track, uploaderName)
		}()
	}

	return track, nil
}

// Update edits track metadata. Fields absent from the input keep their
// current values so clients can send partial payloads.
func (s *service) Update(ctx context.Context, identity auth.Identity, id int64, in UpdateInput) (store.Track, error) {
	current, err := s.store.TrackByID(ctx, id)
	if err != nil {
		return store.Track{}, err
	}
	if !identity.CanManage(current.UploadedBy) {
		return store.Track{}, app.ErrForbidden
	}

	title := current.Title
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
		if title == "" {
			return store.Track{}, fmt.Errorf("title is required")
		}
	}

	artistID, artistName := current.ArtistID, current.Artist
	if in.ArtistID != nil || strings.TrimSpace(in.ArtistName) != "" {
		artistID, artistName, err = s.resolveArtist(ctx, identity.UserID, in.ArtistID, in.ArtistName)
		if err != nil {
			return store.Track{}, err
		}
	}

	albumID, albumName := current.AlbumID, current.Album
	switch {
	case in.AlbumID != nil || strings.TrimSpace(in.AlbumName) != "":
		albumID, albumName, err = s.resolveAlbum(ctx, identity.UserID, artistID, in.AlbumID, in.AlbumName)
		if err != nil {
			return store.Track{}, err
		}
	case in.SetAlbum:
		// Explicit null detaches the track from its album.
		albumID, albumName = nil, ""
	}

	featured := in.Featured
	if featured == nil {
		featured = make([]int64, 0, len(current.Featured))
		for _, fa := range current.Featured {
			featured = append(featured, fa.ID)
		}
	}
	featured = dedupeFeatured(featured, artistID)

	return s.store.UpdateTrack(ctx, id, title, artistName, albumName,
		artistID, albumID, in.SetImage, in.ImagePath, featured)
}

// Delete removes the track row and then its audio file. A failed unlink is
// logged by the file store but never surfaces.
func (s *service) Delete(ctx context.Context, identity auth.Identity, id int64) error {
	filePath, uploadedBy, err := s.store.TrackFileAndUploader(ctx, id)
	if err != nil {
		return err
	}
	if !identity.CanManage(uploadedBy) {
		return app.ErrForbidden
	}
	if err := s.store.DeleteTrack(ctx, id); err != nil {
		return err
	}
	s.files.RemoveAudio(filePath)
	return nil
}

func (s *service) RecordPlay(ctx context.Context, userID, trackID int64) error {
	return s.store.RecordPlay(ctx, userID, trackID)
}

// resolveArtist turns an id-or-name reference into a concrete artist. A
// bare name creates the artist on first use.
func (s *service) resolveArtist(ctx context.Context, userID int64, id *int64, name string) (int64, string, error) {
	if id != nil {
		artist, err := s.store.ArtistByID(ctx, *id)
		if err != nil {
			return 0, "", err
		}
		return artist.ID, artist.Name, nil
	}
	if strings.TrimSpace(name) == "" {
		return 0, "", fmt.Errorf("artist is required")
	}
	return s.store.EnsureArtist(ctx, name, userID)
}

// resolveAlbum turns an optional id-or-name reference into a concrete
// album under the given artist. No reference means no album.
func (s *service) resolveAlbum(ctx context.Context, userID, artistID int64, id *int64, name string) (*int64, string, error) {
	if id != nil {
		album, err := s.store.AlbumByID(ctx, *id)
		if err != nil {
			return nil, "", err
		}
		// An album under a different artist is dropped rather than
		// rejected, matching the legacy client contract.
		if album.ArtistID != artistID {
			return nil, "", nil
		}
		return &album.ID, album.Name, nil
	}
	if strings.TrimSpace(name) == "" {
		return nil, "", nil
	}
	albumID, albumName, err := s.store.EnsureAlbum(ctx, artistID, name, userID)
	if err != nil {
		return nil, "", err
	}
	return &albumID, albumName, nil
}

// dedupeFeatured drops duplicate ids and the primary artist while keeping
// the submitted order.
func dedupeFeatured(ids []int64, primaryArtistID int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id == primaryArtistID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
