// Package store provides Postgres-backed persistence for the catalog,
// playlists, favorites, play history and push notification state.
package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"spotliner/internal/auth"
)

var (
	// ErrEmailTaken signals the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound indicates a missing user row.
	ErrUserNotFound = errors.New("user not found")
	// ErrArtistNotFound indicates a missing artist row.
	ErrArtistNotFound = errors.New("artist not found")
	// ErrArtistExists signals a duplicate artist name.
	ErrArtistExists = errors.New("artist already exists")
	// ErrAlbumNotFound indicates a missing album row.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrAlbumExists signals a duplicate album name for the same artist.
	ErrAlbumExists = errors.New("album already exists for this artist")
	// ErrTrackNotFound indicates a missing track row.
	ErrTrackNotFound = errors.New("track not found")
	// ErrPlaylistNotFound indicates a missing playlist, or one the caller
	// does not own. The two cases are deliberately indistinguishable.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrTrackNotInPlaylist indicates a membership row was not removed.
	ErrTrackNotInPlaylist = errors.New("track not in playlist or playlist not found")
	// ErrNoSubscription indicates the user has no push subscription.
	ErrNoSubscription = errors.New("no push subscription for this user")
	// ErrNotificationNotFound indicates a missing or foreign log entry.
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// User is a registered account.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	Role        auth.Role `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Name returns the display name, falling back to the email address.
func (u User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}

// Artist is a primary artist credit in the catalog.
type Artist struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedBy  int64     `json:"created_by"`
	ImagePath  *string   `json:"image_path"`
	CreatedAt  time.Time `json:"created_at"`
	TrackCount int64     `json:"track_count"`
}

// Album groups tracks under an artist.
type Album struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	ArtistID        int64     `json:"artist_id"`
	CreatedBy       int64     `json:"created_by"`
	ImagePath       *string   `json:"image_path"`
	CreatedAt       time.Time `json:"created_at"`
	ArtistName      string    `json:"artist_name"`
	ArtistImagePath *string   `json:"artist_image_path,omitempty"`
	TrackCount      int64     `json:"track_count"`
}

// FeaturedArtist is a secondary credit on a track.
type FeaturedArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Track is an uploaded audio track. Artist and Album carry denormalized
// display text kept in sync by the catalog fan-out writes. CoverImagePath
// resolves the track -> album -> artist image fallback chain at read time.
type Track struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	Artist          string           `json:"artist"`
	Album           string           `json:"album"`
	ArtistID        int64            `json:"artist_id"`
	AlbumID         *int64           `json:"album_id"`
	DurationSeconds int              `json:"duration_seconds"`
	ImagePath       *string          `json:"image_path"`
	CoverImagePath  *string          `json:"cover_image_path"`
	UploadedBy      int64            `json:"uploaded_by"`
	CreatedAt       time.Time        `json:"created_at"`
	Featured        []FeaturedArtist `json:"featured_artists"`

	// Context-dependent extras.
	Position *int       `json:"position,omitempty"`
	PlayedAt *time.Time `json:"played_at,omitempty"`
}

// Playlist is a user-owned ordered track list.
type Playlist struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// PushSubscription is one browser push registration. Keyed by endpoint so a
// user can register multiple devices.
type PushSubscription struct {
	UserID   int64
	Endpoint string
	P256dh   string
	Auth     string
}

// NotificationLogEntry records one successfully delivered push message,
// with the denormalized text needed to resend it later.
type NotificationLogEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"-"`
	TrackID       *int64    `json:"track_id"`
	ArtistID      *int64    `json:"artist_id"`
	ArtistName    *string   `json:"artist_name"`
	TrackTitle    *string   `json:"track_title"`
	UploaderName  *string   `json:"uploader_name"`
	RecipientName *string   `json:"recipient_name"`
	SentAt        time.Time `json:"sent_at"`
}

// Subscriber summarizes a user with at least one push subscription.
type Subscriber struct {
	ID                int64   `json:"id"`
	Email             string  `json:"email"`
	DisplayName       *string `json:"display_name"`
	SubscriptionCount int     `json:"subscription_count"`
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}
