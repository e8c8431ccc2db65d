// Package httpapi exposes the REST surface of the service.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"spotliner/internal/app"
	"spotliner/internal/app/albums"
	"spotliner/internal/app/artists"
	"spotliner/internal/app/notifications"
	"spotliner/internal/app/playlists"
	"spotliner/internal/app/tracks"
	"spotliner/internal/auth"
	"spotliner/internal/push"
	"spotliner/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Register(ctx context.Context, email, password string, displayName *string) (store.User, string, error)
	Login(ctx context.Context, email, password string) (store.User, string, error)
	Me(ctx context.Context, userID int64) (store.User, error)
}

// ArtistService describes artist catalog workflows.
type ArtistService interface {
	List(ctx context.Context, limit, offset int) ([]store.Artist, error)
	Get(ctx context.Context, id int64) (artists.Detail, error)
	Create(ctx context.Context, identity auth.Identity, name string, imagePath *string) (store.Artist, error)
	Update(ctx context.Context, identity auth.Identity, id int64, name string, setImage bool, imagePath *string) (store.Artist, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

// AlbumService describes album catalog workflows.
type AlbumService interface {
	List(ctx context.Context, limit, offset int) ([]store.Album, error)
	Get(ctx context.Context, id int64) (albums.Detail, error)
	Create(ctx context.Context, identity auth.Identity, name string, artistID int64, imagePath *string) (store.Album, error)
	Update(ctx context.Context, identity auth.Identity, id int64, name string, artistID int64, setImage bool, imagePath *string) (store.Album, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
}

// TrackService coordinates track uploads, edits and playback.
type TrackService interface {
	List(ctx context.Context, q string, limit, offset int) ([]store.Track, error)
	Get(ctx context.Context, id int64) (store.Track, error)
	StreamPath(ctx context.Context, id int64) (string, error)
	Create(ctx context.Context, identity auth.Identity, in tracks.CreateInput) (store.Track, error)
	Update(ctx context.Context, identity auth.Identity, id int64, in tracks.UpdateInput) (store.Track, error)
	Delete(ctx context.Context, identity auth.Identity, id int64) error
	RecordPlay(ctx context.Context, userID, trackID int64) error
}

// PlaylistService coordinates playlist workflows.
type PlaylistService interface {
	List(ctx context.Context, userID int64) ([]store.Playlist, error)
	Get(ctx context.Context, id, userID int64) (playlists.Detail, error)
	Create(ctx context.Context, userID int64, name string, isPublic bool) (store.Playlist, error)
	Update(ctx context.Context, id, userID int64, name *string, isPublic *bool) (store.Playlist, error)
	Delete(ctx context.Context, id, userID int64) error
	AddTrack(ctx context.Context, playlistID, userID, trackID int64) error
	RemoveTrack(ctx context.Context, playlistID, userID, trackID int64) error
}

// FavoriteService coordinates favorites and play history.
type FavoriteService interface {
	List(ctx context.Context, userID int64) ([]store.Track, error)
	Add(ctx context.Context, userID, trackID int64) error
	Remove(ctx context.Context, userID, trackID int64) error
	History(ctx context.Context, userID int64, limit int) ([]store.Track, error)
}

// NotificationService coordinates push subscriptions and notifications.
type NotificationService interface {
	Subscribe(ctx context.Context, userID int64, endpoint, p256dh, authKey string) error
	Unsubscribe(ctx context.Context, userID int64) error
	History(ctx context.Context, userID int64, limit int) ([]store.NotificationLogEntry, error)
	Resend(ctx context.Context, userID, notificationID int64) (push.Result, error)
	SendTest(ctx context.Context, userID int64) (push.Result, error)
	SendCustom(ctx context.Context, identity auth.Identity, userIDs []int64, msg push.Message) (push.Result, error)
	Subscribers(ctx context.Context, identity auth.Identity) ([]store.Subscriber, error)
}

// SearchService runs the catalog-wide substring search.
type SearchService interface {
	SearchAll(ctx context.Context, q string, limit int) (store.SearchResults, error)
}

// Uploads stores incoming multipart files and cleans up after failed
// requests.
type Uploads interface {
	SaveAudio(r io.Reader, originalName string) (string, error)
	SaveImage(r io.Reader, originalName string) (string, error)
	RemoveImage(imagePath string)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users         UserService
	artists       ArtistService
	albums        AlbumService
	tracks        TrackService
	playlists     PlaylistService
	favorites     FavoriteService
	notifications NotificationService
	search        SearchService
	uploads       Uploads
	tokens        *auth.TokenManager
}

// New configures a Server with the given services.
func New(
	users UserService,
	artists ArtistService,
	albums AlbumService,
	tracks TrackService,
	playlists PlaylistService,
	favorites FavoriteService,
	notifications NotificationService,
	search SearchService,
	uploads Uploads,
	tokens *auth.TokenManager,
) *Server {
	return &Server{
		users:         users,
		artists:       artists,
		albums:        albums,
		tracks:        tracks,
		playlists:     playlists,
		favorites:     favorites,
		notifications: notifications,
		search:        search,
		uploads:       uploads,
		tokens:        tokens,
	}
}

// Routes exposes the full REST surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)

	mux.HandleFunc("GET /api/artists", s.handleListArtists)
	mux.HandleFunc("POST /api/artists", s.handleCreateArtist)
	mux.HandleFunc("GET /api/artists/{id}", s.handleGetArtist)
	mux.HandleFunc("PUT /api/artists/{id}", s.handleUpdateArtist)
	mux.HandleFunc("DELETE /api/artists/{id}", s.handleDeleteArtist)

	mux.HandleFunc("GET /api/albums", s.handleListAlbums)
	mux.HandleFunc("POST /api/albums", s.handleCreateAlbum)
	mux.HandleFunc("GET /api/albums/{id}", s.handleGetAlbum)
	mux.HandleFunc("PUT /api/albums/{id}", s.handleUpdateAlbum)
	mux.HandleFunc("DELETE /api/albums/{id}", s.handleDeleteAlbum)

	mux.HandleFunc("GET /api/tracks", s.handleListTracks)
	mux.HandleFunc("POST /api/tracks", s.handleCreateTrack)
	mux.HandleFunc("GET /api/tracks/{id}", s.handleGetTrack)
	mux.HandleFunc("PUT /api/tracks/{id}", s.handleUpdateTrack)
	mux.HandleFunc("DELETE /api/tracks/{id}", s.handleDeleteTrack)
	mux.HandleFunc("GET /api/tracks/{id}/stream", s.handleStreamTrack)

	mux.HandleFunc("GET /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/playlists", s.handleListPlaylists)
	mux.HandleFunc("POST /api/playlists", s.handleCreatePlaylist)
	mux.HandleFunc("GET /api/playlists/{id}", s.handleGetPlaylist)
	mux.HandleFunc("PUT /api/playlists/{id}", s.handleUpdatePlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", s.handleDeletePlaylist)
	mux.HandleFunc("POST /api/playlists/{id}/tracks", s.handleAddPlaylistTrack)
	mux.HandleFunc("DELETE /api/playlists/{id}/tracks/{trackId}", s.handleRemovePlaylistTrack)

	mux.HandleFunc("GET /api/me/favorites", s.handleListFavorites)
	mux.HandleFunc("POST /api/me/favorites", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/me/favorites/{trackId}", s.handleRemoveFavorite)
	mux.HandleFunc("GET /api/me/history", s.handleListHistory)
	mux.HandleFunc("POST /api/me/history", s.handleRecordPlay)

	mux.HandleFunc("POST /api/me/push-subscription", s.handleSubscribe)
	mux.HandleFunc("DELETE /api/me/push-subscription", s.handleUnsubscribe)
	mux.HandleFunc("POST /api/me/push-test", s.handlePushTest)
	mux.HandleFunc("GET /api/me/notifications", s.handleListNotifications)
	mux.HandleFunc("POST /api/me/notifications/{id}/resend", s.handleResendNotification)

	mux.HandleFunc("GET /api/admin/push-subscribers", s.handleListSubscribers)
	mux.HandleFunc("POST /api/admin/send-push", s.handleSendPush)

	mux.HandleFunc("POST /api/upload/image", s.handleUploadImage)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps service errors to HTTP statuses. Errors that match no
// sentinel get the handler's fallback status with their own message.
func writeError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
	case errors.Is(err, store.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, app.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrArtistExists),
		errors.Is(err, store.ErrAlbumExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrArtistNotFound),
		errors.Is(err, store.ErrAlbumNotFound),
		errors.Is(err, store.ErrTrackNotFound),
		errors.Is(err, store.ErrPlaylistNotFound),
		errors.Is(err, store.ErrTrackNotInPlaylist),
		errors.Is(err, store.ErrNoSubscription),
		errors.Is(err, store.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, notifications.ErrPushDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, fallback, errorResponse{Error: err.Error()})
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth extracts and verifies the bearer token, writing the 401
// response itself when the request carries no usable credential.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
		return auth.Identity{}, false
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
		return auth.Identity{}, false
	}
	return identity, true
}

// optionalAuth verifies a credential when one is present, also accepting
// ?token= for clients that cannot set headers (the browser audio element).
// Absent credentials pass through; a bad token is still rejected.
func (s *Server) optionalAuth(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return auth.Identity{}, true
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
		return auth.Identity{}, false
	}
	return identity, true
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// parseLimitOffset reads pagination query params, clamping limit to max
// and falling back to def when absent or invalid.
func parseLimitOffset(r *http.Request, def, max int) (int, int) {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > max {
		limit = max
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
