package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"spotliner/internal/app"
	"spotliner/internal/app/artists"
	"spotliner/internal/app/playlists"
	"spotliner/internal/app/tracks"
	"spotliner/internal/auth"
	"spotliner/internal/store"
)

type stubTracks struct {
	streamPath func(ctx context.Context, id int64) (string, error)
	create     func(ctx context.Context, identity auth.Identity, in tracks.CreateInput) (store.Track, error)
}

func (s *stubTracks) List(context.Context, string, int, int) ([]store.Track, error) {
	return nil, nil
}

func (s *stubTracks) Get(context.Context, int64) (store.Track, error) {
	return store.Track{}, store.ErrTrackNotFound
}

func (s *stubTracks) StreamPath(ctx context.Context, id int64) (string, error) {
	return s.streamPath(ctx, id)
}

func (s *stubTracks) Create(ctx context.Context, identity auth.Identity, in tracks.CreateInput) (store.Track, error) {
	return s.create(ctx, identity, in)
}

func (s *stubTracks) Update(context.Context, auth.Identity, int64, tracks.UpdateInput) (store.Track, error) {
	return store.Track{}, store.ErrTrackNotFound
}

func (s *stubTracks) Delete(context.Context, auth.Identity, int64) error {
	return store.ErrTrackNotFound
}

func (s *stubTracks) RecordPlay(context.Context, int64, int64) error { return nil }

type stubArtists struct {
	create func(ctx context.Context, identity auth.Identity, name string, imagePath *string) (store.Artist, error)
}

func (s *stubArtists) List(context.Context, int, int) ([]store.Artist, error) { return nil, nil }

func (s *stubArtists) Get(context.Context, int64) (artists.Detail, error) {
	return artists.Detail{}, store.ErrArtistNotFound
}

func (s *stubArtists) Create(ctx context.Context, identity auth.Identity, name string, imagePath *string) (store.Artist, error) {
	return s.create(ctx, identity, name, imagePath)
}

func (s *stubArtists) Update(context.Context, auth.Identity, int64, string, bool, *string) (store.Artist, error) {
	return store.Artist{}, store.ErrArtistNotFound
}

func (s *stubArtists) Delete(context.Context, auth.Identity, int64) error {
	return store.ErrArtistNotFound
}

type stubPlaylists struct {
	get func(ctx context.Context, id, userID int64) (playlists.Detail, error)
}

func (s *stubPlaylists) List(context.Context, int64) ([]store.Playlist, error) { return nil, nil }

func (s *stubPlaylists) Get(ctx context.Context, id, userID int64) (playlists.Detail, error) {
	return s.get(ctx, id, userID)
}

func (s *stubPlaylists) Create(context.Context, int64, string, bool) (store.Playlist, error) {
	return store.Playlist{}, nil
}

func (s *stubPlaylists) Update(context.Context, int64, int64, *string, *bool) (store.Playlist, error) {
	return store.Playlist{}, store.ErrPlaylistNotFound
}

func (s *stubPlaylists) Delete(context.Context, int64, int64) error {
	return store.ErrPlaylistNotFound
}

func (s *stubPlaylists) AddTrack(context.Context, int64, int64, int64) error { return nil }

func (s *stubPlaylists) RemoveTrack(context.Context, int64, int64, int64) error {
	return store.ErrTrackNotInPlaylist
}

type stubUploads struct {
	removedImages []string
}

func (s *stubUploads) SaveAudio(io.Reader, string) (string, error) {
	return "12345-abcd.mp3", nil
}

func (s *stubUploads) SaveImage(io.Reader, string) (string, error) {
	return "images/12345-abcd.jpg", nil
}

func (s *stubUploads) RemoveImage(imagePath string) {
	s.removedImages = append(s.removedImages, imagePath)
}

type testServerOptions struct {
	tracks    *stubTracks
	artists   *stubArtists
	playlists *stubPlaylists
	uploads   *stubUploads
}

func newTestServer(t *testing.T, opts testServerOptions) (*Server, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret")
	if opts.tracks == nil {
		opts.tracks = &stubTracks{}
	}
	if opts.artists == nil {
		opts.artists = &stubArtists{}
	}
	if opts.playlists == nil {
		opts.playlists = &stubPlaylists{}
	}
	var uploads Uploads
	if opts.uploads != nil {
		uploads = opts.uploads
	}
	srv := New(nil, opts.artists, nil, opts.tracks, opts.playlists, nil, nil, nil, uploads, tokens)
	return srv, tokens
}

func bearerToken(t *testing.T, tokens *auth.TokenManager, userID int64, role auth.Role) string {
	t.Helper()
	token, err := tokens.Sign(userID, role)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func writeTempAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp audio: %v", err)
	}
	return path
}

func streamServer(t *testing.T, path string) (*Server, *auth.TokenManager) {
	return newTestServer(t, testServerOptions{
		tracks: &stubTracks{
			streamPath: func(_ context.Context, id int64) (string, error) {
				if id != 1 {
					return "", store.ErrTrackNotFound
				}
				return path, nil
			},
		},
	})
}

func TestStreamTrackFullFile(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, tokens := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Fatalf("unexpected body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Fatalf("missing Accept-Ranges header")
	}
	if cl := rec.Header().Get("Content-Length"); cl != "10" {
		t.Fatalf("unexpected content length %q", cl)
	}
}

func TestStreamTrackBoundedRange(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, tokens := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "2345" {
		t.Fatalf("unexpected body %q", got)
	}
	if cr := rec.Header().Get("Content-Range"); cr != "bytes 2-5/10" {
		t.Fatalf("unexpected Content-Range %q", cr)
	}
	if cl := rec.Header().Get("Content-Length"); cl != "4" {
		t.Fatalf("unexpected content length %q", cl)
	}
}

func TestStreamTrackOpenEndedRange(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, tokens := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	req.Header.Set("Range", "bytes=7-")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "789" {
		t.Fatalf("unexpected body %q", got)
	}
	if cr := rec.Header().Get("Content-Range"); cr != "bytes 7-9/10" {
		t.Fatalf("unexpected Content-Range %q", cr)
	}
}

func TestStreamTrackChunksReconstructFile(t *testing.T) {
	content := "the quick brown fox jumps over the lazy dog"
	path := writeTempAudio(t, content)
	srv, tokens := streamServer(t, path)
	token := bearerToken(t, tokens, 1, auth.RoleUser)

	var rebuilt strings.Builder
	chunk := 7
	for start := 0; start < len(content); start += chunk {
		end := start + chunk - 1
		if end > len(content)-1 {
			end = len(content) - 1
		}
		req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Range", "bytes="+strconv.Itoa(start)+"-"+strconv.Itoa(end))
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusPartialContent {
			t.Fatalf("chunk %d-%d: expected 206, got %d", start, end, rec.Code)
		}
		_, _ = io.Copy(&rebuilt, rec.Body)
	}

	if rebuilt.String() != content {
		t.Fatalf("reconstructed %q, want %q", rebuilt.String(), content)
	}
}

func TestStreamTrackUnsatisfiableRange(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, tokens := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	req.Header.Set("Range", "bytes=12-")
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416, got %d", rec.Code)
	}
	if cr := rec.Header().Get("Content-Range"); cr != "bytes */10" {
		t.Fatalf("unexpected Content-Range %q", cr)
	}
}

func TestStreamTrackQueryTokenAuth(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, tokens := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream?token="+bearerToken(t, tokens, 1, auth.RoleUser), nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestStreamTrackMissingFile(t *testing.T) {
	srv, tokens := streamServer(t, filepath.Join(t.TempDir(), "missing.mp3"))

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStreamTrackAnonymousPlayback(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, _ := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without credentials, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestStreamTrackRejectsBadToken(t *testing.T) {
	path := writeTempAudio(t, "0123456789")
	srv, _ := streamServer(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks/1/stream?token=not-a-token", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestCreateTrackCleansUpImageOnFailure(t *testing.T) {
	uploads := &stubUploads{}
	srv, tokens := newTestServer(t, testServerOptions{
		uploads: uploads,
		tracks: &stubTracks{
			create: func(context.Context, auth.Identity, tracks.CreateInput) (store.Track, error) {
				return store.Track{}, errors.New("artist is required")
			},
		},
	})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	audio, err := form.CreateFormFile("audio", "song.mp3")
	if err != nil {
		t.Fatalf("create audio part: %v", err)
	}
	_, _ = audio.Write([]byte("audio-bytes"))
	image, err := form.CreateFormFile("image", "cover.jpg")
	if err != nil {
		t.Fatalf("create image part: %v", err)
	}
	_, _ = image.Write([]byte("image-bytes"))
	_ = form.WriteField("title", "No Artist")
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tracks", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUploader))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(uploads.removedImages) != 1 || uploads.removedImages[0] != "images/12345-abcd.jpg" {
		t.Fatalf("saved cover not cleaned up: %v", uploads.removedImages)
	}
}

func TestCreateArtistForbiddenForListener(t *testing.T) {
	srv, tokens := newTestServer(t, testServerOptions{
		artists: &stubArtists{
			create: func(_ context.Context, identity auth.Identity, _ string, _ *string) (store.Artist, error) {
				if !identity.Role.CanUpload() {
					return store.Artist{}, app.ErrForbidden
				}
				return store.Artist{ID: 1, Name: "New"}, nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/artists", strings.NewReader(`{"name":"New"}`))
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for listener, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/artists", strings.NewReader(`{"name":"New"}`))
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUploader))
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for uploader, got %d", rec.Code)
	}
}

func TestCreateArtistRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, testServerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/artists", strings.NewReader(`{"name":"New"}`))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetPlaylistVisibility(t *testing.T) {
	srv, tokens := newTestServer(t, testServerOptions{
		playlists: &stubPlaylists{
			get: func(_ context.Context, id, userID int64) (playlists.Detail, error) {
				// Playlist 7 belongs to user 2 and is private.
				if userID != 2 {
					return playlists.Detail{}, app.ErrForbidden
				}
				return playlists.Detail{
					Playlist: store.Playlist{ID: 7, UserID: 2, Name: "Private"},
					Tracks:   []store.Track{},
				}, nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/playlists/7", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 1, auth.RoleUser))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/playlists/7", nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, tokens, 2, auth.RoleUser))
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", rec.Code)
	}
}
