package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListPlaylists returns the caller's playlists, newest first.
func (s *Store) ListPlaylists(ctx context.Context, userID int64) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, is_public, created_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]Playlist, 0)
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.IsPublic, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// PlaylistByID loads a playlist owned by the caller. Foreign playlists are
// reported as not found.
func (s *Store) PlaylistByID(ctx context.Context, id, userID int64) (Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, is_public, created_at
		FROM playlists
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.IsPublic, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

// PlaylistByIDAny loads a playlist regardless of owner. Visibility is the
// caller's concern.
func (s *Store) PlaylistByIDAny(ctx context.Context, id int64) (Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, is_public, created_at
		FROM playlists
		WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Name, &p.IsPublic, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	return p, nil
}

// PlaylistTracks returns the playlist's tracks in position order, with the
// position included on each track.
func (s *Store) PlaylistTracks(ctx context.Context, playlistID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, trackSelect+`
	JOIN playlist_tracks pt ON pt.track_id = t.id
	WHERE pt.playlist_id = $1
	ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]Track, 0)
	pos := 0
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist track: %w", err)
		}
		p := pos
		t.Position = &p
		pos++
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist tracks: %w", err)
	}

	if err := s.attachFeatured(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// CreatePlaylist makes a new playlist for the caller.
func (s *Store) CreatePlaylist(ctx context.Context, userID int64, name string, isPublic bool) (Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, fmt.Errorf("playlist name is required")
	}

	var p Playlist
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (user_id, name, is_public)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, name, is_public, created_at
	`, userID, name, isPublic).Scan(&p.ID, &p.UserID, &p.Name, &p.IsPublic, &p.CreatedAt)
	if err != nil {
		return Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return p, nil
}

// UpdatePlaylist changes the name and/or visibility of a playlist the
// caller owns. Nil fields keep their current value.
func (s *Store) UpdatePlaylist(ctx context.Context, id, userID int64, name *string, isPublic *bool) (Playlist, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return Playlist{}, fmt.Errorf("playlist name is required")
		}
		name = &trimmed
	}

	var p Playlist
	err := s.db.QueryRowContext(ctx, `
		UPDATE playlists
		SET name = COALESCE($1, name), is_public = COALESCE($2, is_public)
		WHERE id = $3 AND user_id = $4
		RETURNING id, user_id, name, is_public, created_at
	`, name, isPublic, id, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.IsPublic, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Playlist{}, ErrPlaylistNotFound
	}
	if err != nil {
		return Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return p, nil
}

// DeletePlaylist removes a playlist the caller owns. Membership rows go
// away via FK cascade.
func (s *Store) DeletePlaylist(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM playlists WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}

// AddPlaylistTrack appends a track to a playlist the caller owns. Adding a
// track that is already in the playlist is a no-op.
func (s *Store) AddPlaylistTrack(ctx context.Context, playlistID, userID, trackID int64) error {
	if _, err := s.PlaylistByID(ctx, playlistID, userID); err != nil {
		return err
	}
	if _, err := s.TrackFilePath(ctx, trackID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		SELECT $1, $2, COALESCE(MAX(position), -1) + 1
		FROM playlist_tracks
		WHERE playlist_id = $1
		ON CONFLICT (playlist_id, track_id) DO NOTHING
	`, playlistID, trackID)
	if err != nil {
		return fmt.Errorf("add playlist track: %w", err)
	}
	return nil
}

// RemovePlaylistTrack removes a track from a playlist the caller owns.
// Positions of the remaining tracks are left untouched; ordering stays
// correct because reads sort by position.
func (s *Store) RemovePlaylistTrack(ctx context.Context, playlistID, userID, trackID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM playlist_tracks pt
		USING playlists p
		WHERE pt.playlist_id = p.id
			AND p.id = $1 AND p.user_id = $2 AND pt.track_id = $3
	`, playlistID, userID, trackID)
	if err != nil {
		return fmt.Errorf("remove playlist track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrackNotInPlaylist
	}
	return nil
}
