package store

import (
	"context"
	"fmt"
	"time"
)

// Favorites returns the caller's favorite tracks, most recently favorited
// first.
func (s *Store) Favorites(ctx context.Context, userID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, trackSelect+`
	JOIN favorites f ON f.track_id = t.id
	WHERE f.user_id = $1
	ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return s.collectTracks(ctx, rows)
}

// AddFavorite marks a track as a favorite. Favoriting an already-favorited
// track is a no-op.
func (s *Store) AddFavorite(ctx context.Context, userID, trackID int64) error {
	if _, err := s.TrackFilePath(ctx, trackID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, track_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, track_id) DO NOTHING
	`, userID, trackID)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a favorite. Removing an absent favorite is a
// no-op.
func (s *Store) RemoveFavorite(ctx context.Context, userID, trackID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND track_id = $2
	`, userID, trackID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// RecordPlay appends a play history event for the track.
func (s *Store) RecordPlay(ctx context.Context, userID, trackID int64) error {
	if _, err := s.TrackFilePath(ctx, trackID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO play_history (user_id, track_id)
		VALUES ($1, $2)
	`, userID, trackID)
	if err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

// PlayHistory returns the caller's most recent plays with timestamps. A
// track played several times appears once per play.
func (s *Store) PlayHistory(ctx context.Context, userID int64, limit int) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT t.id, t.title, t.artist, t.album, t.artist_id, t.album_id, t.duration_seconds,
		t.image_path, COALESCE(t.image_path, al.image_path, a.image_path) AS cover_image_path,
		t.uploaded_by, t.created_at, ph.played_at
	FROM play_history ph
	JOIN tracks t ON t.id = ph.track_id
	LEFT JOIN albums al ON t.album_id = al.id
	LEFT JOIN artists a ON t.artist_id = a.id
	WHERE ph.user_id = $1
	ORDER BY ph.played_at DESC
	LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list play history: %w", err)
	}
	defer rows.Close()

	tracks := make([]Track, 0)
	for rows.Next() {
		var (
			t        Track
			playedAt time.Time
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.ArtistID, &t.AlbumID,
			&t.DurationSeconds, &t.ImagePath, &t.CoverImagePath, &t.UploadedBy, &t.CreatedAt,
			&playedAt); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		t.Featured = []FeaturedArtist{}
		t.PlayedAt = &playedAt
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}

	if err := s.attachFeatured(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}
