package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListArtists returns a page of artists with their track counts.
func (s *Store) ListArtists(ctx context.Context, limit, offset int) ([]Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.created_by, a.image_path, a.created_at, COUNT(t.id) AS track_count
		FROM artists a
		LEFT JOIN tracks t ON t.artist_id = a.id
		GROUP BY a.id, a.name, a.created_by, a.image_path, a.created_at
		ORDER BY a.name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	artists := make([]Artist, 0)
	for rows.Next() {
		var a Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedBy, &a.ImagePath, &a.CreatedAt, &a.TrackCount); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return artists, nil
}

// ArtistByID loads a single artist.
func (s *Store) ArtistByID(ctx context.Context, id int64) (Artist, error) {
	var a Artist
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, image_path, created_at
		FROM artists
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.CreatedBy, &a.ImagePath, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Artist{}, ErrArtistNotFound
	}
	if err != nil {
		return Artist{}, fmt.Errorf("get artist: %w", err)
	}
	return a, nil
}

// CreateArtist inserts a new artist owned by the caller. The name must be
// unique; the pre-check gives a friendly error and the unique constraint
// closes the concurrent-create race.
func (s *Store) CreateArtist(ctx context.Context, name string, createdBy int64, imagePath *string) (Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Artist{}, fmt.Errorf("artist name is required")
	}

	var existing int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM artists WHERE name = $1`, name).Scan(&existing)
	if err == nil {
		return Artist{}, ErrArtistExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Artist{}, fmt.Errorf("check artist name: %w", err)
	}

	var a Artist
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO artists (name, created_by, image_path)
		VALUES ($1, $2, $3)
		RETURNING id, name, created_by, image_path, created_at
	`, name, createdBy, nullIfEmpty(imagePath)).
		Scan(&a.ID, &a.Name, &a.CreatedBy, &a.ImagePath, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Artist{}, ErrArtistExists
		}
		return Artist{}, fmt.Errorf("insert artist: %w", err)
	}
	return a, nil
}

// UpdateArtist renames an artist and fans the new name out to the
// denormalized artist text on every track referencing it. setImage
// distinguishes "image field present" (possibly null to clear) from
// "image field omitted" (keep current). Rename and fan-out run in one
// transaction so readers never observe a half-applied rename.
func (s *Store) UpdateArtist(ctx context.Context, id int64, name string, setImage bool, imagePath *string) (Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Artist{}, fmt.Errorf("artist name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Artist{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	if setImage {
		res, err = tx.ExecContext(ctx, `
			UPDATE artists SET name = $1, image_path = $2 WHERE id = $3
		`, name, nullIfEmpty(imagePath), id)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE artists SET name = $1 WHERE id = $2
		`, name, id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return Artist{}, ErrArtistExists
		}
		return Artist{}, fmt.Errorf("update artist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Artist{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrArtistNotFound
		return Artist{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE tracks SET artist = $1 WHERE artist_id = $2
	`, name, id); err != nil {
		return Artist{}, fmt.Errorf("fan out artist rename: %w", err)
	}

	var a Artist
	if err = tx.QueryRowContext(ctx, `
		SELECT id, name, created_by, image_path, created_at
		FROM artists
		WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.CreatedBy, &a.ImagePath, &a.CreatedAt); err != nil {
		return Artist{}, fmt.Errorf("reload artist: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Artist{}, fmt.Errorf("commit artist update: %w", err)
	}
	return a, nil
}

// TrackFilePathsByArtist lists the audio files of every track owned by the
// artist, for cascade file deletion ahead of the row delete.
func (s *Store) TrackFilePathsByArtist(ctx context.Context, artistID int64) ([]string, error) {
	return s.trackFilePaths(ctx, `SELECT file_path FROM tracks WHERE artist_id = $1`, artistID)
}

// DeleteArtist removes the artist's tracks and the artist row in a single
// transaction. Albums under the artist go away via FK cascade.
func (s *Store) DeleteArtist(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tracks WHERE artist_id = $1`, id); err != nil {
		return fmt.Errorf("delete artist tracks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrArtistNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit artist delete: %w", err)
	}
	return nil
}

func (s *Store) trackFilePaths(ctx context.Context, query string, arg int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list track files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan track file: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track files: %w", err)
	}
	return paths, nil
}
