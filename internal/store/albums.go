package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ListAlbums returns a page of albums with artist info and track counts.
func (s *Store) ListAlbums(ctx context.Context, limit, offset int) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT al.id, al.name, al.artist_id, al.created_by, al.image_path, al.created_at,
			a.name AS artist_name, a.image_path AS artist_image_path, COUNT(t.id) AS track_count
		FROM albums al
		JOIN artists a ON a.id = al.artist_id
		LEFT JOIN tracks t ON t.album_id = al.id
		GROUP BY al.id, al.name, al.artist_id, al.created_by, al.image_path, al.created_at, a.name, a.image_path
		ORDER BY al.name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	albums := make([]Album, 0)
	for rows.Next() {
		var al Album
		if err := rows.Scan(&al.ID, &al.Name, &al.ArtistID, &al.CreatedBy, &al.ImagePath, &al.CreatedAt,
			&al.ArtistName, &al.ArtistImagePath, &al.TrackCount); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, al)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// AlbumByID loads a single album with its artist's name and image.
func (s *Store) AlbumByID(ctx context.Context, id int64) (Album, error) {
	var al Album
	err := s.db.QueryRowContext(ctx, `
		SELECT al.id, al.name, al.artist_id, al.created_by, al.image_path, al.created_at,
			a.name AS artist_name, a.image_path AS artist_image_path
		FROM albums al
		JOIN artists a ON a.id = al.artist_id
		WHERE al.id = $1
	`, id).Scan(&al.ID, &al.Name, &al.ArtistID, &al.CreatedBy, &al.ImagePath, &al.CreatedAt,
		&al.ArtistName, &al.ArtistImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return Album{}, ErrAlbumNotFound
	}
	if err != nil {
		return Album{}, fmt.Errorf("get album: %w", err)
	}
	return al, nil
}

// CreateAlbum inserts a new album under an existing artist. The name must
// be unique within that artist's albums.
func (s *Store) CreateAlbum(ctx context.Context, name string, artistID, createdBy int64, imagePath *string) (Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Album{}, fmt.Errorf("album name is required")
	}

	artist, err := s.ArtistByID(ctx, artistID)
	if err != nil {
		return Album{}, err
	}

	var existing int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM albums WHERE artist_id = $1 AND name = $2
	`, artistID, name).Scan(&existing)
	if err == nil {
		return Album{}, ErrAlbumExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Album{}, fmt.Errorf("check album name: %w", err)
	}

	var al Album
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO albums (name, artist_id, created_by, image_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, artist_id, created_by, image_path, created_at
	`, name, artistID, createdBy, nullIfEmpty(imagePath)).
		Scan(&al.ID, &al.Name, &al.ArtistID, &al.CreatedBy, &al.ImagePath, &al.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Album{}, ErrAlbumExists
		}
		return Album{}, fmt.Errorf("insert album: %w", err)
	}

	al.ArtistName = artist.Name
	al.ArtistImagePath = artist.ImagePath
	return al, nil
}

// UpdateAlbum renames an album and/or reassigns it to another artist, then
// fans the change out to every member track's denormalized album and artist
// fields. All writes share one transaction.
func (s *Store) UpdateAlbum(ctx context.Context, id int64, name string, artistID int64, setImage bool, imagePath *string) (Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Album{}, fmt.Errorf("album name is required")
	}

	artist, err := s.ArtistByID(ctx, artistID)
	if err != nil {
		return Album{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Album{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if setImage {
		_, err = tx.ExecContext(ctx, `
			UPDATE albums SET name = $1, artist_id = $2, image_path = $3 WHERE id = $4
		`, name, artistID, nullIfEmpty(imagePath), id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE albums SET name = $1, artist_id = $2 WHERE id = $3
		`, name, artistID, id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return Album{}, ErrAlbumExists
		}
		return Album{}, fmt.Errorf("update album: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE tracks SET album = $1, artist = $2, artist_id = $3 WHERE album_id = $4
	`, name, artist.Name, artistID, id); err != nil {
		return Album{}, fmt.Errorf("fan out album update: %w", err)
	}

	var al Album
	if err = tx.QueryRowContext(ctx, `
		SELECT id, name, artist_id, created_by, image_path, created_at
		FROM albums
		WHERE id = $1
	`, id).Scan(&al.ID, &al.Name, &al.ArtistID, &al.CreatedBy, &al.ImagePath, &al.CreatedAt); err != nil {
		return Album{}, fmt.Errorf("reload album: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return Album{}, fmt.Errorf("commit album update: %w", err)
	}

	al.ArtistName = artist.Name
	al.ArtistImagePath = artist.ImagePath
	return al, nil
}

// TrackFilePathsByAlbum lists the audio files of the album's tracks.
func (s *Store) TrackFilePathsByAlbum(ctx context.Context, albumID int64) ([]string, error) {
	return s.trackFilePaths(ctx, `SELECT file_path FROM tracks WHERE album_id = $1`, albumID)
}

// DeleteAlbum removes the album's tracks and the album row in one
// transaction.
func (s *Store) DeleteAlbum(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM tracks WHERE album_id = $1`, id); err != nil {
		return fmt.Errorf("delete album tracks: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = ErrAlbumNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit album delete: %w", err)
	}
	return nil
}

// EnsureAlbum looks an album up by name under the artist, creating it if
// absent (legacy by-name upload path).
func (s *Store) EnsureAlbum(ctx context.Context, artistID int64, name string, createdBy int64) (int64, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", fmt.Errorf("album name is required")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM albums WHERE artist_id = $1 AND name = $2
	`, artistID, name).Scan(&id)
	if err == nil {
		return id, name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("lookup album: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO albums (name, artist_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, artistID, createdBy).Scan(&id)
	if err != nil {
		return 0, "", fmt.Errorf("insert album: %w", err)
	}
	return id, name, nil
}
