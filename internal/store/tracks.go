package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// trackSelect is the shared projection for track reads. cover_image_path
// resolves the track -> album -> artist image fallback at read time.
const trackSelect = `
	SELECT t.id, t.title, t.artist, t.album, t.artist_id, t.album_id, t.duration_seconds,
		t.image_path, COALESCE(t.image_path, al.image_path, a.image_path) AS cover_image_path,
		t.uploaded_by, t.created_at
	FROM tracks t
	LEFT JOIN albums al ON t.album_id = al.id
	LEFT JOIN artists a ON t.artist_id = a.id`

// NewTrack carries the resolved fields for a track insert.
type NewTrack struct {
	Title           string
	ArtistID        int64
	ArtistName      string
	AlbumID         *int64
	AlbumName       string
	DurationSeconds int
	FilePath        string
	ImagePath       *string
	UploadedBy      int64
}

// ListTracks returns recent tracks, optionally filtered by a substring
// match on title, artist text or album text.
func (s *Store) ListTracks(ctx context.Context, q string, limit, offset int) ([]Track, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if q = strings.TrimSpace(q); q != "" {
		rows, err = s.db.QueryContext(ctx, trackSelect+`
	WHERE t.title ILIKE $1 OR t.artist ILIKE $1 OR t.album ILIKE $1
	ORDER BY t.created_at DESC
	LIMIT $2 OFFSET $3`, "%"+q+"%", limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, trackSelect+`
	ORDER BY t.created_at DESC
	LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return s.collectTracks(ctx, rows)
}

// TracksByArtist returns the artist's tracks, newest first.
func (s *Store) TracksByArtist(ctx context.Context, artistID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, trackSelect+`
	WHERE t.artist_id = $1
	ORDER BY t.created_at DESC`, artistID)
	if err != nil {
		return nil, fmt.Errorf("list artist tracks: %w", err)
	}
	return s.collectTracks(ctx, rows)
}

// TracksByAlbum returns the album's tracks in insertion order.
func (s *Store) TracksByAlbum(ctx context.Context, albumID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ctx, trackSelect+`
	WHERE t.album_id = $1
	ORDER BY t.id`, albumID)
	if err != nil {
		return nil, fmt.Errorf("list album tracks: %w", err)
	}
	return s.collectTracks(ctx, rows)
}

// TrackByID loads a single track with featured credits.
func (s *Store) TrackByID(ctx context.Context, id int64) (Track, error) {
	row := s.db.QueryRowContext(ctx, trackSelect+`
	WHERE t.id = $1`, id)

	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Track{}, ErrTrackNotFound
	}
	if err != nil {
		return Track{}, fmt.Errorf("get track: %w", err)
	}

	tracks := []Track{t}
	if err := s.attachFeatured(ctx, tracks); err != nil {
		return Track{}, err
	}
	return tracks[0], nil
}

// TrackFilePath resolves a track id to its stored audio file path.
func (s *Store) TrackFilePath(ctx context.Context, id int64) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT file_path FROM tracks WHERE id = $1`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTrackNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get track file path: %w", err)
	}
	return path, nil
}

// TrackFileAndUploader loads the fields needed to authorize and perform a
// track deletion.
func (s *Store) TrackFileAndUploader(ctx context.Context, id int64) (string, int64, error) {
	var (
		path       string
		uploadedBy int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT file_path, uploaded_by FROM tracks WHERE id = $1
	`, id).Scan(&path, &uploadedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrTrackNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("get track: %w", err)
	}
	return path, uploadedBy, nil
}

// EnsureArtist looks an artist up by exact name, creating it if absent
// (legacy by-name upload path).
func (s *Store) EnsureArtist(ctx context.Context, name string, createdBy int64) (int64, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", fmt.Errorf("artist name is required")
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM artists WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("lookup artist: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO artists (name, created_by)
		VALUES ($1, $2)
		RETURNING id
	`, name, createdBy).Scan(&id)
	if err != nil {
		return 0, "", fmt.Errorf("insert artist: %w", err)
	}
	return id, name, nil
}

// CreateTrack inserts a track row.
func (s *Store) CreateTrack(ctx context.Context, nt NewTrack) (Track, error) {
	var t Track
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tracks (title, artist, album, artist_id, album_id, duration_seconds, file_path, uploaded_by, image_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, title, artist, album, artist_id, album_id, duration_seconds, image_path, uploaded_by, created_at
	`, nt.Title, nt.ArtistName, nt.AlbumName, nt.ArtistID, nt.AlbumID, nt.DurationSeconds,
		nt.FilePath, nt.UploadedBy, nullIfEmpty(nt.ImagePath)).
		Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.ArtistID, &t.AlbumID, &t.DurationSeconds,
			&t.ImagePath, &t.UploadedBy, &t.CreatedAt)
	if err != nil {
		return Track{}, fmt.Errorf("insert track: %w", err)
	}
	t.CoverImagePath = t.ImagePath
	t.Featured = []FeaturedArtist{}
	return t, nil
}

// UpdateTrack rewrites a track's metadata and fully replaces its featured
// credit links. featured must already be deduplicated and exclude the
// primary artist; ids not matching an existing artist are skipped. The row
// update and link replacement share one transaction.
func (s *Store) UpdateTrack(ctx context.Context, id int64, title, artistName, albumName string, artistID int64, albumID *int64, setImage bool, imagePath *string, featured []int64) (Track, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Track{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if setImage {
		_, err = tx.ExecContext(ctx, `
			UPDATE tracks SET title = $1, artist = $2, album = $3, artist_id = $4, album_id = $5, image_path = $6 WHERE id = $7
		`, title, artistName, albumName, artistID, albumID, nullIfEmpty(imagePath), id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE tracks SET title = $1, artist = $2, album = $3, artist_id = $4, album_id = $5 WHERE id = $6
		`, title, artistName, albumName, artistID, albumID, id)
	}
	if err != nil {
		return Track{}, fmt.Errorf("update track: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM track_featured_artists WHERE track_id = $1
	`, id); err != nil {
		return Track{}, fmt.Errorf("clear featured artists: %w", err)
	}

	if len(featured) > 0 {
		valid := make(map[int64]bool, len(featured))
		var rows *sql.Rows
		rows, err = tx.QueryContext(ctx, `
			SELECT id FROM artists WHERE id = ANY($1)
		`, pq.Array(featured))
		if err != nil {
			return Track{}, fmt.Errorf("validate featured artists: %w", err)
		}
		for rows.Next() {
			var aid int64
			if err = rows.Scan(&aid); err != nil {
				rows.Close()
				return Track{}, fmt.Errorf("scan featured artist: %w", err)
			}
			valid[aid] = true
		}
		rows.Close()
		if err = rows.Err(); err != nil {
			return Track{}, fmt.Errorf("iterate featured artists: %w", err)
		}

		pos := 0
		for _, aid := range featured {
			if !valid[aid] {
				continue
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO track_featured_artists (track_id, artist_id, position)
				VALUES ($1, $2, $3)
			`, id, aid, pos); err != nil {
				return Track{}, fmt.Errorf("insert featured artist: %w", err)
			}
			pos++
		}
	}

	if err = tx.Commit(); err != nil {
		return Track{}, fmt.Errorf("commit track update: %w", err)
	}

	return s.TrackByID(ctx, id)
}

// DeleteTrack removes a track row. Featured links and playlist memberships
// go away via FK cascade.
func (s *Store) DeleteTrack(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrTrackNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (Track, error) {
	var t Track
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.ArtistID, &t.AlbumID,
		&t.DurationSeconds, &t.ImagePath, &t.CoverImagePath, &t.UploadedBy, &t.CreatedAt)
	if err != nil {
		return Track{}, err
	}
	t.Featured = []FeaturedArtist{}
	return t, nil
}

func (s *Store) collectTracks(ctx context.Context, rows *sql.Rows) ([]Track, error) {
	defer rows.Close()

	tracks := make([]Track, 0)
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	if err := s.attachFeatured(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// attachFeatured fills the featured credits for a batch of tracks with a
// single query instead of one per track.
func (s *Store) attachFeatured(ctx context.Context, tracks []Track) error {
	if len(tracks) == 0 {
		return nil
	}

	ids := make([]int64, len(tracks))
	index := make(map[int64]int, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tfa.track_id, fa.id, fa.name
		FROM track_featured_artists tfa
		JOIN artists fa ON fa.id = tfa.artist_id
		WHERE tfa.track_id = ANY($1)
		ORDER BY tfa.track_id, tfa.position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list featured artists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			trackID int64
			fa      FeaturedArtist
		)
		if err := rows.Scan(&trackID, &fa.ID, &fa.Name); err != nil {
			return fmt.Errorf("scan featured artist: %w", err)
		}
		if i, ok := index[trackID]; ok {
			tracks[i].Featured = append(tracks[i].Featured, fa)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate featured artists: %w", err)
	}
	return nil
}
