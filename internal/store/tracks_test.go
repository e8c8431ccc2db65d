package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

var trackColumns = []string{
	"id", "title", "artist", "album", "artist_id", "album_id", "duration_seconds",
	"image_path", "cover_image_path", "uploaded_by", "created_at",
}

func TestListTracksAttachesFeatured(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(trackSelect + `
	ORDER BY t.created_at DESC
	LIMIT $1 OFFSET $2`)).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(trackColumns).
			AddRow(int64(1), "One More Time", "Daft Punk", "Discovery", int64(5), int64(9), 320,
				nil, "images/discovery.jpg", int64(2), sampleTime).
			AddRow(int64(2), "Instant Crush", "Daft Punk", "Random Access Memories", int64(5), int64(10), 337,
				nil, nil, int64(2), sampleTime))

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT tfa.track_id, fa.id, fa.name
		FROM track_featured_artists tfa
		JOIN artists fa ON fa.id = tfa.artist_id
		WHERE tfa.track_id = ANY($1)
		ORDER BY tfa.track_id, tfa.position
	`)).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"track_id", "id", "name"}).
			AddRow(int64(2), int64(8), "Julian Casablancas"))

	tracks, err := s.ListTracks(context.Background(), "", 50, 0)
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if len(tracks[0].Featured) != 0 {
		t.Fatalf("expected no featured artists on first track, got %#v", tracks[0].Featured)
	}
	if len(tracks[1].Featured) != 1 || tracks[1].Featured[0].Name != "Julian Casablancas" {
		t.Fatalf("unexpected featured artists: %#v", tracks[1].Featured)
	}
	if tracks[0].CoverImagePath == nil || *tracks[0].CoverImagePath != "images/discovery.jpg" {
		t.Fatalf("expected resolved cover image, got %#v", tracks[0].CoverImagePath)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListTracksFiltersBySubstring(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(trackSelect + `
	WHERE t.title ILIKE $1 OR t.artist ILIKE $1 OR t.album ILIKE $1
	ORDER BY t.created_at DESC
	LIMIT $2 OFFSET $3`)).
		WithArgs("%daft%", 20, 0).
		WillReturnRows(sqlmock.NewRows(trackColumns))

	tracks, err := s.ListTracks(context.Background(), " daft ", 20, 0)
	if err != nil {
		t.Fatalf("ListTracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected empty result, got %d", len(tracks))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTrackFilePathNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT file_path FROM tracks WHERE id = $1`)).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	_, err = s.TrackFilePath(context.Background(), 999)
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateTrackReplacesFeaturedLinks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
			UPDATE tracks SET title = $1, artist = $2, album = $3, artist_id = $4, album_id = $5 WHERE id = $6
		`)).
		WithArgs("Instant Crush", "Daft Punk", "Random Access Memories", int64(5), int64(10), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM track_featured_artists WHERE track_id = $1
	`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`
			SELECT id FROM artists WHERE id = ANY($1)
		`)).
		WithArgs(pq.Array([]int64{8, 999})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec(regexp.QuoteMeta(`
				INSERT INTO track_featured_artists (track_id, artist_id, position)
				VALUES ($1, $2, $3)
			`)).
		WithArgs(int64(2), int64(8), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta(trackSelect + `
	WHERE t.id = $1`)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(trackColumns).
			AddRow(int64(2), "Instant Crush", "Daft Punk", "Random Access Memories", int64(5), int64(10), 337,
				nil, nil, int64(2), sampleTime))
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT tfa.track_id, fa.id, fa.name
		FROM track_featured_artists tfa
		JOIN artists fa ON fa.id = tfa.artist_id
		WHERE tfa.track_id = ANY($1)
		ORDER BY tfa.track_id, tfa.position
	`)).
		WithArgs(pq.Array([]int64{2})).
		WillReturnRows(sqlmock.NewRows([]string{"track_id", "id", "name"}).
			AddRow(int64(2), int64(8), "Julian Casablancas"))

	albumID := int64(10)
	got, err := s.UpdateTrack(context.Background(), 2, "Instant Crush", "Daft Punk",
		"Random Access Memories", 5, &albumID, false, nil, []int64{8, 999})
	if err != nil {
		t.Fatalf("UpdateTrack: %v", err)
	}
	if len(got.Featured) != 1 || got.Featured[0].ID != 8 {
		t.Fatalf("unexpected featured artists: %#v", got.Featured)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteTrackNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tracks WHERE id = $1`)).
		WithArgs(int64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteTrack(context.Background(), 999); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
