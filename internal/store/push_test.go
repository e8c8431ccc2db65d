package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSaveSubscriptionUpsertsByEndpoint(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
	`)).
		WithArgs(int64(5), "https://push.example/abc", "p256dh-key", "auth-key").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub := PushSubscription{
		UserID:   5,
		Endpoint: "https://push.example/abc",
		P256dh:   "p256dh-key",
		Auth:     "auth-key",
	}
	if err := s.SaveSubscription(context.Background(), sub); err != nil {
		t.Fatalf("SaveSubscription: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendNotificationLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	trackID := int64(12)
	artistID := int64(3)
	artistName := "Daft Punk"
	trackTitle := "Around the World"
	uploaderName := "ana"
	recipientName := "bo"

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO push_notification_log (user_id, track_id, artist_id, artist_name, track_title, uploader_name, recipient_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)).
		WithArgs(int64(8), &trackID, &artistID, &artistName, &trackTitle, &uploaderName, &recipientName).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := NotificationLogEntry{
		UserID:        8,
		TrackID:       &trackID,
		ArtistID:      &artistID,
		ArtistName:    &artistName,
		TrackTitle:    &trackTitle,
		UploaderName:  &uploaderName,
		RecipientName: &recipientName,
	}
	if err := s.AppendNotificationLog(context.Background(), entry); err != nil {
		t.Fatalf("AppendNotificationLog: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNotificationByIDScopedToRecipient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, user_id, track_id, artist_id, artist_name, track_title, uploader_name, recipient_name, sent_at
		FROM push_notification_log
		WHERE id = $1 AND user_id = $2
	`)).
		WithArgs(int64(40), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "track_id", "artist_id", "artist_name",
			"track_title", "uploader_name", "recipient_name", "sent_at",
		}))

	if _, err := s.NotificationByID(context.Background(), 40, 9); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}
