package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SaveSubscription registers or refreshes a push subscription. The
// endpoint is the identity; re-registering an endpoint reassigns it to the
// caller and refreshes the keys.
func (s *Store) SaveSubscription(ctx context.Context, sub PushSubscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
	`, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth)
	if err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// DeleteSubscriptionsByUser drops every subscription the user registered.
func (s *Store) DeleteSubscriptionsByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM push_subscriptions WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	return nil
}

// DeleteSubscriptionByEndpoint drops a single dead subscription, typically
// after the push service answered 404 or 410.
func (s *Store) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM push_subscriptions WHERE endpoint = $1
	`, endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// SubscriptionsForUser returns the user's registered subscriptions.
func (s *Store) SubscriptionsForUser(ctx context.Context, userID int64) ([]PushSubscription, error) {
	return s.querySubscriptions(ctx, `
		SELECT user_id, endpoint, p256dh, auth
		FROM push_subscriptions
		WHERE user_id = $1
	`, userID)
}

// SubscriptionsExcluding returns every subscription except those belonging
// to the given user. Used to broadcast without notifying the uploader.
func (s *Store) SubscriptionsExcluding(ctx context.Context, userID int64) ([]PushSubscription, error) {
	return s.querySubscriptions(ctx, `
		SELECT user_id, endpoint, p256dh, auth
		FROM push_subscriptions
		WHERE user_id <> $1
	`, userID)
}

func (s *Store) querySubscriptions(ctx context.Context, query string, args ...any) ([]PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]PushSubscription, 0)
	for rows.Next() {
		var sub PushSubscription
		if err := rows.Scan(&sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// AppendNotificationLog records one delivered notification.
func (s *Store) AppendNotificationLog(ctx context.Context, entry NotificationLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_notification_log (user_id, track_id, artist_id, artist_name, track_title, uploader_name, recipient_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.UserID, entry.TrackID, entry.ArtistID, entry.ArtistName, entry.TrackTitle,
		entry.UploaderName, entry.RecipientName)
	if err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}

// NotificationsForUser returns the user's delivered notifications, newest
// first.
func (s *Store) NotificationsForUser(ctx context.Context, userID int64, limit int) ([]NotificationLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, track_id, artist_id, artist_name, track_title, uploader_name, recipient_name, sent_at
		FROM push_notification_log
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	entries := make([]NotificationLogEntry, 0)
	for rows.Next() {
		var e NotificationLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.TrackID, &e.ArtistID, &e.ArtistName,
			&e.TrackTitle, &e.UploaderName, &e.RecipientName, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return entries, nil
}

// NotificationByID loads one log entry scoped to its recipient. Foreign
// entries are reported as not found.
func (s *Store) NotificationByID(ctx context.Context, id, userID int64) (NotificationLogEntry, error) {
	var e NotificationLogEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, track_id, artist_id, artist_name, track_title, uploader_name, recipient_name, sent_at
		FROM push_notification_log
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&e.ID, &e.UserID, &e.TrackID, &e.ArtistID, &e.ArtistName,
		&e.TrackTitle, &e.UploaderName, &e.RecipientName, &e.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NotificationLogEntry{}, ErrNotificationNotFound
	}
	if err != nil {
		return NotificationLogEntry{}, fmt.Errorf("get notification: %w", err)
	}
	return e, nil
}

// PushSubscribers summarizes the users holding at least one subscription.
func (s *Store) PushSubscribers(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.display_name, COUNT(ps.endpoint) AS subscription_count
		FROM users u
		JOIN push_subscriptions ps ON ps.user_id = u.id
		GROUP BY u.id, u.email, u.display_name
		ORDER BY u.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	subscribers := make([]Subscriber, 0)
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.DisplayName, &sub.SubscriptionCount); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// DisplayNamesByUserIDs resolves user ids to display names (falling back
// to emails) in one query.
func (s *Store) DisplayNamesByUserIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, display_name
		FROM users
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			email       string
			displayName *string
		)
		if err := rows.Scan(&id, &email, &displayName); err != nil {
			return nil, fmt.Errorf("scan user name: %w", err)
		}
		if displayName != nil && *displayName != "" {
			names[id] = *displayName
		} else {
			names[id] = email
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user names: %w", err)
	}
	return names, nil
}
