package notifications

import (
	"context"
	"errors"
	"fmt"

	"spotliner/internal/app"
	"spotliner/internal/auth"
	"spotliner/internal/push"
	"spotliner/internal/store"
)

// Store captures the persistence needs for push subscriptions and the
// notification log.
type Store interface {
	SaveSubscription(ctx context.Context, sub store.PushSubscription) error
	DeleteSubscriptionsByUser(ctx context.Context, userID int64) error
	NotificationsForUser(ctx context.Context, userID int64, limit int) ([]store.NotificationLogEntry, error)
	NotificationByID(ctx context.Context, id, userID int64) (store.NotificationLogEntry, error)
	PushSubscribers(ctx context.Context) ([]store.Subscriber, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
}

// Dispatcher delivers push messages.
type Dispatcher interface {
	SendTest(ctx context.Context, userID int64, name string) (push.Result, error)
	SendCustom(ctx context.Context, userIDs []int64, msg push.Message) (push.Result, error)
	Resend(ctx context.Context, entry store.NotificationLogEntry) (push.Result, error)
}

// Service coordinates subscription management, the notification history
// and the admin push tools.
type Service interface {
	Subscribe(ctx context.Context, userID int64, endpoint, p256dh, authKey string) error
	Unsubscribe(ctx context.Context, userID int64) error
	History(ctx context.Context, userID int64, limit int) ([]store.NotificationLogEntry, error)
	Resend(ctx context.Context, userID, notificationID int64) (push.Result, error)
	SendTest(ctx context.Context, userID int64) (push.Result, error)
	SendCustom(ctx context.Context, identity auth.Identity, userIDs []int64, msg push.Message) (push.Result, error)
	Subscribers(ctx context.Context, identity auth.Identity) ([]store.Subscriber, error)
}

type service struct {
	store      Store
	dispatcher Dispatcher
}

// New constructs a Service backed by the provided Store and Dispatcher.
func New(store Store, dispatcher Dispatcher) Service {
	return &service{store: store, dispatcher: dispatcher}
}

func (s *service) Subscribe(ctx context.Context, userID int64, endpoint, p256dh, authKey string) error {
	if endpoint == "" || p256dh == "" || authKey == "" {
		return fmt.Errorf("endpoint and keys are required")
	}
	return s.store.SaveSubscription(ctx, store.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     authKey,
	})
}

func (s *service) Unsubscribe(ctx context.Context, userID int64) error {
	return s.store.DeleteSubscriptionsByUser(ctx, userID)
}

func (s *service) History(ctx context.Context, userID int64, limit int) ([]store.NotificationLogEntry, error) {
	return s.store.NotificationsForUser(ctx, userID, limit)
}

// ErrPushDisabled indicates the server runs without VAPID keys.
var ErrPushDisabled = errors.New("push notifications are not configured")

// Resend re-delivers one of the caller's own logged notifications.
func (s *service) Resend(ctx context.Context, userID, notificationID int64) (push.Result, error) {
	if s.dispatcher == nil {
		return push.Result{}, ErrPushDisabled
	}
	entry, err := s.store.NotificationByID(ctx, notificationID, userID)
	if err != nil {
		return push.Result{}, err
	}
	return s.dispatcher.Resend(ctx, entry)
}

func (s *service) SendTest(ctx context.Context, userID int64) (push.Result, error) {
	if s.dispatcher == nil {
		return push.Result{}, ErrPushDisabled
	}
	name := "there"
	if user, err := s.store.UserByID(ctx, userID); err == nil {
		name = user.Name()
	}
	return s.dispatcher.SendTest(ctx, userID, name)
}

// SendCustom pushes an arbitrary message to an explicit list of users.
// Admin only.
func (s *service) SendCustom(ctx context.Context, identity auth.Identity, userIDs []int64, msg push.Message) (push.Result, error) {
	if !identity.Role.IsAdmin() {
		return push.Result{}, app.ErrForbidden
	}
	if msg.Title == "" || msg.Body == "" {
		return push.Result{}, fmt.Errorf("title and body are required")
	}
	if len(userIDs) == 0 {
		return push.Result{}, fmt.Errorf("at least one user id is required")
	}
	if s.dispatcher == nil {
		return push.Result{}, ErrPushDisabled
	}
	return s.dispatcher.SendCustom(ctx, userIDs, msg)
}

// Subscribers lists the users holding push subscriptions. Admin only.
func (s *service) Subscribers(ctx context.Context, identity auth.Identity) ([]store.Subscriber, error) {
	if !identity.Role.IsAdmin() {
		return nil, app.ErrForbidden
	}
	return s.store.PushSubscribers(ctx)
}
