// Package push delivers web push notifications to subscribed browsers and
// keeps the delivery audit log.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"spotliner/internal/store"
)

// Message is the payload shown by the service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Image string `json:"image,omitempty"`
	Badge string `json:"badge,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender pushes one encrypted message to one subscription endpoint and
// reports the push service's status code.
type Sender interface {
	Send(ctx context.Context, sub store.PushSubscription, msg Message) (int, error)
}

// Subscriptions is the subset of the store the dispatcher reads and
// maintains.
type Subscriptions interface {
	SubscriptionsForUser(ctx context.Context, userID int64) ([]store.PushSubscription, error)
	SubscriptionsExcluding(ctx context.Context, userID int64) ([]store.PushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	AppendNotificationLog(ctx context.Context, entry store.NotificationLogEntry) error
	DisplayNamesByUserIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

// VAPIDConfig holds the keys identifying this server to push services.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// webpushSender implements Sender on top of the web push protocol.
type webpushSender struct {
	vapid VAPIDConfig
}

// NewSender returns a Sender backed by the web push protocol.
func NewSender(vapid VAPIDConfig) Sender {
	return &webpushSender{vapid: vapid}
}

func (w *webpushSender) Send(ctx context.Context, sub store.PushSubscription, msg Message) (int, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      w.vapid.Subject,
		VAPIDPublicKey:  w.vapid.PublicKey,
		VAPIDPrivateKey: w.vapid.PrivateKey,
		TTL:             60,
	})
	if err != nil {
		return 0, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Dispatcher fans messages out to subscriptions, prunes dead endpoints and
// records deliveries in the notification log.
type Dispatcher struct {
	subs   Subscriptions
	sender Sender
	logger zerolog.Logger
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(subs Subscriptions, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, sender: sender, logger: logger}
}

// Result summarizes one fan-out.
type Result struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// NotifyNewTrack broadcasts a new-track notification to every subscriber
// except the uploader. Each successful delivery is appended to the
// notification log with the text needed to resend it later.
func (d *Dispatcher) NotifyNewTrack(ctx context.Context, track store.Track, uploaderName string) Result {
	subs, err := d.subs.SubscriptionsExcluding(ctx, track.UploadedBy)
	if err != nil {
		d.logger.Error().Err(err).Msg("load subscriptions for broadcast")
		return Result{}
	}
	if len(subs) == 0 {
		return Result{}
	}

	userIDs := make([]int64, 0, len(subs))
	seen := make(map[int64]bool, len(subs))
	for _, sub := range subs {
		if !seen[sub.UserID] {
			seen[sub.UserID] = true
			userIDs = append(userIDs, sub.UserID)
		}
	}
	names, err := d.subs.DisplayNamesByUserIDs(ctx, userIDs)
	if err != nil {
		d.logger.Warn().Err(err).Msg("resolve recipient names")
		names = map[int64]string{}
	}

	msg := Message{
		Title: "New track",
		Body:  fmt.Sprintf("Uploaded by %s: %s - %s", uploaderName, track.Artist, track.Title),
		URL:   fmt.Sprintf("/tracks/%d", track.ID),
	}

	var result Result
	for _, sub := range subs {
		if err := d.deliver(ctx, sub, msg); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Sent++

		recipient := names[sub.UserID]
		entry := store.NotificationLogEntry{
			UserID:        sub.UserID,
			TrackID:       &track.ID,
			ArtistID:      &track.ArtistID,
			ArtistName:    &track.Artist,
			TrackTitle:    &track.Title,
			UploaderName:  &uploaderName,
			RecipientName: &recipient,
		}
		if err := d.subs.AppendNotificationLog(ctx, entry); err != nil {
			d.logger.Warn().Err(err).Int64("user_id", sub.UserID).Msg("append notification log")
		}
	}

	d.logger.Info().
		Int64("track_id", track.ID).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("new track broadcast")
	return result
}

// SendTest pushes a greeting to every device of one user.
func (d *Dispatcher) SendTest(ctx context.Context, userID int64, name string) (Result, error) {
	msg := Message{
		Title: "Test notification",
		Body:  fmt.Sprintf("Hi %s, push notifications are working.", name),
	}
	return d.sendToUser(ctx, userID, msg)
}

// SendCustom pushes an arbitrary message to an explicit list of users. A
// user without any subscription counts as one failure.
func (d *Dispatcher) SendCustom(ctx context.Context, userIDs []int64, msg Message) (Result, error) {
	var total Result
	for _, userID := range userIDs {
		result, err := d.sendToUser(ctx, userID, msg)
		if err != nil {
			total.Failed++
			total.Errors = append(total.Errors, fmt.Sprintf("user %d: %v", userID, err))
			continue
		}
		total.Sent += result.Sent
		total.Failed += result.Failed
		total.Errors = append(total.Errors, result.Errors...)
	}
	return total, nil
}

// Resend re-delivers a logged notification to its original recipient.
func (d *Dispatcher) Resend(ctx context.Context, entry store.NotificationLogEntry) (Result, error) {
	artist := ""
	if entry.ArtistName != nil {
		artist = *entry.ArtistName
	}
	title := ""
	if entry.TrackTitle != nil {
		title = *entry.TrackTitle
	}
	uploader := ""
	if entry.UploaderName != nil {
		uploader = *entry.UploaderName
	}

	msg := Message{
		Title: "New track",
		Body:  fmt.Sprintf("Uploaded by %s: %s - %s", uploader, artist, title),
	}
	if entry.TrackID != nil {
		msg.URL = fmt.Sprintf("/tracks/%d", *entry.TrackID)
	}
	return d.sendToUser(ctx, entry.UserID, msg)
}

func (d *Dispatcher) sendToUser(ctx context.Context, userID int64, msg Message) (Result, error) {
	subs, err := d.subs.SubscriptionsForUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return Result{}, store.ErrNoSubscription
	}

	var result Result
	for _, sub := range subs {
		if err := d.deliver(ctx, sub, msg); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Sent++
	}
	return result, nil
}

// deliver sends to one endpoint and prunes it when the push service says
// the subscription no longer exists.
func (d *Dispatcher) deliver(ctx context.Context, sub store.PushSubscription, msg Message) error {
	status, err := d.sender.Send(ctx, sub, msg)
	if err != nil {
		d.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("push delivery failed")
		return err
	}
	if status == http.StatusGone || status == http.StatusNotFound {
		if err := d.subs.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
			d.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("prune dead subscription")
		}
		return fmt.Errorf("subscription gone (status %d)", status)
	}
	if status >= 400 {
		return fmt.Errorf("push service status %d", status)
	}
	return nil
}
