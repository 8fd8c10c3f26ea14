// internal/notification/push.go

package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMClient is the subset of the Firebase messaging client the push channel uses
type FCMClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushChannel delivers notifications through Firebase Cloud Messaging to
// every active device token of the user
type PushChannel struct {
	client FCMClient
	store  Store
	kinds  kindFilter
}

// NewFCMPushChannel initializes Firebase from a credentials file, or from
// inline JSON when no file is given
func NewFCMPushChannel(ctx context.Context, credentialsPath, credentialsJSON string, store Store, kinds ...Kind) (*PushChannel, error) {
	var opt option.ClientOption
	switch {
	case credentialsPath != "":
		opt = option.WithCredentialsFile(credentialsPath)
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	default:
		return nil, errors.New("firebase credentials path or JSON must be set")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return newPushChannel(client, store, kinds...), nil
}

func newPushChannel(client FCMClient, store Store, kinds ...Kind) *PushChannel {
	return &PushChannel{client: client, store: store, kinds: newKindFilter(kinds)}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Accepts(kind Kind) bool { return c.kinds.accepts(kind) }

func (c *PushChannel) Send(ctx context.Context, msg *Message) error {
	tokens, err := c.store.ActivePushTokens(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return ErrNoContact
	}

	data := map[string]string{
		"kind":  string(msg.Kind),
		"title": msg.Title,
		"body":  msg.Body,
	}
	if id := getStringValue(msg.Data, "window_id", ""); id != "" {
		data["window_id"] = id
	}

	resp, err := c.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: priorityFor(msg.Kind),
			Notification: &messaging.AndroidNotification{
				ClickAction: "FLUTTER_NOTIFICATION_CLICK",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriorityFor(msg.Kind)},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: msg.Title, Body: msg.Body},
					Sound: "default",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	for i, r := range resp.Responses {
		if r.Error == nil || i >= len(tokens) {
			continue
		}
		if messaging.IsUnregistered(r.Error) {
			if err := c.store.DeactivatePushToken(ctx, tokens[i]); err != nil {
				log.Printf("Failed to deactivate push token for user %d: %v", msg.UserID, err)
			}
			continue
		}
		log.Printf("Failed to send push to a device of user %d: %v", msg.UserID, r.Error)
	}

	if resp.SuccessCount == 0 {
		return fmt.Errorf("push failed on all %d devices", len(tokens))
	}
	return nil
}

// Time-critical kinds wake the device
func priorityFor(kind Kind) string {
	switch kind {
	case KindExpiryReminder, KindMatchConfirmed, KindNewMatch:
		return "high"
	default:
		return "normal"
	}
}

func apnsPriorityFor(kind Kind) string {
	if priorityFor(kind) == "high" {
		return "10"
	}
	return "5"
}
