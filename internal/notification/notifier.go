// internal/notification/notifier.go
// Notifier port used by the match core and the Dispatcher that fans a
// notification out to the configured delivery channels.

package notification

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Kind identifies a notification template.
type Kind string

const (
	KindNewMatch           Kind = "new_match"
	KindPartnerConfirmed   Kind = "partner_confirmed"
	KindMatchConfirmed     Kind = "match_confirmed"
	KindMatchDeclined      Kind = "match_declined"
	KindExtensionRequested Kind = "extension_requested"
	KindMatchExpired       Kind = "match_expired"
	KindExpiryReminder     Kind = "expiry_reminder"
	KindDonationPrompt     Kind = "donation_prompt"
)

// Payload carries template variables and client-facing data.
type Payload map[string]interface{}

var (
	ErrInvalidRecipient = errors.New("invalid notification recipient")
	ErrNoContact        = errors.New("no contact address for user")
)

// Notifier delivers a notification to one user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind Kind, payload Payload) error
}

// Message is a rendered notification ready for a channel.
type Message struct {
	UserID    int64     `json:"user_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Data      Payload   `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is one delivery mechanism (websocket, email, sms, ...).
type Channel interface {
	Name() string
	Accepts(kind Kind) bool
	Send(ctx context.Context, msg *Message) error
}

// Dispatcher renders a notification once and sends it to every channel that
// accepts its kind. Sends run in the background; Notify never blocks on them.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		channels: channels,
		timeout:  timeout,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, userID int64, kind Kind, payload Payload) error {
	if userID <= 0 {
		return ErrInvalidRecipient
	}

	title, body := RenderTemplate(kind, payload)
	msg := &Message{
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Data:      payload,
		CreatedAt: time.Now().UTC(),
	}

	for _, ch := range d.channels {
		if !ch.Accepts(kind) {
			continue
		}
		d.wg.Add(1)
		go d.send(ch, msg)
	}

	return nil
}

func (d *Dispatcher) send(ch Channel, msg *Message) {
	defer d.wg.Done()

	// Detached from the caller's context: the request may finish before delivery.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := ch.Send(ctx, msg)
	switch {
	case err == nil:
		RecordDelivery(ch.Name(), msg.Kind, "sent")
	case errors.Is(err, ErrNoContact):
		RecordDelivery(ch.Name(), msg.Kind, "skipped")
	default:
		RecordDelivery(ch.Name(), msg.Kind, "failed")
		log.Printf("Failed to send %s notification to user %d via %s: %v", msg.Kind, msg.UserID, ch.Name(), err)
	}
}

// Wait blocks until in-flight sends finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// kindFilter restricts a channel to a set of kinds. Empty means all.
type kindFilter map[Kind]bool

func newKindFilter(kinds []Kind) kindFilter {
	if len(kinds) == 0 {
		return nil
	}
	f := make(kindFilter, len(kinds))
	for _, k := range kinds {
		f[k] = true
	}
	return f
}

func (f kindFilter) accepts(kind Kind) bool {
	return f == nil || f[kind]
}

var _ Notifier = (*Dispatcher)(nil)
