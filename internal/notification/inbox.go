package notification

import (
	"context"
	"fmt"
)

// InboxChannel stores notifications in the app's in-app notification list
type InboxChannel struct {
	store Store
	kinds kindFilter
}

func NewInboxChannel(store Store, kinds ...Kind) *InboxChannel {
	return &InboxChannel{store: store, kinds: newKindFilter(kinds)}
}

func (c *InboxChannel) Name() string { return "inbox" }

func (c *InboxChannel) Accepts(kind Kind) bool { return c.kinds.accepts(kind) }

func (c *InboxChannel) Send(ctx context.Context, msg *Message) error {
	if _, err := c.store.SaveNotification(ctx, msg); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}
