// internal/messaging/repository.go

package messaging

import (
	"context"
	"time"
)

type Repository interface {
	// Conversations
	// GetOrCreateDirectConversation reports created=false when the pair
	// already shared an active direct conversation.
	GetOrCreateDirectConversation(ctx context.Context, user1ID, user2ID int64) (id int64, created bool, err error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)

	// Activity
	IdleConversations(ctx context.Context, cutoff time.Time) ([]Activity, error)
	LastMessage(ctx context.Context, conversationID int64) (*Message, error)
	CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error)

	// User info
	LastActiveAt(ctx context.Context, userID int64) (*time.Time, error)
}
