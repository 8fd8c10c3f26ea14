// internal/messaging/service.go
// Conversation plumbing used by the match core: opening the chat for a
// confirmed match and reading activity for ghosting detection.

package messaging

import (
	"context"
	"time"
)

type MessageService struct {
	repo Repository
}

func NewService(repo Repository) *MessageService {
	return &MessageService{repo: repo}
}

// GetOrCreateConversation returns the pair's direct conversation, opening one
// if none exists. Repeated calls for the same pair return the same id.
func (s *MessageService) GetOrCreateConversation(ctx context.Context, user1ID, user2ID int64) (int64, error) {
	if user1ID <= 0 || user2ID <= 0 || user1ID == user2ID {
		return 0, ErrInvalidParticipants
	}

	id, created, err := s.repo.GetOrCreateDirectConversation(ctx, user1ID, user2ID)
	if err != nil {
		return 0, err
	}
	RecordConversationOpened(created)
	return id, nil
}

func (s *MessageService) IdleConversations(ctx context.Context, cutoff time.Time) ([]Activity, error) {
	return s.repo.IdleConversations(ctx, cutoff)
}

func (s *MessageService) LastMessage(ctx context.Context, conversationID int64) (*Message, error) {
	return s.repo.LastMessage(ctx, conversationID)
}

func (s *MessageService) CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error) {
	return s.repo.CountMessagesBySender(ctx, conversationID, userID)
}

func (s *MessageService) LastActiveAt(ctx context.Context, userID int64) (*time.Time, error) {
	return s.repo.LastActiveAt(ctx, userID)
}
