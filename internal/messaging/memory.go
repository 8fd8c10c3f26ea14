package messaging

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and local runs
type MemoryRepository struct {
	mu            sync.Mutex
	conversations map[int64]*Conversation
	messages      map[int64][]*Message
	lastActive    map[int64]time.Time
	nextConvID    int64
	nextMsgID     int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		conversations: make(map[int64]*Conversation),
		messages:      make(map[int64][]*Message),
		lastActive:    make(map[int64]time.Time),
	}
}

func (r *MemoryRepository) GetOrCreateDirectConversation(ctx context.Context, user1ID, user2ID int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lo, hi := user1ID, user2ID
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, c := range r.sortedConversations() {
		if c.Type == ConversationTypeDirect && c.IsActive && c.Participants[0] == lo && c.Participants[1] == hi {
			return c.ID, false, nil
		}
	}

	r.nextConvID++
	now := time.Now()
	r.conversations[r.nextConvID] = &Conversation{
		ID:           r.nextConvID,
		Type:         ConversationTypeDirect,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Participants: []int64{lo, hi},
	}
	return r.nextConvID, true, nil
}

func (r *MemoryRepository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	out := *c
	out.Participants = append([]int64(nil), c.Participants...)
	return &out, nil
}

// AddMessage appends a message and bumps the conversation's last_message_at
func (r *MemoryRepository) AddMessage(conversationID, senderID int64, at time.Time) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	r.nextMsgID++
	msg := &Message{
		ID:             r.nextMsgID,
		ConversationID: conversationID,
		SenderID:       senderID,
		MessageType:    "text",
		CreatedAt:      at,
	}
	r.messages[conversationID] = append(r.messages[conversationID], msg)

	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		t := at
		c.LastMessageAt = &t
	}
	return msg, nil
}

func (r *MemoryRepository) SetLastActive(userID int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActive[userID] = at
}

func (r *MemoryRepository) IdleConversations(ctx context.Context, cutoff time.Time) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Activity
	for _, c := range r.sortedConversations() {
		if c.Type != ConversationTypeDirect || !c.IsActive || c.LastMessageAt == nil || !c.LastMessageAt.Before(cutoff) {
			continue
		}
		out = append(out, Activity{
			ConversationID: c.ID,
			LastMessageAt:  *c.LastMessageAt,
			Participants:   append([]int64(nil), c.Participants...),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.Before(out[j].LastMessageAt)
	})
	return out, nil
}

func (r *MemoryRepository) LastMessage(ctx context.Context, conversationID int64) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last *Message
	for _, m := range r.messages[conversationID] {
		if last == nil || !m.CreatedAt.Before(last.CreatedAt) {
			last = m
		}
	}
	if last == nil {
		return nil, ErrMessageNotFound
	}
	out := *last
	return &out, nil
}

func (r *MemoryRepository) CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, m := range r.messages[conversationID] {
		if m.SenderID == userID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) LastActiveAt(ctx context.Context, userID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.lastActive[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// sortedConversations must be called with mu held
func (r *MemoryRepository) sortedConversations() []*Conversation {
	out := make([]*Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ Repository = (*MemoryRepository)(nil)
