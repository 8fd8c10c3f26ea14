package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateConversation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	first, err := svc.GetOrCreateConversation(ctx, 7, 3)
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}

	again, err := svc.GetOrCreateConversation(ctx, 3, 7)
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	if again != first {
		t.Errorf("expected the same conversation for the pair, got %d and %d", first, again)
	}

	other, _ := svc.GetOrCreateConversation(ctx, 3, 8)
	if other == first {
		t.Error("expected a different pair to get its own conversation")
	}
}

func TestGetOrCreateConversation_InvalidPair(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	for _, pair := range [][2]int64{{5, 5}, {0, 5}, {5, -1}} {
		if _, err := svc.GetOrCreateConversation(context.Background(), pair[0], pair[1]); !errors.Is(err, ErrInvalidParticipants) {
			t.Errorf("pair %v: expected ErrInvalidParticipants, got %v", pair, err)
		}
	}
}

func TestGetOrCreateConversation_Concurrent(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ids := make([]int64, 10)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = svc.GetOrCreateConversation(context.Background(), 1, 2)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("expected a single conversation, got ids %v", ids)
		}
	}
}

func TestMemoryRepository_Activity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	conv, _, _ := repo.GetOrCreateDirectConversation(ctx, 1, 2)
	repo.AddMessage(conv, 1, base)
	repo.AddMessage(conv, 2, base.Add(time.Minute))
	repo.AddMessage(conv, 1, base.Add(2*time.Minute))

	last, err := repo.LastMessage(ctx, conv)
	if err != nil {
		t.Fatalf("LastMessage: %v", err)
	}
	if last.SenderID != 1 || !last.CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("unexpected last message %+v", last)
	}

	count, _ := repo.CountMessagesBySender(ctx, conv, 1)
	if count != 2 {
		t.Errorf("expected 2 messages from user 1, got %d", count)
	}

	idle, _ := repo.IdleConversations(ctx, base.Add(time.Hour))
	if len(idle) != 1 || idle[0].ConversationID != conv {
		t.Fatalf("expected conversation to be idle, got %+v", idle)
	}
	if recipient, ok := idle[0].Recipient(1); !ok || recipient != 2 {
		t.Errorf("expected recipient 2, got %d (%v)", recipient, ok)
	}
	if _, ok := idle[0].Recipient(9); ok {
		t.Error("expected no recipient for a non-participant sender")
	}

	if idle, _ := repo.IdleConversations(ctx, base.Add(time.Minute)); len(idle) != 0 {
		t.Errorf("expected recent conversation not idle, got %d", len(idle))
	}

	if _, err := repo.LastMessage(ctx, 999); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}
