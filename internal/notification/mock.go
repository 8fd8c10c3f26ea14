package notification

import (
	"context"
	"log"
	"sync"
)

// MockChannel records messages instead of delivering them. Used for the
// "mock" email/SMS providers in development and in tests.
type MockChannel struct {
	name  string
	kinds kindFilter

	mu   sync.Mutex
	sent []*Message
}

func NewMockChannel(name string, kinds ...Kind) *MockChannel {
	return &MockChannel{name: name, kinds: newKindFilter(kinds)}
}

func (m *MockChannel) Name() string { return m.name }

func (m *MockChannel) Accepts(kind Kind) bool { return m.kinds.accepts(kind) }

func (m *MockChannel) Send(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	log.Printf("Mock %s: %s to user %d: %s", m.name, msg.Kind, msg.UserID, msg.Title)
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MockChannel) Sent() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, len(m.sent))
	copy(out, m.sent)
	return out
}
