package ghosting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
	"github.com/imadgeboyega/kiekky-matchcore/internal/messaging"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

const (
	sender    int64 = 11
	recipient int64 = 22
)

type harness struct {
	ctx      context.Context
	clock    *clock.Fake
	messages *messaging.MemoryRepository
	ledger   reputation.Ledger
	flags    *MemoryFlagCache
	detector *Detector
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewFake(t0)
	h := &harness{
		ctx:      context.Background(),
		clock:    clk,
		messages: messaging.NewMemoryRepository(),
		flags:    NewMemoryFlagCache(DefaultMaxEntries),
	}
	h.ledger = reputation.NewLedger(reputation.NewMemoryRepository(), nil, clk, reputation.DefaultConfig())
	h.detector = NewDetector(h.messages, h.flags, h.ledger, clk, DefaultConfig())
	return h
}

// conversation builds a chat where the recipient sent repliesFromRecipient
// messages and the sender spoke last at lastAt
func (h *harness) conversation(t *testing.T, a, b int64, repliesFromRecipient int, lastAt time.Time) int64 {
	t.Helper()
	conv, _, err := h.messages.GetOrCreateDirectConversation(h.ctx, a, b)
	if err != nil {
		t.Fatalf("GetOrCreateDirectConversation: %v", err)
	}
	at := lastAt.Add(-time.Duration(repliesFromRecipient+1) * time.Hour)
	for i := 0; i < repliesFromRecipient; i++ {
		h.messages.AddMessage(conv, a, at)
		at = at.Add(30 * time.Minute)
		h.messages.AddMessage(conv, b, at)
		at = at.Add(30 * time.Minute)
	}
	h.messages.AddMessage(conv, a, lastAt)
	return conv
}

func (h *harness) ghostingEvents(t *testing.T, userID int64) []*reputation.Event {
	t.Helper()
	events, err := h.ledger.RecentEvents(h.ctx, userID, 100)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	var out []*reputation.Event
	for _, e := range events {
		if e.Type == reputation.BehaviorGhosting {
			out = append(out, e)
		}
	}
	return out
}

func TestRun_FlagsSilentActiveRecipient(t *testing.T) {
	h := newHarness(t)
	conv := h.conversation(t, sender, recipient, 2, t0)
	h.messages.SetLastActive(recipient, t0.Add(50*time.Hour))

	h.clock.Set(t0.Add(73 * time.Hour))
	result, err := h.detector.Run(h.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Flagged != 1 {
		t.Fatalf("expected 1 flagged, got %+v", result)
	}

	events := h.ghostingEvents(t, recipient)
	if len(events) != 1 {
		t.Fatalf("expected 1 GHOSTING event, got %d", len(events))
	}
	e := events[0]
	if e.TargetUserID == nil || *e.TargetUserID != sender {
		t.Errorf("expected target %d, got %v", sender, e.TargetUserID)
	}
	if got, ok := e.Payload["conversation_id"].(int64); !ok || got != conv {
		t.Errorf("expected conversation_id %d in payload, got %v", conv, e.Payload["conversation_id"])
	}
	if e.Payload["silent_hours"] != 73 {
		t.Errorf("expected 73 silent hours, got %v", e.Payload["silent_hours"])
	}
	if len(h.ghostingEvents(t, sender)) != 0 {
		t.Error("expected nothing recorded against the sender")
	}
}

func TestRun_DeduplicatesSameSilence(t *testing.T) {
	h := newHarness(t)
	h.conversation(t, sender, recipient, 2, t0)
	h.messages.SetLastActive(recipient, t0.Add(50*time.Hour))

	h.clock.Set(t0.Add(73 * time.Hour))
	h.detector.Run(h.ctx)
	h.clock.Advance(time.Hour)
	result, _ := h.detector.Run(h.ctx)

	if result.Flagged != 0 || result.Skipped != 1 {
		t.Errorf("expected the second run to skip, got %+v", result)
	}
	if n := len(h.ghostingEvents(t, recipient)); n != 1 {
		t.Errorf("expected one event across runs, got %d", n)
	}
}

func TestRun_NewSilenceIsFlaggedAgain(t *testing.T) {
	h := newHarness(t)
	conv := h.conversation(t, sender, recipient, 2, t0)
	h.messages.SetLastActive(recipient, t0.Add(200*time.Hour))

	h.clock.Set(t0.Add(73 * time.Hour))
	h.detector.Run(h.ctx)

	// The sender tries again and is ignored again
	h.messages.AddMessage(conv, sender, t0.Add(80*time.Hour))
	h.clock.Set(t0.Add(160 * time.Hour))
	result, _ := h.detector.Run(h.ctx)

	if result.Flagged != 1 {
		t.Fatalf("expected the new silence to be flagged, got %+v", result)
	}
	if n := len(h.ghostingEvents(t, recipient)); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
}

func TestRun_ClearGhostingFlag(t *testing.T) {
	h := newHarness(t)
	conv := h.conversation(t, sender, recipient, 2, t0)
	h.messages.SetLastActive(recipient, t0.Add(50*time.Hour))

	h.clock.Set(t0.Add(73 * time.Hour))
	h.detector.Run(h.ctx)

	if err := h.detector.ClearGhostingFlag(h.ctx, conv, recipient); err != nil {
		t.Fatalf("ClearGhostingFlag: %v", err)
	}
	if h.flags.Len() != 0 {
		t.Errorf("expected flags cleared, %d left", h.flags.Len())
	}

	result, _ := h.detector.Run(h.ctx)
	if result.Flagged != 1 {
		t.Errorf("expected a cleared silence to be detectable again, got %+v", result)
	}
}

func TestRun_SkipRules(t *testing.T) {
	tests := []struct {
		name       string
		replies    int
		lastActive *time.Time
		now        time.Time
		wantScan   int
	}{
		{
			name:       "recipient barely engaged",
			replies:    1,
			lastActive: timePtr(t0.Add(50 * time.Hour)),
			now:        t0.Add(73 * time.Hour),
			wantScan:   1,
		},
		{
			name:       "recipient inactive since before the cutoff",
			replies:    3,
			lastActive: timePtr(t0.Add(-time.Hour)),
			now:        t0.Add(73 * time.Hour),
			wantScan:   1,
		},
		{
			name:     "recipient activity unknown",
			replies:  3,
			now:      t0.Add(73 * time.Hour),
			wantScan: 1,
		},
		{
			name:       "silence shorter than threshold",
			replies:    3,
			lastActive: timePtr(t0.Add(10 * time.Hour)),
			now:        t0.Add(71 * time.Hour),
			wantScan:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.conversation(t, sender, recipient, tt.replies, t0)
			if tt.lastActive != nil {
				h.messages.SetLastActive(recipient, *tt.lastActive)
			}

			h.clock.Set(tt.now)
			result, err := h.detector.Run(h.ctx)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if result.Scanned != tt.wantScan || result.Flagged != 0 {
				t.Errorf("expected %d scanned and none flagged, got %+v", tt.wantScan, result)
			}
			if n := len(h.ghostingEvents(t, recipient)); n != 0 {
				t.Errorf("expected no events, got %d", n)
			}
		})
	}
}

type failingReader struct {
	*messaging.MemoryRepository
	failConversation int64
}

func (r *failingReader) CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error) {
	if conversationID == r.failConversation {
		return 0, errors.New("read timeout")
	}
	return r.MemoryRepository.CountMessagesBySender(ctx, conversationID, userID)
}

func TestRun_PerConversationFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	broken := h.conversation(t, sender, recipient, 2, t0)
	h.conversation(t, 33, 44, 2, t0.Add(time.Minute))
	h.messages.SetLastActive(recipient, t0.Add(50*time.Hour))
	h.messages.SetLastActive(44, t0.Add(50*time.Hour))

	reader := &failingReader{MemoryRepository: h.messages, failConversation: broken}
	detector := NewDetector(reader, h.flags, h.ledger, h.clock, DefaultConfig())

	h.clock.Set(t0.Add(73 * time.Hour))
	result, err := detector.Run(h.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Flagged != 1 {
		t.Errorf("expected one failure and one flag, got %+v", result)
	}
	if n := len(h.ghostingEvents(t, 44)); n != 1 {
		t.Errorf("expected the healthy conversation to be processed, got %d events", n)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
