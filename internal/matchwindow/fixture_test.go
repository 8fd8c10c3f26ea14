package matchwindow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

const (
	alice int64 = 101
	bob   int64 = 202
	carol int64 = 303
)

type sentNotification struct {
	UserID  int64
	Kind    notification.Kind
	Payload notification.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, kind notification.Kind, payload notification.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (n *recordingNotifier) count(userID int64, kind notification.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.UserID == userID && s.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type fakeConversations struct {
	mu     sync.Mutex
	nextID int64
	byPair map[pairKey]int64
	err    error
}

func (f *fakeConversations) GetOrCreateConversation(ctx context.Context, a, b int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.byPair == nil {
		f.byPair = make(map[pairKey]int64)
	}
	key := keyFor(a, b)
	if id, ok := f.byPair[key]; ok {
		return id, nil
	}
	f.nextID++
	f.byPair[key] = f.nextID
	return f.nextID, nil
}

type countingDonations struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDonations) PromptDonation(ctx context.Context, w *Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

type staticCandidates []Candidate

func (s staticCandidates) Candidates(ctx context.Context, userID int64) ([]Candidate, error) {
	out := make([]Candidate, len(s))
	copy(out, s)
	return out, nil
}

// hookRepo runs a one-shot hook right before the next Update, simulating a
// writer that commits between our read and our save.
type hookRepo struct {
	*MemoryRepository
	mu   sync.Mutex
	hook func()
}

func (h *hookRepo) beforeNextUpdate(fn func()) {
	h.mu.Lock()
	h.hook = fn
	h.mu.Unlock()
}

func (h *hookRepo) Update(ctx context.Context, w *Window) error {
	h.mu.Lock()
	hook := h.hook
	h.hook = nil
	h.mu.Unlock()

	if hook != nil {
		hook()
	}
	return h.MemoryRepository.Update(ctx, w)
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	clock     *clock.Fake
	repo      *hookRepo
	notifier  *recordingNotifier
	convs     *fakeConversations
	donations *countingDonations
	ledger    reputation.Ledger
	svc       Service
	sweeper   *Sweeper
}

func newFixture(t *testing.T, candidates ...Candidate) *fixture {
	t.Helper()

	clk := clock.NewFake(t0)
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		clock:     clk,
		repo:      &hookRepo{MemoryRepository: NewMemoryRepository()},
		notifier:  &recordingNotifier{},
		convs:     &fakeConversations{},
		donations: &countingDonations{},
		ledger:    reputation.NewLedger(reputation.NewMemoryRepository(), nil, clk, reputation.DefaultConfig()),
	}

	deps := Dependencies{
		Repo:          f.repo,
		Clock:         clk,
		Notifier:      f.notifier,
		Reputation:    f.ledger,
		Conversations: f.convs,
		Candidates:    staticCandidates(candidates),
		Donations:     f.donations,
	}
	f.svc = NewService(deps, DefaultConfig())
	f.sweeper = NewSweeper(deps, DefaultConfig())
	return f
}

func (f *fixture) create(a, b int64, score float64) *Window {
	f.t.Helper()
	w, err := f.svc.CreateWindow(f.ctx, a, b, score)
	if err != nil {
		f.t.Fatalf("CreateWindow(%d, %d): %v", a, b, err)
	}
	return w
}

func (f *fixture) get(id uuid.UUID) *Window {
	f.t.Helper()
	w, err := f.svc.GetWindow(f.ctx, id)
	if err != nil {
		f.t.Fatalf("GetWindow: %v", err)
	}
	return w
}

func (f *fixture) events(userID int64, behavior reputation.BehaviorType) []*reputation.Event {
	f.t.Helper()
	events, err := f.ledger.RecentEvents(f.ctx, userID, 100)
	if err != nil {
		f.t.Fatalf("RecentEvents: %v", err)
	}
	var out []*reputation.Event
	for _, e := range events {
		if e.Type == behavior {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) totalEvents(userID int64) int {
	f.t.Helper()
	events, _ := f.ledger.RecentEvents(f.ctx, userID, 100)
	return len(events)
}

// forceStatus commits a status change directly, bypassing the service
func (f *fixture) forceStatus(id uuid.UUID, status Status) {
	f.t.Helper()
	w, err := f.repo.MemoryRepository.GetByPublicID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("forceStatus: %v", err)
	}
	w.Status = status
	if status == StatusConfirmed {
		conv := int64(999)
		w.ConversationID = &conv
	}
	if err := f.repo.MemoryRepository.Update(f.ctx, w); err != nil {
		f.t.Fatalf("forceStatus: %v", err)
	}
}

// assertConversationInvariant checks conversation != nil iff CONFIRMED
func assertConversationInvariant(t *testing.T, windows []*Window) {
	t.Helper()
	for _, w := range windows {
		if (w.ConversationID != nil) != (w.Status == StatusConfirmed) {
			t.Errorf("window %s: status %s with conversation %v", w.PublicID, w.Status, w.ConversationID)
		}
	}
}

func mustErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
