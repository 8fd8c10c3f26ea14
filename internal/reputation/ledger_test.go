package reputation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	mu      sync.Mutex
	created map[int64]time.Time
}

func (f *fakeAccounts) AccountCreatedAt(ctx context.Context, userID int64) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.created[userID]
	if !ok {
		return time.Time{}, ErrAccountNotFound
	}
	return c, nil
}

func newTestLedger(accounts AccountDirectory) (Ledger, *MemoryRepository, *clock.Fake) {
	repo := NewMemoryRepository()
	clk := clock.NewFake(t0)
	return NewLedger(repo, accounts, clk, DefaultConfig()), repo, clk
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecordBehavior_RoutesImpactAndCounter(t *testing.T) {
	l, _, _ := newTestLedger(nil)
	ctx := context.Background()
	target := int64(2)

	event, err := l.RecordBehavior(ctx, 1, BehaviorGhosting, &target, Payload{"conversation_id": 9})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.ID == 0 {
		t.Error("expected event to be assigned an id")
	}
	if event.Impact != -2.0 || event.DecayFactor != 1.0 {
		t.Errorf("expected full impact -2.0, got impact=%v decay=%v", event.Impact, event.DecayFactor)
	}
	if event.Dimension != DimensionRespect {
		t.Errorf("expected respect dimension, got %q", event.Dimension)
	}

	score, err := l.GetReputation(ctx, 1)
	if err != nil {
		t.Fatalf("GetReputation: %v", err)
	}
	if score.RespectScore != 48 {
		t.Errorf("expected respect 48, got %v", score.RespectScore)
	}
	if score.ResponseQuality != 50 || score.AuthenticityScore != 50 || score.InvestmentScore != 50 {
		t.Errorf("expected other dimensions untouched, got %+v", score)
	}
	if score.GhostingCount != 1 {
		t.Errorf("expected ghosting count 1, got %d", score.GhostingCount)
	}
}

func TestRecordBehavior_DimensionTable(t *testing.T) {
	tests := []struct {
		behavior BehaviorType
		dim      Dimension
		impact   float64
	}{
		{BehaviorThoughtfulMessage, DimensionResponse, 0.5},
		{BehaviorSlowResponse, DimensionResponse, -0.2},
		{BehaviorGracefulDecline, DimensionRespect, 0.5},
		{BehaviorReportUpheld, DimensionRespect, -10},
		{BehaviorVideoVerified, DimensionAuthenticity, 3},
		{BehaviorMisrepresentation, DimensionAuthenticity, -15},
		{BehaviorScheduledDate, DimensionInvestment, 1},
		{BehaviorCompletedDate, DimensionInvestment, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.behavior), func(t *testing.T) {
			l, _, _ := newTestLedger(nil)
			if _, err := l.RecordBehavior(context.Background(), 7, tt.behavior, nil, nil); err != nil {
				t.Fatalf("RecordBehavior: %v", err)
			}
			score, _ := l.GetReputation(context.Background(), 7)

			got := map[Dimension]float64{
				DimensionResponse:     score.ResponseQuality,
				DimensionRespect:      score.RespectScore,
				DimensionAuthenticity: score.AuthenticityScore,
				DimensionInvestment:   score.InvestmentScore,
			}
			for dim, v := range got {
				want := 50.0
				if dim == tt.dim {
					want = 50 + tt.impact
				}
				if !almostEqual(v, want) {
					t.Errorf("%s = %v, want %v", dim, v, want)
				}
			}
		})
	}
}

func TestRecordBehavior_UnknownTypeHasNoImpact(t *testing.T) {
	l, _, _ := newTestLedger(nil)

	event, err := l.RecordBehavior(context.Background(), 1, BehaviorType("PROFILE_VIEWED"), nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.Impact != 0 || event.Dimension != DimensionNone {
		t.Errorf("expected zero impact and no dimension, got %+v", event)
	}

	events, _ := l.RecentEvents(context.Background(), 1, 10)
	if len(events) != 1 {
		t.Errorf("expected unknown behavior to still be logged, got %d events", len(events))
	}
}

func TestRecordBehavior_InvalidInput(t *testing.T) {
	l, _, _ := newTestLedger(nil)

	if _, err := l.RecordBehavior(context.Background(), 0, BehaviorGhosting, nil, nil); !errors.Is(err, ErrInvalidBehavior) {
		t.Errorf("expected ErrInvalidBehavior for zero user, got %v", err)
	}
	if _, err := l.RecordBehavior(context.Background(), 1, "", nil, nil); !errors.Is(err, ErrInvalidBehavior) {
		t.Errorf("expected ErrInvalidBehavior for empty type, got %v", err)
	}
}

func TestRecordBehavior_DecayStrictlyDiminishes(t *testing.T) {
	l, _, clk := newTestLedger(nil)
	ctx := context.Background()

	prev := math.Inf(1)
	for i := 0; i < 10; i++ {
		event, err := l.RecordBehavior(ctx, 1, BehaviorPositiveFeedback, nil, nil)
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		want := 2.5 / (1 + 0.2*float64(i))
		if !almostEqual(event.Impact, want) {
			t.Errorf("event %d: expected impact %v, got %v", i, want, event.Impact)
		}
		if event.Impact >= prev {
			t.Errorf("event %d: impact %v did not diminish from %v", i, event.Impact, prev)
		}
		prev = event.Impact
		clk.Advance(time.Minute)
	}
}

func TestRecordBehavior_DecayWindowExpires(t *testing.T) {
	l, _, clk := newTestLedger(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.RecordBehavior(ctx, 1, BehaviorNoShow, nil, nil); err != nil {
			t.Fatalf("RecordBehavior: %v", err)
		}
	}

	clk.Advance(8 * 24 * time.Hour)
	event, err := l.RecordBehavior(ctx, 1, BehaviorNoShow, nil, nil)
	if err != nil {
		t.Fatalf("RecordBehavior: %v", err)
	}
	if event.DecayFactor != 1 {
		t.Errorf("expected events older than the decay window to be ignored, got decay %v", event.DecayFactor)
	}
}

func TestRecordBehavior_DecayIsPerType(t *testing.T) {
	l, _, _ := newTestLedger(nil)
	ctx := context.Background()

	l.RecordBehavior(ctx, 1, BehaviorReported, nil, nil)
	l.RecordBehavior(ctx, 1, BehaviorReported, nil, nil)

	event, _ := l.RecordBehavior(ctx, 1, BehaviorReportUpheld, nil, nil)
	if event.Impact != -10 {
		t.Errorf("expected report upheld at full weight, got %v", event.Impact)
	}
}

func TestRecordBehavior_ClampsToRange(t *testing.T) {
	l, _, _ := newTestLedger(nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := l.RecordBehavior(ctx, 1, BehaviorMisrepresentation, nil, nil); err != nil {
			t.Fatalf("RecordBehavior: %v", err)
		}
		score, _ := l.GetReputation(ctx, 1)
		if score.AuthenticityScore < 0 || score.AuthenticityScore > 100 {
			t.Fatalf("authenticity left [0,100]: %v", score.AuthenticityScore)
		}
	}
	score, _ := l.GetReputation(ctx, 1)
	if score.AuthenticityScore != 0 {
		t.Errorf("expected authenticity clamped at 0, got %v", score.AuthenticityScore)
	}
}

func TestRecordBehavior_ClampsAtHundred(t *testing.T) {
	l, repo, _ := newTestLedger(nil)
	ctx := context.Background()

	err := repo.WithUserLock(ctx, NewScore(1, 50, t0), func(ctx context.Context, tx ScoreTx) error {
		s := tx.Score()
		s.AuthenticityScore = 99
		return tx.SaveScore(ctx, s)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	l.RecordBehavior(ctx, 1, BehaviorVideoVerified, nil, nil)
	score, _ := l.GetReputation(ctx, 1)
	if score.AuthenticityScore != 100 {
		t.Errorf("expected authenticity clamped at 100, got %v", score.AuthenticityScore)
	}
}

func TestGetReputation_UnknownUserDefaults(t *testing.T) {
	l, repo, _ := newTestLedger(nil)

	score, err := l.GetReputation(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected default score, got %v", err)
	}
	if score.Overall() != 50 {
		t.Errorf("expected overall 50, got %v", score.Overall())
	}
	if score.TrustLevel != TrustNewMember {
		t.Errorf("expected NEW_MEMBER, got %s", score.TrustLevel)
	}
	if _, err := repo.GetScore(context.Background(), 42); !errors.Is(err, ErrScoreNotFound) {
		t.Errorf("expected read to leave no stored row, got %v", err)
	}
}

func TestGetReputation_TrustUsesAccountAge(t *testing.T) {
	accounts := &fakeAccounts{created: map[int64]time.Time{
		1: t0.Add(-200 * 24 * time.Hour),
		2: t0.Add(-200 * 24 * time.Hour),
		3: t0.Add(-10 * 24 * time.Hour),
	}}
	l, _, clk := newTestLedger(accounts)
	ctx := context.Background()

	for _, user := range []int64{1, 2, 3} {
		l.RecordBehavior(ctx, user, BehaviorThoughtfulMessage, nil, nil)
	}

	s1, _ := l.GetReputation(ctx, 1)
	s2, _ := l.GetReputation(ctx, 2)
	s3, _ := l.GetReputation(ctx, 3)

	if s1.TrustLevel != TrustVerified {
		t.Errorf("expected VERIFIED for an old account with overall ~50, got %s", s1.TrustLevel)
	}
	if s1.TrustLevel != s2.TrustLevel {
		t.Errorf("identical scores and ages produced %s and %s", s1.TrustLevel, s2.TrustLevel)
	}
	if s3.TrustLevel != TrustNewMember {
		t.Errorf("expected NEW_MEMBER for a 10 day old account, got %s", s3.TrustLevel)
	}

	clk.Advance(25 * 24 * time.Hour)
	s3, _ = l.GetReputation(ctx, 3)
	if s3.TrustLevel != TrustVerified {
		t.Errorf("expected trust to be recomputed on read as the account ages, got %s", s3.TrustLevel)
	}
}

func TestRecentEvents_NewestFirst(t *testing.T) {
	l, _, clk := newTestLedger(nil)
	ctx := context.Background()

	l.RecordBehavior(ctx, 1, BehaviorScheduledDate, nil, nil)
	clk.Advance(time.Hour)
	l.RecordBehavior(ctx, 1, BehaviorCompletedDate, nil, nil)
	clk.Advance(time.Hour)
	l.RecordBehavior(ctx, 2, BehaviorGhosting, nil, nil)

	events, err := l.RecentEvents(ctx, 1, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for user 1, got %d", len(events))
	}
	if events[0].Type != BehaviorCompletedDate || events[1].Type != BehaviorScheduledDate {
		t.Errorf("expected newest first, got %s then %s", events[0].Type, events[1].Type)
	}
}

func TestRecordBehavior_ConcurrentWritesAreSerialized(t *testing.T) {
	l, _, _ := newTestLedger(nil)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.RecordBehavior(ctx, 1, BehaviorGhosting, nil, nil); err != nil {
				t.Errorf("RecordBehavior: %v", err)
			}
		}()
	}
	wg.Wait()

	score, _ := l.GetReputation(ctx, 1)
	if score.GhostingCount != n {
		t.Errorf("expected %d ghosting events counted, got %d", n, score.GhostingCount)
	}

	// Each write saw every earlier one, so the decay factors are exactly 1/(1+0.2k), k=0..n-1.
	want := 50.0
	for k := 0; k < n; k++ {
		want += -2.0 / (1 + 0.2*float64(k))
	}
	want = clamp(want)
	if !almostEqual(score.RespectScore, want) {
		t.Errorf("expected respect %v, got %v", want, score.RespectScore)
	}
}
