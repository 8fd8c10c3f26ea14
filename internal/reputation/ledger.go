// internal/reputation/ledger.go
// Behavioral reputation ledger: event log + four-dimension score with trust classification

package reputation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
)

var (
	ErrInvalidBehavior = errors.New("invalid behavior event")
)

// Ledger records behaviors and serves reputation reads.
type Ledger interface {
	RecordBehavior(ctx context.Context, userID int64, behavior BehaviorType, targetUserID *int64, payload Payload) (*Event, error)
	GetReputation(ctx context.Context, userID int64) (*Score, error)
	RecentEvents(ctx context.Context, userID int64, limit int) ([]*Event, error)
}

// Config tunes decay and defaults.
type Config struct {
	DecayWindow  time.Duration
	DecayRate    float64
	DefaultScore float64
}

func DefaultConfig() Config {
	return Config{
		DecayWindow:  7 * 24 * time.Hour,
		DecayRate:    0.2,
		DefaultScore: 50,
	}
}

type ledger struct {
	repo     Repository
	accounts AccountDirectory
	clock    clock.Clock
	cfg      Config
}

// NewLedger builds a Ledger. accounts may be nil, in which case the score's
// own creation time stands in for account age.
func NewLedger(repo Repository, accounts AccountDirectory, clk clock.Clock, cfg Config) Ledger {
	return &ledger{
		repo:     repo,
		accounts: accounts,
		clock:    clk,
		cfg:      cfg,
	}
}

// DecayFactor is 1/(1 + rate*priorCount).
func DecayFactor(rate float64, priorCount int) float64 {
	return 1 / (1 + rate*float64(priorCount))
}

func (l *ledger) RecordBehavior(ctx context.Context, userID int64, behavior BehaviorType, targetUserID *int64, payload Payload) (*Event, error) {
	if userID <= 0 || behavior == "" {
		return nil, ErrInvalidBehavior
	}
	if payload == nil {
		payload = Payload{}
	}

	now := l.clock.Now()
	accountCreated, hasAccount := l.accountCreatedAt(ctx, userID)
	rule := rules[behavior]

	event := &Event{
		UserID:       userID,
		Type:         behavior,
		TargetUserID: targetUserID,
		Payload:      payload,
		BaseImpact:   rule.Impact,
		Dimension:    rule.Dimension,
		CreatedAt:    now,
	}

	var previous TrustLevel
	var updated *Score

	err := l.repo.WithUserLock(ctx, NewScore(userID, l.cfg.DefaultScore, now), func(ctx context.Context, tx ScoreTx) error {
		prior, err := tx.CountEventsSince(ctx, behavior, now.Add(-l.cfg.DecayWindow))
		if err != nil {
			return fmt.Errorf("count prior events: %w", err)
		}

		event.DecayFactor = DecayFactor(l.cfg.DecayRate, prior)
		event.Impact = rule.Impact * event.DecayFactor

		if err := tx.AppendEvent(ctx, event); err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		score := tx.Score()
		previous = score.TrustLevel
		score.apply(rule.Dimension, event.Impact, rule.Counter)
		score.TrustLevel = l.classify(score, accountCreated, hasAccount, now)
		score.UpdatedAt = now

		if err := tx.SaveScore(ctx, score); err != nil {
			return fmt.Errorf("save score: %w", err)
		}
		updated = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	RecordBehaviorEvent(behavior, event.DecayFactor)
	RecordTrustLevelChange(previous, updated.TrustLevel)

	return event, nil
}

func (l *ledger) GetReputation(ctx context.Context, userID int64) (*Score, error) {
	now := l.clock.Now()

	score, err := l.repo.GetScore(ctx, userID)
	if errors.Is(err, ErrScoreNotFound) {
		score = NewScore(userID, l.cfg.DefaultScore, now)
	} else if err != nil {
		return nil, err
	}

	accountCreated, hasAccount := l.accountCreatedAt(ctx, userID)
	score.TrustLevel = l.classify(score, accountCreated, hasAccount, now)
	return score, nil
}

func (l *ledger) RecentEvents(ctx context.Context, userID int64, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.repo.ListEvents(ctx, userID, limit)
}

func (l *ledger) classify(score *Score, accountCreated time.Time, hasAccount bool, now time.Time) TrustLevel {
	created := score.CreatedAt
	if hasAccount {
		created = accountCreated
	}
	return ClassifyTrust(score.Overall(), now.Sub(created))
}

func (l *ledger) accountCreatedAt(ctx context.Context, userID int64) (time.Time, bool) {
	if l.accounts == nil {
		return time.Time{}, false
	}
	createdAt, err := l.accounts.AccountCreatedAt(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			log.Printf("reputation: failed to load account age for user %d: %v", userID, err)
		}
		return time.Time{}, false
	}
	return createdAt, true
}
