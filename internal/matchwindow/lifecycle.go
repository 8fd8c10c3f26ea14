package matchwindow

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

// Config holds window timing
type Config struct {
	WindowDuration    time.Duration
	ExtensionDuration time.Duration
	ReminderLead      time.Duration
	SweepBatchSize    int
}

func DefaultConfig() Config {
	return Config{
		WindowDuration:    24 * time.Hour,
		ExtensionDuration: 12 * time.Hour,
		ReminderLead:      4 * time.Hour,
		SweepBatchSize:    500,
	}
}

// Dependencies are shared by the Service and the Sweeper.
// Candidates and Donations are optional.
type Dependencies struct {
	Repo          Repository
	Clock         clock.Clock
	Notifier      notification.Notifier
	Reputation    ReputationRecorder
	Conversations ConversationFactory
	Candidates    CandidateSource
	Donations     DonationPrompter
}

// lifecycle holds the transition plumbing common to user actions and sweeps
type lifecycle struct {
	Dependencies
	cfg Config
}

func newLifecycle(deps Dependencies, cfg Config) *lifecycle {
	if deps.Clock == nil {
		deps.Clock = clock.NewReal()
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = DefaultConfig().SweepBatchSize
	}
	return &lifecycle{
		Dependencies: deps,
		cfg:          cfg,
	}
}

type mutation func(w *Window, now time.Time) error

// commit applies fn to a copy of w and saves it against w's version.
// On a version conflict fn is re-run on the stored state: if the winning
// writer made fn invalid, that error is returned; otherwise the conflict is
// reported as ErrConcurrentUpdate. The returned window is the latest state
// known, including on error.
func (l *lifecycle) commit(ctx context.Context, op string, w *Window, fn mutation) (*Window, error) {
	now := l.Clock.Now()
	next := w.clone()
	if err := fn(next, now); err != nil {
		return w, err
	}
	next.UpdatedAt = now

	err := l.Repo.Update(ctx, next)
	if err == nil {
		if next.Status != w.Status {
			RecordTransition(next.Status)
		}
		return next, nil
	}
	if !errors.Is(err, ErrVersionConflict) {
		return w, err
	}

	RecordVersionConflict(op)
	fresh, ferr := l.Repo.GetByPublicID(ctx, w.PublicID)
	if ferr != nil {
		return w, ferr
	}
	if verr := fn(fresh.clone(), l.Clock.Now()); verr != nil {
		return fresh, verr
	}
	return fresh, ErrConcurrentUpdate
}

// expireWindow commits EXPIRED and applies the ghosting rule. Returns
// errAlreadyDecided (with the latest state) when another writer got there first.
func (l *lifecycle) expireWindow(ctx context.Context, w *Window) (*Window, error) {
	expired, err := l.commit(ctx, "expire", w, expire)
	if err != nil {
		return expired, err
	}

	// Ghosting is only inferred from asymmetric engagement
	if confirmer, ok := expired.SoleConfirmer(); ok {
		ghost := expired.OtherParty(confirmer)
		l.recordBehavior(ctx, ghost, reputation.BehaviorGhosting, confirmer, reputation.Payload{
			"window_id": expired.PublicID.String(),
			"source":    "match_window",
		})
	}

	for _, userID := range []int64{expired.UserAID, expired.UserBID} {
		l.notify(ctx, userID, notification.KindMatchExpired, notification.Payload{
			"window_id":  expired.PublicID.String(),
			"partner_id": expired.OtherParty(userID),
		})
	}

	return expired, nil
}

// notify is fire-and-forget: failures are logged
func (l *lifecycle) notify(ctx context.Context, userID int64, kind notification.Kind, payload notification.Payload) {
	if err := l.notifyErr(ctx, userID, kind, payload); err != nil {
		log.Printf("Failed to send %s notification to user %d: %v", kind, userID, err)
	}
}

func (l *lifecycle) notifyErr(ctx context.Context, userID int64, kind notification.Kind, payload notification.Payload) error {
	if l.Notifier == nil {
		return nil
	}
	return l.Notifier.Notify(ctx, userID, kind, payload)
}

// recordBehavior runs after the window commit; failures are logged
func (l *lifecycle) recordBehavior(ctx context.Context, userID int64, behavior reputation.BehaviorType, target int64, payload reputation.Payload) {
	if l.Reputation == nil {
		return
	}
	if _, err := l.Reputation.RecordBehavior(ctx, userID, behavior, &target, payload); err != nil {
		log.Printf("Failed to record %s for user %d: %v", behavior, userID, err)
	}
}

func hoursRemaining(w *Window, now time.Time) int {
	return int(math.Ceil(w.ExpiresAt.Sub(now).Hours()))
}
