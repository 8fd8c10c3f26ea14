// internal/matchwindow/sweeper.go
// Time-driven transitions: expiry of lapsed windows and pre-expiry reminders.
// Both sweeps are idempotent and are driven by the scheduler.

package matchwindow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
)

// SweepResult summarizes one sweep run
type SweepResult struct {
	Scanned   int
	Processed int
	Skipped   int
	Failed    int
}

type Sweeper struct {
	*lifecycle
}

func NewSweeper(deps Dependencies, cfg Config) *Sweeper {
	return &Sweeper{lifecycle: newLifecycle(deps, cfg)}
}

// ExpireWindows moves every lapsed non-terminal window to EXPIRED
func (s *Sweeper) ExpireWindows(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	windows, err := s.Repo.ListDueForExpiry(ctx, s.Clock.Now(), s.cfg.SweepBatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list windows due for expiry: %w", err)
	}

	for _, w := range windows {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++

		_, err := s.expireWindow(ctx, w)
		switch {
		case err == nil:
			result.Processed++
		case errors.Is(err, errAlreadyDecided), errors.Is(err, errNotDue):
			// Decided or extended since listing
			result.Skipped++
		default:
			result.Failed++
			log.Printf("Failed to expire window %s: %v", w.PublicID, err)
		}
	}

	RecordSweep("expiry", result)
	if result.Processed > 0 || result.Failed > 0 {
		log.Printf("Expiry sweep: %d expired, %d skipped, %d failed", result.Processed, result.Skipped, result.Failed)
	}
	return result, ctx.Err()
}

// SendExpirationReminders notifies each unconfirmed side of windows that
// close within the reminder lead. No state changes.
func (s *Sweeper) SendExpirationReminders(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	now := s.Clock.Now()
	windows, err := s.Repo.ListExpiringBetween(ctx, now, now.Add(s.cfg.ReminderLead))
	if err != nil {
		return result, fmt.Errorf("failed to list windows expiring soon: %w", err)
	}

	for _, w := range windows {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++

		for _, userID := range []int64{w.UserAID, w.UserBID} {
			if w.HasConfirmed(userID) {
				result.Skipped++
				continue
			}

			err := s.notifyErr(ctx, userID, notification.KindExpiryReminder, notification.Payload{
				"window_id":       w.PublicID.String(),
				"partner_id":      w.OtherParty(userID),
				"expires_at":      w.ExpiresAt,
				"hours_remaining": hoursRemaining(w, now),
			})
			if err != nil {
				result.Failed++
				log.Printf("Failed to send expiry reminder to user %d: %v", userID, err)
				continue
			}
			result.Processed++
		}
	}

	RecordSweep("reminder", result)
	return result, ctx.Err()
}
