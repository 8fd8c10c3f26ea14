// internal/matchwindow/service.go
// Match window lifecycle: create, confirm, decline, extend and participant queries

package matchwindow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/utils"
	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

type Service interface {
	// Lifecycle
	CreateWindow(ctx context.Context, userAID, userBID int64, score float64) (*Window, error)
	CreateWindowsForHighMatches(ctx context.Context, userID int64, minScore float64) ([]*Window, error)
	ConfirmInterest(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error)
	DeclineMatch(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error)
	RequestExtension(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error)

	// Queries
	GetWindow(ctx context.Context, windowID uuid.UUID) (*Window, error)
	PendingDecisions(ctx context.Context, userID int64) ([]*Window, error)
	WaitingMatches(ctx context.Context, userID int64) ([]*Window, error)
	ConfirmedMatches(ctx context.Context, userID int64) ([]*Window, error)
	PendingCount(ctx context.Context, userID int64) (int, error)
}

type service struct {
	*lifecycle
}

func NewService(deps Dependencies, cfg Config) Service {
	return &service{lifecycle: newLifecycle(deps, cfg)}
}

func (s *service) CreateWindow(ctx context.Context, userAID, userBID int64, score float64) (*Window, error) {
	req := CreateWindowRequest{UserAID: userAID, UserBID: userBID, CompatibilityScore: score}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := s.Clock.Now()
	w := &Window{
		PublicID:           uuid.New(),
		UserAID:            userAID,
		UserBID:            userBID,
		CompatibilityScore: score,
		Status:             StatusPendingBoth,
		ExpiresAt:          now.Add(s.cfg.WindowDuration),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.Repo.Create(ctx, w); err != nil {
		return nil, err
	}
	RecordWindowCreated(score)

	for _, userID := range []int64{w.UserAID, w.UserBID} {
		s.notify(ctx, userID, notification.KindNewMatch, notification.Payload{
			"window_id":           w.PublicID.String(),
			"partner_id":          w.OtherParty(userID),
			"compatibility_score": w.CompatibilityScore,
			"expires_at":          w.ExpiresAt,
			"hours_remaining":     hoursRemaining(w, now),
		})
	}

	return w, nil
}

func (s *service) CreateWindowsForHighMatches(ctx context.Context, userID int64, minScore float64) ([]*Window, error) {
	if s.Candidates == nil {
		return nil, errors.New("no candidate source configured")
	}

	candidates, err := s.Candidates.Candidates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var created []*Window
	for _, c := range candidates {
		if c.Score < minScore {
			break
		}

		_, err := s.Repo.FindActiveForPair(ctx, userID, c.UserID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrWindowNotFound) {
			log.Printf("Failed to check existing window for users %d and %d: %v", userID, c.UserID, err)
			continue
		}

		w, err := s.CreateWindow(ctx, userID, c.UserID, c.Score)
		if err != nil {
			log.Printf("Failed to create window for users %d and %d: %v", userID, c.UserID, err)
			continue
		}
		created = append(created, w)
	}

	return created, nil
}

func (s *service) ConfirmInterest(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error) {
	w, err := s.load(ctx, windowID, userID)
	if err != nil {
		return nil, err
	}

	if err := checkOpen(w, s.Clock.Now()); err != nil {
		return s.reject(ctx, w, err)
	}
	if w.HasConfirmed(userID) {
		return w, nil
	}

	// The conversation must exist before CONFIRMED is committed
	var conversationID *int64
	if w.HasConfirmed(w.OtherParty(userID)) {
		id, err := s.Conversations.GetOrCreateConversation(ctx, w.UserAID, w.UserBID)
		if err != nil {
			return nil, fmt.Errorf("failed to open conversation: %w", err)
		}
		conversationID = &id
	}

	updated, err := s.commit(ctx, "confirm", w, func(next *Window, now time.Time) error {
		return confirm(next, userID, now, conversationID)
	})
	if errors.Is(err, errNoChange) {
		return updated, nil
	}
	if err != nil {
		return s.reject(ctx, updated, err)
	}

	if updated.Status == StatusConfirmed {
		s.afterConfirmed(ctx, updated)
	} else {
		partner := updated.OtherParty(userID)
		s.notify(ctx, partner, notification.KindPartnerConfirmed, notification.Payload{
			"window_id":       updated.PublicID.String(),
			"partner_id":      userID,
			"hours_remaining": hoursRemaining(updated, s.Clock.Now()),
		})
	}

	return updated, nil
}

func (s *service) afterConfirmed(ctx context.Context, w *Window) {
	for _, userID := range []int64{w.UserAID, w.UserBID} {
		s.recordBehavior(ctx, userID, reputation.BehaviorScheduledDate, w.OtherParty(userID), reputation.Payload{
			"window_id":       w.PublicID.String(),
			"conversation_id": *w.ConversationID,
		})
	}

	if s.Donations != nil {
		if err := s.Donations.PromptDonation(ctx, w); err != nil {
			log.Printf("Failed to prompt donation for window %s: %v", w.PublicID, err)
		}
	}

	for _, userID := range []int64{w.UserAID, w.UserBID} {
		s.notify(ctx, userID, notification.KindMatchConfirmed, notification.Payload{
			"window_id":       w.PublicID.String(),
			"partner_id":      w.OtherParty(userID),
			"conversation_id": *w.ConversationID,
		})
	}
}

func (s *service) DeclineMatch(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error) {
	w, err := s.load(ctx, windowID, userID)
	if err != nil {
		return nil, err
	}

	updated, err := s.commit(ctx, "decline", w, func(next *Window, now time.Time) error {
		return decline(next, userID, now)
	})
	if err != nil {
		return nil, err
	}

	partner := updated.OtherParty(userID)
	s.recordBehavior(ctx, userID, reputation.BehaviorGracefulDecline, partner, reputation.Payload{
		"window_id": updated.PublicID.String(),
	})
	s.notify(ctx, partner, notification.KindMatchDeclined, notification.Payload{
		"window_id":  updated.PublicID.String(),
		"partner_id": userID,
	})

	return updated, nil
}

func (s *service) RequestExtension(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error) {
	w, err := s.load(ctx, windowID, userID)
	if err != nil {
		return nil, err
	}

	if err := checkOpen(w, s.Clock.Now()); err != nil {
		return s.reject(ctx, w, err)
	}

	updated, err := s.commit(ctx, "extend", w, func(next *Window, now time.Time) error {
		return extend(next, userID, now, s.cfg.ExtensionDuration)
	})
	if err != nil {
		return s.reject(ctx, updated, err)
	}

	s.notify(ctx, updated.OtherParty(userID), notification.KindExtensionRequested, notification.Payload{
		"window_id":       updated.PublicID.String(),
		"partner_id":      userID,
		"expires_at":      updated.ExpiresAt,
		"hours_remaining": hoursRemaining(updated, s.Clock.Now()),
	})

	return updated, nil
}

func (s *service) GetWindow(ctx context.Context, windowID uuid.UUID) (*Window, error) {
	return s.Repo.GetByPublicID(ctx, windowID)
}

func (s *service) PendingDecisions(ctx context.Context, userID int64) ([]*Window, error) {
	return s.openWindows(ctx, userID, func(w *Window) bool {
		return !w.HasConfirmed(userID)
	})
}

func (s *service) WaitingMatches(ctx context.Context, userID int64) ([]*Window, error) {
	return s.openWindows(ctx, userID, func(w *Window) bool {
		return w.HasConfirmed(userID) && !w.HasConfirmed(w.OtherParty(userID))
	})
}

func (s *service) ConfirmedMatches(ctx context.Context, userID int64) ([]*Window, error) {
	return s.Repo.ListForUser(ctx, userID, StatusConfirmed)
}

func (s *service) PendingCount(ctx context.Context, userID int64) (int, error) {
	pending, err := s.PendingDecisions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// openWindows lists the user's non-terminal windows still inside their time box
func (s *service) openWindows(ctx context.Context, userID int64, keep func(w *Window) bool) ([]*Window, error) {
	windows, err := s.Repo.ListForUser(ctx, userID, PendingStatuses...)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	out := make([]*Window, 0, len(windows))
	for _, w := range windows {
		if !w.IsPastExpiry(now) && keep(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *service) load(ctx context.Context, windowID uuid.UUID, userID int64) (*Window, error) {
	w, err := s.Repo.GetByPublicID(ctx, windowID)
	if err != nil {
		return nil, err
	}
	if !w.IsParticipant(userID) {
		return nil, ErrUnauthorized
	}
	return w, nil
}

// reject maps a failed transition to the caller's error. A window whose
// time ran out is expired first, so the stored state is corrected even
// though the action fails.
func (s *service) reject(ctx context.Context, w *Window, err error) (*Window, error) {
	if !errors.Is(err, errPastExpiry) {
		return nil, err
	}

	latest, xerr := s.expireWindow(ctx, w)
	switch {
	case xerr == nil:
	case errors.Is(xerr, errAlreadyDecided):
		if latest.Status != StatusExpired {
			return nil, ErrWindowClosed
		}
	default:
		log.Printf("Failed to expire window %s: %v", w.PublicID, xerr)
	}
	return nil, ErrWindowExpired
}
