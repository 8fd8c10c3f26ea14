package matchwindow

import (
	"context"

	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

// ConversationFactory opens (or reuses) the chat between a confirmed pair
type ConversationFactory interface {
	GetOrCreateConversation(ctx context.Context, userAID, userBID int64) (int64, error)
}

// ReputationRecorder is satisfied by reputation.Ledger
type ReputationRecorder interface {
	RecordBehavior(ctx context.Context, userID int64, behavior reputation.BehaviorType, targetUserID *int64, payload reputation.Payload) (*reputation.Event, error)
}

// CandidateSource lists scored match candidates for a user
type CandidateSource interface {
	Candidates(ctx context.Context, userID int64) ([]Candidate, error)
}

// DonationPrompter is invoked once a window is confirmed
type DonationPrompter interface {
	PromptDonation(ctx context.Context, w *Window) error
}

type notifierDonationPrompter struct {
	notifier notification.Notifier
}

// NewDonationNotifier prompts both participants through the notifier
func NewDonationNotifier(n notification.Notifier) DonationPrompter {
	return &notifierDonationPrompter{notifier: n}
}

func (p *notifierDonationPrompter) PromptDonation(ctx context.Context, w *Window) error {
	for _, userID := range []int64{w.UserAID, w.UserBID} {
		payload := notification.Payload{
			"window_id":  w.PublicID.String(),
			"partner_id": w.OtherParty(userID),
		}
		if err := p.notifier.Notify(ctx, userID, notification.KindDonationPrompt, payload); err != nil {
			return err
		}
	}
	return nil
}
