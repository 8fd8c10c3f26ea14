// internal/ghosting/detector.go
// Flags recipients who went silent in an active conversation

package ghosting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
	"github.com/imadgeboyega/kiekky-matchcore/internal/messaging"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
)

// MessageReader is the read side of messaging. messaging.MessageService
// satisfies it.
type MessageReader interface {
	IdleConversations(ctx context.Context, cutoff time.Time) ([]messaging.Activity, error)
	LastMessage(ctx context.Context, conversationID int64) (*messaging.Message, error)
	CountMessagesBySender(ctx context.Context, conversationID, userID int64) (int, error)
	LastActiveAt(ctx context.Context, userID int64) (*time.Time, error)
}

// BehaviorRecorder is satisfied by reputation.Ledger
type BehaviorRecorder interface {
	RecordBehavior(ctx context.Context, userID int64, behavior reputation.BehaviorType, targetUserID *int64, payload reputation.Payload) (*reputation.Event, error)
}

type Config struct {
	Silence     time.Duration
	MinMessages int
}

func DefaultConfig() Config {
	return Config{
		Silence:     72 * time.Hour,
		MinMessages: 2,
	}
}

// Result summarizes one detection run
type Result struct {
	Scanned int
	Flagged int
	Skipped int
	Failed  int
}

type Detector struct {
	reader   MessageReader
	flags    FlagCache
	recorder BehaviorRecorder
	clock    clock.Clock
	cfg      Config
}

func NewDetector(reader MessageReader, flags FlagCache, recorder BehaviorRecorder, clk clock.Clock, cfg Config) *Detector {
	if flags == nil {
		flags = NewMemoryFlagCache(DefaultMaxEntries)
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	if cfg.Silence <= 0 {
		cfg.Silence = DefaultConfig().Silence
	}
	if cfg.MinMessages <= 0 {
		cfg.MinMessages = DefaultConfig().MinMessages
	}
	return &Detector{
		reader:   reader,
		flags:    flags,
		recorder: recorder,
		clock:    clk,
		cfg:      cfg,
	}
}

type outcome int

const (
	outcomeFlagged outcome = iota
	outcomeSkipped
)

// Run scans conversations idle for longer than the silence threshold and
// records GHOSTING against each recipient who left the last message
// unanswered while still active elsewhere on the app.
func (d *Detector) Run(ctx context.Context) (Result, error) {
	var result Result

	now := d.clock.Now()
	cutoff := now.Add(-d.cfg.Silence)

	idle, err := d.reader.IdleConversations(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list idle conversations: %w", err)
	}

	for _, activity := range idle {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++

		o, err := d.inspect(ctx, activity, now, cutoff)
		switch {
		case err != nil:
			result.Failed++
			RecordDetection("failed")
			log.Printf("Failed to check conversation %d for ghosting: %v", activity.ConversationID, err)
		case o == outcomeFlagged:
			result.Flagged++
			RecordDetection("flagged")
		default:
			result.Skipped++
			RecordDetection("skipped")
		}
	}

	if result.Flagged > 0 || result.Failed > 0 {
		log.Printf("Ghosting detection: %d flagged, %d skipped, %d failed", result.Flagged, result.Skipped, result.Failed)
	}
	return result, ctx.Err()
}

func (d *Detector) inspect(ctx context.Context, activity messaging.Activity, now, cutoff time.Time) (outcome, error) {
	last, err := d.reader.LastMessage(ctx, activity.ConversationID)
	if err != nil {
		if errors.Is(err, messaging.ErrMessageNotFound) {
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	// A message arrived since the conversation was listed
	if !last.CreatedAt.Before(cutoff) {
		return outcomeSkipped, nil
	}

	recipient, ok := activity.Recipient(last.SenderID)
	if !ok {
		return outcomeSkipped, nil
	}

	key := FlagKey{ConversationID: activity.ConversationID, UserID: recipient, LastMessageAt: last.CreatedAt}
	flagged, err := d.flags.IsFlagged(ctx, key)
	if err != nil {
		return outcomeSkipped, err
	}
	if flagged {
		return outcomeSkipped, nil
	}

	// Recipient never really engaged
	sent, err := d.reader.CountMessagesBySender(ctx, activity.ConversationID, recipient)
	if err != nil {
		return outcomeSkipped, err
	}
	if sent < d.cfg.MinMessages {
		return outcomeSkipped, nil
	}

	// Recipient is away from the app, not ignoring the sender
	lastActive, err := d.reader.LastActiveAt(ctx, recipient)
	if err != nil {
		return outcomeSkipped, err
	}
	if lastActive == nil || lastActive.Before(cutoff) {
		return outcomeSkipped, nil
	}

	sender := last.SenderID
	_, err = d.recorder.RecordBehavior(ctx, recipient, reputation.BehaviorGhosting, &sender, reputation.Payload{
		"conversation_id": activity.ConversationID,
		"last_message_at": last.CreatedAt.UTC().Format(time.RFC3339),
		"silent_hours":    int(math.Floor(now.Sub(last.CreatedAt).Hours())),
		"source":          "conversation",
	})
	if err != nil {
		return outcomeSkipped, fmt.Errorf("failed to record ghosting for user %d: %w", recipient, err)
	}

	if err := d.flags.Flag(ctx, key); err != nil {
		log.Printf("Failed to flag ghosting for user %d in conversation %d: %v", recipient, activity.ConversationID, err)
	}
	return outcomeFlagged, nil
}

// ClearGhostingFlag forgets every recorded silence for the user in the
// conversation, typically once they reply
func (d *Detector) ClearGhostingFlag(ctx context.Context, conversationID, userID int64) error {
	return d.flags.Clear(ctx, conversationID, userID)
}
