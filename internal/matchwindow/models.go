// internal/matchwindow/models.go

package matchwindow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWindowNotFound       = errors.New("match window not found")
	ErrUnauthorized         = errors.New("user is not a participant in this match window")
	ErrDuplicateWindow      = errors.New("an active match window already exists for this pair")
	ErrWindowExpired        = errors.New("match window has expired")
	ErrWindowClosed         = errors.New("match window is already decided")
	ErrExtensionUnavailable = errors.New("match window extension already used")
	ErrConcurrentUpdate     = errors.New("match window was modified concurrently, retry")
	ErrVersionConflict      = errors.New("match window version conflict")
	ErrInvalidRequest       = errors.New("invalid match window request")
)

// Status of a match window
type Status string

const (
	StatusPendingBoth  Status = "PENDING_BOTH"
	StatusPendingUserA Status = "PENDING_USER_A" // waiting on user A
	StatusPendingUserB Status = "PENDING_USER_B" // waiting on user B
	StatusConfirmed    Status = "CONFIRMED"
	StatusDeclinedByA  Status = "DECLINED_BY_A"
	StatusDeclinedByB  Status = "DECLINED_BY_B"
	StatusExpired      Status = "EXPIRED"
)

// PendingStatuses are the non-terminal states
var PendingStatuses = []Status{StatusPendingBoth, StatusPendingUserA, StatusPendingUserB}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusPendingBoth, StatusPendingUserA, StatusPendingUserB:
		return false
	}
	return true
}

// Window is a time-boxed pending decision between two users
type Window struct {
	ID                 int64     `json:"-" db:"id"`
	PublicID           uuid.UUID `json:"id" db:"public_id"`
	UserAID            int64     `json:"user_a_id" db:"user_a_id"`
	UserBID            int64     `json:"user_b_id" db:"user_b_id"`
	CompatibilityScore float64   `json:"compatibility_score" db:"compatibility_score"`
	Status             Status    `json:"status" db:"status"`

	UserAConfirmed   bool       `json:"user_a_confirmed" db:"user_a_confirmed"`
	UserBConfirmed   bool       `json:"user_b_confirmed" db:"user_b_confirmed"`
	UserAConfirmedAt *time.Time `json:"user_a_confirmed_at,omitempty" db:"user_a_confirmed_at"`
	UserBConfirmedAt *time.Time `json:"user_b_confirmed_at,omitempty" db:"user_b_confirmed_at"`

	ExpiresAt            time.Time  `json:"expires_at" db:"expires_at"`
	ExtensionUsed        bool       `json:"extension_used" db:"extension_used"`
	ExtensionRequestedBy *int64     `json:"extension_requested_by,omitempty" db:"extension_requested_by"`
	ExtendedAt           *time.Time `json:"extended_at,omitempty" db:"extended_at"`

	ConversationID *int64     `json:"conversation_id,omitempty" db:"conversation_id"`
	DecidedAt      *time.Time `json:"decided_at,omitempty" db:"decided_at"`

	Version   int64     `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateWindowRequest is validated before a window is inserted
type CreateWindowRequest struct {
	UserAID            int64   `validate:"required,gt=0"`
	UserBID            int64   `validate:"required,gt=0,nefield=UserAID"`
	CompatibilityScore float64 `validate:"gte=0,lte=1"`
}

// Candidate is a scored potential match for a user
type Candidate struct {
	UserID int64   `db:"recommended_user_id"`
	Score  float64 `db:"score"`
}

func (w *Window) clone() *Window {
	c := *w
	return &c
}

// IsParticipant reports whether userID is one of the pair
func (w *Window) IsParticipant(userID int64) bool {
	return userID == w.UserAID || userID == w.UserBID
}

// OtherParty returns the participant that is not userID
func (w *Window) OtherParty(userID int64) int64 {
	if userID == w.UserAID {
		return w.UserBID
	}
	return w.UserAID
}

// HasConfirmed reports whether userID has confirmed interest
func (w *Window) HasConfirmed(userID int64) bool {
	if userID == w.UserAID {
		return w.UserAConfirmed
	}
	return w.UserBConfirmed
}

// IsPastExpiry reports whether the window's time has run out at now
func (w *Window) IsPastExpiry(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// SoleConfirmer returns the only participant that confirmed, if exactly one did
func (w *Window) SoleConfirmer() (int64, bool) {
	switch {
	case w.UserAConfirmed && !w.UserBConfirmed:
		return w.UserAID, true
	case w.UserBConfirmed && !w.UserAConfirmed:
		return w.UserBID, true
	}
	return 0, false
}
