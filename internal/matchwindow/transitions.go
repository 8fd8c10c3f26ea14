package matchwindow

import (
	"errors"
	"time"
)

// Internal outcomes of a transition that the service turns into behavior.
var (
	errPastExpiry     = errors.New("window past expiry")
	errNoChange       = errors.New("no change")
	errNotDue         = errors.New("window not due for expiry")
	errAlreadyDecided = errors.New("window already terminal")
)

// Each transition mutates w (always a private copy) or returns an error and
// leaves the stored state alone. They are re-run against fresh state after a
// version conflict, so they must only depend on w and now.

func checkOpen(w *Window, now time.Time) error {
	switch {
	case w.Status == StatusExpired:
		return ErrWindowExpired
	case w.Status.IsTerminal():
		return ErrWindowClosed
	case w.IsPastExpiry(now):
		return errPastExpiry
	}
	return nil
}

// confirm records userID's interest. conversationID must be set when this
// confirmation completes the pair.
func confirm(w *Window, userID int64, now time.Time, conversationID *int64) error {
	if err := checkOpen(w, now); err != nil {
		return err
	}
	if w.HasConfirmed(userID) {
		return errNoChange
	}

	t := now
	if userID == w.UserAID {
		w.UserAConfirmed = true
		w.UserAConfirmedAt = &t
	} else {
		w.UserBConfirmed = true
		w.UserBConfirmedAt = &t
	}

	switch {
	case w.UserAConfirmed && w.UserBConfirmed:
		if conversationID == nil {
			// The partner confirmed after we read the window
			return ErrConcurrentUpdate
		}
		w.Status = StatusConfirmed
		w.ConversationID = conversationID
		w.DecidedAt = &t
	case w.UserAConfirmed:
		w.Status = StatusPendingUserB
	default:
		w.Status = StatusPendingUserA
	}
	return nil
}

// decline is permitted on any non-terminal window regardless of the clock
func decline(w *Window, userID int64, now time.Time) error {
	switch {
	case w.Status == StatusExpired:
		return ErrWindowExpired
	case w.Status.IsTerminal():
		return ErrWindowClosed
	}

	t := now
	if userID == w.UserAID {
		w.Status = StatusDeclinedByA
	} else {
		w.Status = StatusDeclinedByB
	}
	w.DecidedAt = &t
	return nil
}

func extend(w *Window, userID int64, now time.Time, by time.Duration) error {
	if err := checkOpen(w, now); err != nil {
		return err
	}
	if w.ExtensionUsed {
		return ErrExtensionUnavailable
	}

	t := now
	requester := userID
	w.ExpiresAt = w.ExpiresAt.Add(by)
	w.ExtensionUsed = true
	w.ExtensionRequestedBy = &requester
	w.ExtendedAt = &t
	return nil
}

func expire(w *Window, now time.Time) error {
	if w.Status.IsTerminal() {
		return errAlreadyDecided
	}
	if !w.IsPastExpiry(now) {
		return errNotDue
	}

	t := now
	w.Status = StatusExpired
	w.DecidedAt = &t
	return nil
}
