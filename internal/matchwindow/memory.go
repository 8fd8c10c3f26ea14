package matchwindow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps windows in process. Used by tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	windows map[int64]*Window
	nextID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{windows: make(map[int64]*Window)}
}

type pairKey struct{ lo, hi int64 }

func keyFor(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func (r *MemoryRepository) Create(ctx context.Context, w *Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyFor(w.UserAID, w.UserBID)
	for _, existing := range r.windows {
		if !existing.Status.IsTerminal() && keyFor(existing.UserAID, existing.UserBID) == key {
			return ErrDuplicateWindow
		}
	}

	r.nextID++
	w.ID = r.nextID
	w.Version = 1
	r.windows[w.ID] = w.clone()
	return nil
}

func (r *MemoryRepository) GetByPublicID(ctx context.Context, id uuid.UUID) (*Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.windows {
		if w.PublicID == id {
			return w.clone(), nil
		}
	}
	return nil, ErrWindowNotFound
}

func (r *MemoryRepository) Update(ctx context.Context, w *Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.windows[w.ID]
	if !ok || stored.Version != w.Version {
		return ErrVersionConflict
	}

	w.Version++
	r.windows[w.ID] = w.clone()
	return nil
}

func (r *MemoryRepository) FindActiveForPair(ctx context.Context, userAID, userBID int64) (*Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyFor(userAID, userBID)
	for _, w := range r.windows {
		if !w.Status.IsTerminal() && keyFor(w.UserAID, w.UserBID) == key {
			return w.clone(), nil
		}
	}
	return nil, ErrWindowNotFound
}

func (r *MemoryRepository) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Window, error) {
	out := r.filter(func(w *Window) bool {
		return !w.Status.IsTerminal() && !w.ExpiresAt.After(now)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*Window, error) {
	return r.filter(func(w *Window) bool {
		return !w.Status.IsTerminal() && w.ExpiresAt.After(from) && !w.ExpiresAt.After(to)
	}), nil
}

func (r *MemoryRepository) ListForUser(ctx context.Context, userID int64, statuses ...Status) ([]*Window, error) {
	if len(statuses) == 0 {
		statuses = PendingStatuses
	}
	wanted := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	return r.filter(func(w *Window) bool {
		return w.IsParticipant(userID) && wanted[w.Status]
	}), nil
}

// filter returns matching copies ordered by expiry then id
func (r *MemoryRepository) filter(keep func(w *Window) bool) []*Window {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Window
	for _, w := range r.windows {
		if keep(w) {
			out = append(out, w.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// All returns every stored window. Test helper.
func (r *MemoryRepository) All() []*Window {
	return r.filter(func(*Window) bool { return true })
}

var _ Repository = (*MemoryRepository)(nil)
