package reputation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and local runs.
type MemoryRepository struct {
	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	scores map[int64]Score
	events []Event
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locks:  make(map[int64]*sync.Mutex),
		scores: make(map[int64]Score),
	}
}

func (r *MemoryRepository) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

func (r *MemoryRepository) WithUserLock(ctx context.Context, defaults *Score, fn func(ctx context.Context, tx ScoreTx) error) error {
	l := r.userLock(defaults.UserID)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	score, ok := r.scores[defaults.UserID]
	if !ok {
		score = *defaults
	}
	r.mu.Unlock()

	tx := &memoryScoreTx{repo: r, score: score}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range tx.pending {
		r.nextID++
		e.ID = r.nextID
		r.events = append(r.events, *e)
	}
	r.scores[defaults.UserID] = tx.score
	return nil
}

func (r *MemoryRepository) GetScore(ctx context.Context, userID int64) (*Score, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scores[userID]
	if !ok {
		return nil, ErrScoreNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListEvents(ctx context.Context, userID int64, limit int) ([]*Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Event
	for i := range r.events {
		if r.events[i].UserID == userID {
			e := r.events[i]
			out = append(out, &e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryScoreTx struct {
	repo    *MemoryRepository
	score   Score
	pending []*Event
}

func (t *memoryScoreTx) Score() *Score {
	s := t.score
	return &s
}

func (t *memoryScoreTx) CountEventsSince(ctx context.Context, behavior BehaviorType, since time.Time) (int, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	count := 0
	for _, e := range t.repo.events {
		if e.UserID == t.score.UserID && e.Type == behavior && !e.CreatedAt.Before(since) {
			count++
		}
	}
	for _, e := range t.pending {
		if e.Type == behavior && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (t *memoryScoreTx) AppendEvent(ctx context.Context, event *Event) error {
	t.pending = append(t.pending, event)
	return nil
}

func (t *memoryScoreTx) SaveScore(ctx context.Context, score *Score) error {
	t.score = *score
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
