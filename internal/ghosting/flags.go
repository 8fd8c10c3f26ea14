package ghosting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// FlagKey identifies one detected silence: a recipient who never answered
// the message sent at LastMessageAt.
type FlagKey struct {
	ConversationID int64
	UserID         int64
	LastMessageAt  time.Time
}

// FlagCache remembers which silences were already recorded
type FlagCache interface {
	IsFlagged(ctx context.Context, key FlagKey) (bool, error)
	Flag(ctx context.Context, key FlagKey) error
	// Clear drops every flag for the user in the conversation
	Clear(ctx context.Context, conversationID, userID int64) error
}

const DefaultMaxEntries = 10000

type pair struct{ conversationID, userID int64 }

// MemoryFlagCache is a bounded in-process FlagCache. When it grows past
// maxEntries it is emptied; a re-detected silence is then recorded again.
type MemoryFlagCache struct {
	mu         sync.Mutex
	flags      map[pair]map[int64]struct{} // keyed by LastMessageAt unix nanos
	size       int
	maxEntries int
}

func NewMemoryFlagCache(maxEntries int) *MemoryFlagCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryFlagCache{
		flags:      make(map[pair]map[int64]struct{}),
		maxEntries: maxEntries,
	}
}

func (c *MemoryFlagCache) IsFlagged(ctx context.Context, key FlagKey) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.flags[pair{key.ConversationID, key.UserID}][key.LastMessageAt.UnixNano()]
	return ok, nil
}

func (c *MemoryFlagCache) Flag(ctx context.Context, key FlagKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := pair{key.ConversationID, key.UserID}
	set, ok := c.flags[p]
	if !ok {
		set = make(map[int64]struct{})
		c.flags[p] = set
	}
	ts := key.LastMessageAt.UnixNano()
	if _, exists := set[ts]; exists {
		return nil
	}
	set[ts] = struct{}{}
	c.size++

	if c.size > c.maxEntries {
		c.flags = make(map[pair]map[int64]struct{})
		c.size = 0
		RecordFlagCacheReset()
	}
	return nil
}

func (c *MemoryFlagCache) Clear(ctx context.Context, conversationID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := pair{conversationID, userID}
	c.size -= len(c.flags[p])
	delete(c.flags, p)
	return nil
}

// Len reports the number of stored flags
func (c *MemoryFlagCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

const (
	DefaultFlagTTL = 14 * 24 * time.Hour
	redisKeyPrefix = "ghosting:flag"
	scanCount      = 100
)

// RedisFlagCache stores one key per flag and lets Redis expire them
type RedisFlagCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFlagCache(client *redis.Client, ttl time.Duration) *RedisFlagCache {
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}
	return &RedisFlagCache{client: client, ttl: ttl}
}

func redisKey(key FlagKey) string {
	return fmt.Sprintf("%s:%d:%d:%d", redisKeyPrefix, key.ConversationID, key.UserID, key.LastMessageAt.UnixNano())
}

func (c *RedisFlagCache) IsFlagged(ctx context.Context, key FlagKey) (bool, error) {
	n, err := c.client.Exists(ctx, redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ghosting flag: %w", err)
	}
	return n > 0, nil
}

func (c *RedisFlagCache) Flag(ctx context.Context, key FlagKey) error {
	if err := c.client.Set(ctx, redisKey(key), 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ghosting flag: %w", err)
	}
	return nil
}

func (c *RedisFlagCache) Clear(ctx context.Context, conversationID, userID int64) error {
	pattern := fmt.Sprintf("%s:%d:%d:*", redisKeyPrefix, conversationID, userID)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan ghosting flags: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear ghosting flags: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var (
	_ FlagCache = (*MemoryFlagCache)(nil)
	_ FlagCache = (*RedisFlagCache)(nil)
)
