package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds how many messages a sender may submit per window.
// The in-memory implementation is per-instance state; a horizontally
// scaled deployment must wire the Redis implementation instead so all
// instances share one counter.
// Refund gives a unit back when a send that passed the Allow check is
// later rejected by the store; the quota covers accepted messages only.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
	Refund(ctx context.Context, userID string)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter keyed by user id. Once the
// window deadline passes, the counter restarts at 1 for the new message.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.After(w.resetAt) {
		l.windows[userID] = &window{count: 1, resetAt: now.Add(l.period)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

func (l *MemoryLimiter) Refund(_ context.Context, userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[userID]
	if !ok || l.now().After(w.resetAt) {
		return
	}
	if w.count > 0 {
		w.count--
	}
}

// RedisLimiter shares the counter across instances via INCR + EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("%s:ratelimit:%s", l.prefix, userID)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.period)
	}
	return count <= int64(l.limit), nil
}

func (l *RedisLimiter) Refund(ctx context.Context, userID string) {
	key := fmt.Sprintf("%s:ratelimit:%s", l.prefix, userID)
	// best-effort; a lost refund only under-grants
	_ = l.client.Decr(ctx, key).Err()
}
