package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const failedLoginKeyPrefix = "auth:failed:"

// LoginAttemptRepository counts failed logins per identifier inside a window.
type LoginAttemptRepository interface {
	Increment(ctx context.Context, identifier string, window time.Duration) (int64, error)
	Count(ctx context.Context, identifier string) (int64, error)
	Reset(ctx context.Context, identifier string) error
}

type redisLoginAttemptRepository struct {
	client *redis.Client
}

// NewRedisLoginAttemptRepository stores counters in Redis so every instance
// sees the same lockout state.
func NewRedisLoginAttemptRepository(client *redis.Client) LoginAttemptRepository {
	return &redisLoginAttemptRepository{client: client}
}

// Increment bumps the counter; the window starts at the first failure. INCR
// and EXPIRE NX run in one transaction so a counter never outlives its window.
func (r *redisLoginAttemptRepository) Increment(ctx context.Context, identifier string, window time.Duration) (int64, error) {
	key := failedLoginKeyPrefix + identifier

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisLoginAttemptRepository) Count(ctx context.Context, identifier string) (int64, error) {
	count, err := r.client.Get(ctx, failedLoginKeyPrefix+identifier).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *redisLoginAttemptRepository) Reset(ctx context.Context, identifier string) error {
	return r.client.Del(ctx, failedLoginKeyPrefix+identifier).Err()
}

type attemptWindow struct {
	count     int64
	expiresAt time.Time
}

type memoryLoginAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]attemptWindow
	now      func() time.Time
}

// NewMemoryLoginAttemptRepository keeps counters in process memory.
func NewMemoryLoginAttemptRepository(now func() time.Time) LoginAttemptRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryLoginAttemptRepository{attempts: make(map[string]attemptWindow), now: now}
}

func (r *memoryLoginAttemptRepository) Increment(_ context.Context, identifier string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.attempts[identifier]
	if !ok || !now.Before(w.expiresAt) {
		w = attemptWindow{expiresAt: now.Add(window)}
	}
	w.count++
	r.attempts[identifier] = w
	return w.count, nil
}

func (r *memoryLoginAttemptRepository) Count(_ context.Context, identifier string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.attempts[identifier]
	if !ok {
		return 0, nil
	}
	if !r.now().Before(w.expiresAt) {
		delete(r.attempts, identifier)
		return 0, nil
	}
	return w.count, nil
}

func (r *memoryLoginAttemptRepository) Reset(_ context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, identifier)
	return nil
}
