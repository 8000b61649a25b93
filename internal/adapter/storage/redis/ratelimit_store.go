package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore implements ports.RateLimiter as a fixed-window counter:
// INCR plus EXPIRE on a key scoped by the window number.
type RateLimitStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRateLimitStore(client goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	secs := int64(window.Seconds())
	if secs <= 0 {
		return nil, fmt.Errorf("redis rate limit: window must be at least one second")
	}
	windowID := s.now().Unix() / secs
	redisKey := s.windowKey(key, windowID)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit incr: %w", err)
	}
	// First hit opens the window.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window+time.Second).Err(); err != nil {
			return nil, fmt.Errorf("redis rate limit expire: %w", err)
		}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   (windowID + 1) * secs,
	}, nil
}

func (s *RateLimitStore) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	secs := int64(window.Seconds())
	if secs <= 0 {
		return 0, fmt.Errorf("redis rate limit: window must be at least one second")
	}
	count, err := s.client.Get(ctx, s.windowKey(key, s.now().Unix()/secs)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis rate limit get: %w", err)
	}
	return count, nil
}

func (s *RateLimitStore) windowKey(key string, windowID int64) string {
	return fmt.Sprintf("%s%s:%d", s.prefix, key, windowID)
}
