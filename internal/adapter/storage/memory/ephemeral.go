package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
)

// QuoteStore implements ports.QuoteStore with lazy expiry.
type QuoteStore struct {
	mu     sync.Mutex
	quotes map[string]quoteEntry
	now    func() time.Time
}

type quoteEntry struct {
	quote     domain.Quote
	expiresAt time.Time
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]quoteEntry), now: time.Now}
}

func (s *QuoteStore) Save(ctx context.Context, q *domain.Quote, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Reference] = quoteEntry{quote: *q, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *QuoteStore) Get(ctx context.Context, reference string) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.quotes[reference]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.quotes, reference)
		return nil, nil
	}
	q := e.quote
	return &q, nil
}

func (s *QuoteStore) Delete(ctx context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, reference)
	return nil
}

// RateLimiter implements ports.RateLimiter as an in-process fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]int64
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]int64), now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*ports.RateLimitResult, error) {
	secs := int64(window.Seconds())
	if secs <= 0 {
		return nil, fmt.Errorf("memory rate limit: window must be at least one second")
	}
	windowID := l.now().Unix() / secs
	k := fmt.Sprintf("%s:%d", key, windowID)

	l.mu.Lock()
	l.windows[k]++
	count := l.windows[k]
	l.mu.Unlock()

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

func (l *RateLimiter) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	secs := int64(window.Seconds())
	if secs <= 0 {
		return 0, fmt.Errorf("memory rate limit: window must be at least one second")
	}
	k := fmt.Sprintf("%s:%d", key, l.now().Unix()/secs)

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windows[k], nil
}
