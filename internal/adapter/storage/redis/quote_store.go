package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cutcoin-wallet/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// QuoteStore implements ports.QuoteStore. Quotes are JSON values whose
// Redis TTL is the quote lifetime.
type QuoteStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewQuoteStore(client goredis.UniversalClient) *QuoteStore {
	return &QuoteStore{
		client: client,
		prefix: "quote:",
	}
}

func (s *QuoteStore) Save(ctx context.Context, q *domain.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+q.Reference, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis quote set: %w", err)
	}
	return nil
}

// Get returns nil, nil if the key does not exist.
func (s *QuoteStore) Get(ctx context.Context, reference string) (*domain.Quote, error) {
	raw, err := s.client.Get(ctx, s.prefix+reference).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis quote get: %w", err)
	}
	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &q, nil
}

func (s *QuoteStore) Delete(ctx context.Context, reference string) error {
	if err := s.client.Del(ctx, s.prefix+reference).Err(); err != nil {
		return fmt.Errorf("redis quote del: %w", err)
	}
	return nil
}
