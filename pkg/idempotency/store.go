// Package idempotency keeps JSON-encoded results in Redis under a request
// key so retried requests can be answered without redoing the work.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) Key(requestKey string) string {
	return fmt.Sprintf("idem:%s:%s", s.prefix, requestKey)
}

// Get decodes the value stored for requestKey into dst. A missing key is
// reported as (false, nil).
func (s *Store) Get(ctx context.Context, requestKey string, dst any) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.Key(requestKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.Key(requestKey), err)
	}
	return true, nil
}

// Put stores v unless a value already exists; the first result for a key wins.
func (s *Store) Put(ctx context.Context, requestKey string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.SetNX(ctx, s.Key(requestKey), raw, s.ttl).Err()
}
