package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Store is a byte-oriented key/value store with a key prefix and jittered
// expiry. It backs the remote-call memo cache when the redis backend is
// configured.
type Store struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	jitter     float64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.defaultTTL = ttl }
}

// WithJitter spreads expiries by up to the given fraction of the TTL. Zero
// disables jitter.
func WithJitter(fraction float64) StoreOption {
	return func(s *Store) { s.jitter = fraction }
}

func NewStore(client *Client, log logging.Logger, opts ...StoreOption) *Store {
	s := &Store{
		client:     client,
		logger:     log,
		defaultTTL: 24 * time.Hour,
		jitter:     0.1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) fullKey(key string) string {
	return s.prefix + key
}

func (s *Store) ttl(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if s.jitter <= 0 || ttl <= 0 {
		return ttl
	}
	spread := int64(float64(ttl) * s.jitter)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread))
}

// Get returns the stored bytes. A missing key is (nil, false, nil).
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "redis get failed")
	}
	return data, true, nil
}

// Set stores value under key. A non-positive ttl uses the default TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.fullKey(key), string(value), s.ttl(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis set failed")
	}
	return nil
}

// Purge deletes every key under the store prefix and returns the count.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := s.prefix + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "redis scan failed")
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "redis delete failed")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Info("Purged memo store", logging.String("prefix", s.prefix), logging.Int64("deleted", deleted))
	return deleted, nil
}

//Personal.AI order the ending
