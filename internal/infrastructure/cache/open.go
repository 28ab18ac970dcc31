package cache

import (
	"context"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/database/redis"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// Backend is an opened Store with its release function.
type Backend struct {
	Store  Store
	Client *redis.Client // nil for the memory backend
}

// Purger is a Store that can drop every memoized entry.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Purge empties the store and returns the number of dropped entries. A store
// without Purge is left untouched.
func (b *Backend) Purge(ctx context.Context) (int64, error) {
	p, ok := b.Store.(Purger)
	if !ok {
		return 0, nil
	}
	return p.Purge(ctx)
}

// Close releases the redis connection, if any.
func (b *Backend) Close() error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Close()
}

// Open selects the memo store named by cfg.Backend.
func Open(cfg config.CacheConfig, rcfg config.RedisConfig, log logging.Logger) (*Backend, error) {
	switch cfg.Backend {
	case "", config.CacheMemory:
		return &Backend{Store: NewMemoryStore()}, nil
	case config.CacheRedis:
		client, err := redis.NewClient(rcfg, log)
		if err != nil {
			return nil, err
		}
		store := redis.NewStore(client, log, redis.WithPrefix(cfg.Prefix), redis.WithDefaultTTL(cfg.TTL))
		return &Backend{Store: store, Client: client}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown cache backend %q", cfg.Backend)
	}
}
