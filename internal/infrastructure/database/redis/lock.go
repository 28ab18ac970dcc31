package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

var (
	ErrLeaseHeld    = errors.New(errors.ErrCodeConflict, "run lease is held by another process")
	ErrLeaseNotHeld = errors.New(errors.ErrCodeConflict, "run lease is not held")
)

const leaseKeyPrefix = "anbase:lock:run:"

// Lease is an exclusive, expiring claim on a run id. Two processes sharing
// a redis memo store must not append to the same run's ledgers; the lease
// enforces that. A watchdog renews it every ttl/3 until Release.
type Lease struct {
	client *Client
	logger logging.Logger
	key    string
	value  string
	ttl    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var leaseReleaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var leaseExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// NewLease prepares, but does not acquire, the lease for runID.
func NewLease(client *Client, log logging.Logger, runID string, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lease{
		client: client,
		logger: log,
		key:    leaseKeyPrefix + runID,
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Key is the redis key guarding the run.
func (l *Lease) Key() string { return l.key }

// Acquire claims the lease once. It returns ErrLeaseHeld when another owner
// holds it.
func (l *Lease) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set run lease")
	}
	if !ok {
		return ErrLeaseHeld.WithDetail(l.key)
	}
	l.startWatchdog()
	l.logger.Info("Run lease acquired", logging.String("key", l.key), logging.Duration("ttl", l.ttl))
	return nil
}

// Release stops renewal and deletes the key if this process still owns it.
func (l *Lease) Release(ctx context.Context) error {
	l.stopWatchdog()
	res, err := leaseReleaseScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release run lease")
	}
	if res == 0 {
		return ErrLeaseNotHeld.WithDetail(l.key)
	}
	return nil
}

// Extend pushes the expiry to ttl from now. It reports false when the lease
// was lost.
func (l *Lease) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := leaseExtendScript.Run(ctx, l.client.Underlying(), []string{l.key}, l.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (l *Lease) startWatchdog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.watchdog(ctx, l.ttl/3, l.done)
}

func (l *Lease) stopWatchdog() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		<-l.done
		l.cancel = nil
	}
}

func (l *Lease) watchdog(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := l.Extend(ctx, l.ttl)
			if err != nil {
				if ctx.Err() == nil {
					l.logger.Error("Watchdog failed to extend run lease", logging.Err(err))
				}
				return
			}
			if !ok {
				l.logger.Warn("Watchdog lost run lease", logging.String("key", l.key))
				return
			}
		}
	}
}

//Personal.AI order the ending
