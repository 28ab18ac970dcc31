// Package cache memoizes remote calls. A call is identified by its name and
// its normalized arguments; results are JSON-encoded into a pluggable Store.
// Concurrent identical calls are collapsed into one.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
)

// Store is the byte-level backend of a Memo. Get reports a missing key as
// (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder observes memo hits and misses per call name.
type Recorder interface {
	CacheHit(call string)
	CacheMiss(call string)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit(string)  {}
func (nopRecorder) CacheMiss(string) {}

// Memo is safe for concurrent use.
type Memo struct {
	store    Store
	ttl      time.Duration
	logger   logging.Logger
	recorder Recorder
	group    singleflight.Group
}

// Option configures a Memo.
type Option func(*Memo)

func WithTTL(ttl time.Duration) Option {
	return func(m *Memo) { m.ttl = ttl }
}

func WithRecorder(r Recorder) Option {
	return func(m *Memo) {
		if r != nil {
			m.recorder = r
		}
	}
}

// New builds a Memo over store.
func New(store Store, log logging.Logger, opts ...Option) *Memo {
	m := &Memo{store: store, logger: log, recorder: nopRecorder{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Key derives the store key of a call. String arguments are trimmed and
// upper-cased so "1abc" and " 1ABC" share an entry; the argument list is
// hashed to keep keys short when sequences are part of it.
func Key(call string, args ...interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = normalize(a)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return call + ":" + hex.EncodeToString(sum[:])
}

func normalize(a interface{}) string {
	switch v := a.(type) {
	case string:
		return strings.ToUpper(strings.TrimSpace(v))
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = normalize(s)
		}
		return "[" + strings.Join(out, ",") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// Do returns the memoized result of fn for (call, args). Errors are never
// cached, and a failing store degrades to calling fn directly.
func Do[T any](ctx context.Context, m *Memo, call string, fn func(context.Context) (T, error), args ...interface{}) (T, error) {
	key := Key(call, args...)

	var zero T
	if v, ok := m.lookup(ctx, call, key); ok {
		var out T
		if err := json.Unmarshal(v, &out); err == nil {
			m.recorder.CacheHit(call)
			return out, nil
		}
		m.logger.Warn("Discarding undecodable memo entry", logging.String("key", key))
	}
	m.recorder.CacheMiss(call)

	res, err, _ := m.group.Do(key, func() (interface{}, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			m.logger.Warn("Memo value is not serializable", logging.String("call", call), logging.Err(err))
			return v, nil
		}
		if err := m.store.Set(ctx, key, data, m.ttl); err != nil {
			m.logger.Warn("Failed to store memo entry", logging.String("call", call), logging.Err(err))
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, nil
	}
	return out, nil
}

func (m *Memo) lookup(ctx context.Context, call, key string) ([]byte, bool) {
	v, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("Memo store lookup failed", logging.String("call", call), logging.Err(err))
		return nil, false
	}
	return v, ok
}

//Personal.AI order the ending
