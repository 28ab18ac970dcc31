// Package batch runs a function over a slice of items with bounded
// concurrency and collects per-item outcomes in input order.
package batch

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel Errors
// ---------------------------------------------------------------------------

var ErrShutdown = stdliberrors.New("batch processor is shutting down")

// ---------------------------------------------------------------------------
// ItemStatus enumeration
// ---------------------------------------------------------------------------

// ItemStatus represents the outcome status of a single batch item.
type ItemStatus int

const (
	ItemStatusSuccess ItemStatus = iota
	ItemStatusFailed
	ItemStatusTimeout
	ItemStatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult holds the outcome of processing a single item.
type ItemResult[R any] struct {
	Index    int           `json:"index"`
	Result   R             `json:"result"`
	Error    error         `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Status   ItemStatus    `json:"status"`
}

// BatchResult aggregates the outcomes of a run. Results are in input order.
type BatchResult[R any] struct {
	Results      []*ItemResult[R] `json:"results"`
	TotalCount   int              `json:"total_count"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Duration     time.Duration    `json:"duration"`
}

// Errors returns the errors of failed items in input order.
func (br *BatchResult[R]) Errors() []error {
	var errs []error
	for _, r := range br.Results {
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type config struct {
	maxConcurrency int
	itemTimeout    time.Duration
	logger         logging.Logger
	name           string
}

// Option configures a Processor.
type Option func(*config)

// WithMaxConcurrency sets the maximum number of items processed concurrently.
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithItemTimeout bounds each item. Zero leaves items unbounded.
func WithItemTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

// WithLogger injects a logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithName labels the processor in log entries.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// ---------------------------------------------------------------------------
// Processor
// ---------------------------------------------------------------------------

// Processor is a reusable bounded-concurrency runner.
type Processor[T, R any] struct {
	cfg config

	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	activeWg     sync.WaitGroup
}

// NewProcessor creates a Processor with the supplied options.
func NewProcessor[T, R any](opts ...Option) *Processor[T, R] {
	cfg := config{maxConcurrency: runtime.NumCPU(), name: "batch"}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNopLogger()
	}
	return &Processor[T, R]{cfg: cfg}
}

// Process runs fn for every item. Item failures are reported in the result;
// the returned error is set only when the processor rejects the batch.
func (p *Processor[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.New(errors.ErrCodeValidation, "process function must not be nil")
	}
	if p.isShutdown.Load() {
		return nil, ErrShutdown
	}
	n := len(items)
	if n == 0 {
		return &BatchResult[R]{Results: []*ItemResult[R]{}}, nil
	}

	p.activeWg.Add(1)
	defer p.activeWg.Done()

	start := time.Now()
	resultCh := make(chan *ItemResult[R], n)
	sem := make(chan struct{}, p.cfg.maxConcurrency)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultCh <- &ItemResult[R]{Index: idx, Error: ctx.Err(), Status: classifyError(ctx, ctx.Err())}
				return
			}
			resultCh <- p.processOne(ctx, idx, item, fn)
		}(i, items[i])
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]*ItemResult[R], 0, n)
	for ir := range resultCh {
		results = append(results, ir)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	br := &BatchResult[R]{Results: results, TotalCount: n, Duration: time.Since(start)}
	for _, r := range results {
		if r.Status == ItemStatusSuccess {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	p.cfg.logger.Debug("Batch processed",
		logging.String("batch", p.cfg.name),
		logging.Int("total", br.TotalCount),
		logging.Int("failed", br.FailureCount),
		logging.Duration("duration", br.Duration))
	return br, nil
}

func (p *Processor[T, R]) processOne(ctx context.Context, idx int, item T, fn ProcessFunc[T, R]) (ir *ItemResult[R]) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			p.cfg.logger.Error("Batch item panicked", logging.String("batch", p.cfg.name), logging.Int("index", idx), logging.Any("panic", rec))
			ir = &ItemResult[R]{
				Index:    idx,
				Error:    errors.Newf(errors.ErrCodeInternal, "item %d panicked: %v", idx, rec),
				Status:   ItemStatusFailed,
				Duration: time.Since(start),
			}
		}
	}()

	itemCtx := ctx
	if p.cfg.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, p.cfg.itemTimeout)
		defer cancel()
	}
	result, err := fn(itemCtx, item)
	if err == nil {
		return &ItemResult[R]{Index: idx, Result: result, Status: ItemStatusSuccess, Duration: time.Since(start)}
	}
	return &ItemResult[R]{Index: idx, Error: err, Status: classifyError(ctx, err), Duration: time.Since(start)}
}

// Shutdown rejects new batches and waits for in-flight ones or ctx expiry.
func (p *Processor[T, R]) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() { p.isShutdown.Store(true) })

	done := make(chan struct{})
	go func() {
		p.activeWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func classifyError(ctx context.Context, err error) ItemStatus {
	switch {
	case err == nil:
		return ItemStatusSuccess
	case stdliberrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	case stdliberrors.Is(err, context.Canceled):
		return ItemStatusCancelled
	case ctx.Err() == context.DeadlineExceeded:
		return ItemStatusTimeout
	case ctx.Err() == context.Canceled:
		return ItemStatusCancelled
	}
	return ItemStatusFailed
}

//Personal.AI order the ending
