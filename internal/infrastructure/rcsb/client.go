// Package rcsb talks to the RCSB PDB web services: sequence search, FASTA
// entries, coordinate files and entry metadata.
//
// Every call runs under a per-call deadline and is retried with jittered
// exponential backoff while the service answers with rate limits, server
// errors, empty bodies or HTML error pages. A call ends in one of three
// states, see Status.
package rcsb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/cache"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Result
// ─────────────────────────────────────────────────────────────────────────────

// Status is the terminal state of a remote call.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of a call. Body is set only for StatusOK and may be
// empty for 204 responses.
type Result struct {
	Status   Status
	Body     []byte
	Attempts int
}

// Endpoint labels, also used as metric label values.
const (
	EndpointSearch      = "search"
	EndpointFastaEntry  = "fasta_entry"
	EndpointFastaEntity = "fasta_entity"
	EndpointStructure   = "structure"
	EndpointEntry       = "entry"
)

// Recorder observes remote traffic.
type Recorder interface {
	RemoteRequest(endpoint, outcome string)
	RemoteRetry(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) RemoteRequest(string, string) {}
func (nopRecorder) RemoteRetry(string)           {}

// ─────────────────────────────────────────────────────────────────────────────
// Client
// ─────────────────────────────────────────────────────────────────────────────

// Client is safe for concurrent use.
type Client struct {
	cfg      config.RemoteConfig
	http     *http.Client
	logger   logging.Logger
	memo     *cache.Memo
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMemo memoizes search, FASTA and metadata calls.
func WithMemo(m *cache.Memo) Option {
	return func(c *Client) { c.memo = m }
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewClient builds a client over the endpoints in cfg. Zero tunables take
// their defaults.
func NewClient(cfg config.RemoteConfig, log logging.Logger, opts ...Option) *Client {
	withDefaults(&cfg)
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{},
		logger:   log.Named("rcsb"),
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func withDefaults(cfg *config.RemoteConfig) {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = config.DefaultCallTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = config.DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = config.DefaultMaxBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.Rows <= 0 {
		cfg.Rows = config.DefaultSearchRows
	}
	cfg.SearchURL = strings.TrimSuffix(cfg.SearchURL, "/")
	cfg.FastaURL = strings.TrimSuffix(cfg.FastaURL, "/")
	cfg.FilesURL = strings.TrimSuffix(cfg.FilesURL, "/")
	cfg.DataURL = strings.TrimSuffix(cfg.DataURL, "/")
}

type request struct {
	endpoint string
	method   string
	url      string
	body     []byte
	accept   string
}

// do runs req to completion. The returned error is non-nil for responses
// that retrying cannot fix, e.g. a 400 on a malformed query, and when the
// caller's context ends first. Only the call's own deadline yields
// StatusTimeout.
func (c *Client) do(parent context.Context, req request) (Result, error) {
	if err := parent.Err(); err != nil {
		return Result{}, cancelledError(req.endpoint, err)
	}
	ctx, cancel := context.WithTimeout(parent, c.cfg.CallTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	var res Result
	op := func() error {
		res.Attempts++
		body, err := c.attempt(ctx, req)
		if err != nil {
			return err
		}
		res.Body = body
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.recorder.RemoteRetry(req.endpoint)
		c.logger.Debug("Retrying remote call",
			logging.String("endpoint", req.endpoint),
			logging.String("url", req.url),
			logging.Duration("wait", wait),
			logging.Reason(errors.Reason(err)),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	switch {
	case err == nil:
		res.Status = StatusOK
		return res, nil
	case errors.IsCode(err, errors.ErrCodeRemoteNotFound):
		res.Status = StatusNotFound
		return res, nil
	case parent.Err() != nil:
		c.recorder.RemoteRequest(req.endpoint, "cancelled")
		return res, cancelledError(req.endpoint, parent.Err())
	case ctx.Err() != nil:
		res.Status = StatusTimeout
		c.recorder.RemoteRequest(req.endpoint, "timeout")
		c.logger.Warn("Remote call deadline exceeded",
			logging.String("endpoint", req.endpoint),
			logging.String("url", req.url),
			logging.Int("attempts", res.Attempts),
		)
		return res, nil
	default:
		return res, err
	}
}

// attempt performs one HTTP exchange. Retryable failures are returned as
// plain errors, terminal ones wrapped in backoff.Permanent.
func (c *Client) attempt(ctx context.Context, req request) ([]byte, error) {
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, errors.CodeInvalidParam, "failed to build request"))
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.recorder.RemoteRequest(req.endpoint, "transport")
		return nil, errors.Wrap(err, errors.ErrCodeRemoteUnavailable, "transport error")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recorder.RemoteRequest(req.endpoint, "transport")
		return nil, errors.Wrap(err, errors.ErrCodeRemoteUnavailable, "failed to read body")
	}

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		c.recorder.RemoteRequest(req.endpoint, "not_found")
		return nil, backoff.Permanent(errors.New(errors.ErrCodeRemoteNotFound, "not found").WithDetail(req.url))
	case code == http.StatusTooManyRequests:
		c.recorder.RemoteRequest(req.endpoint, "rate_limited")
		return nil, errors.New(errors.ErrCodeRemoteRateLimited, "rate limited")
	case code >= 500:
		c.recorder.RemoteRequest(req.endpoint, "server_error")
		return nil, errors.Newf(errors.ErrCodeRemoteUnavailable, "server error %d", code)
	case code == http.StatusNoContent:
		c.recorder.RemoteRequest(req.endpoint, "ok")
		return []byte{}, nil
	case code >= 400:
		c.recorder.RemoteRequest(req.endpoint, "rejected")
		return nil, backoff.Permanent(errors.Newf(errors.ErrCodeExternalService, "request rejected with %d", code).
			WithDetail(snippet(data)))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		c.recorder.RemoteRequest(req.endpoint, "empty")
		return nil, errors.New(errors.ErrCodeRemoteMalformed, "empty body")
	}
	if isHTML(trimmed) {
		title := htmlTitle(trimmed)
		if strings.Contains(title, "404") {
			c.recorder.RemoteRequest(req.endpoint, "not_found")
			return nil, backoff.Permanent(errors.New(errors.ErrCodeRemoteNotFound, "not found").WithDetail(title))
		}
		c.recorder.RemoteRequest(req.endpoint, "html")
		return nil, errors.New(errors.ErrCodeRemoteMalformed, "html error page").WithDetail(title)
	}

	c.recorder.RemoteRequest(req.endpoint, "ok")
	return data, nil
}

func isHTML(b []byte) bool {
	head := b
	if len(head) > 64 {
		head = head[:64]
	}
	lower := strings.ToLower(string(head))
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// htmlTitle extracts the <title> of an error page for logging.
func htmlTitle(b []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// memoized routes fn through the memo cache when one is configured.
func memoized[T any](ctx context.Context, c *Client, call string, fn func(context.Context) (T, error), args ...interface{}) (T, error) {
	if c.memo == nil {
		return fn(ctx)
	}
	return cache.Do(ctx, c.memo, call, fn, args...)
}

// timeoutError is returned by the typed endpoints when the call deadline
// passed without a usable answer.
func timeoutError(endpoint, subject string) error {
	return errors.Newf(errors.ErrCodeRemoteTimeout, "%s call timed out", endpoint).WithDetail(subject)
}

// cancelledError keeps cause (context.Canceled or the caller's deadline)
// reachable through errors.Is.
func cancelledError(endpoint string, cause error) error {
	return errors.Wrap(cause, errors.ErrCodeCancelled, endpoint+" call cancelled")
}

//Personal.AI order the ending
