// Package curation runs the stages that turn a table of bound antibody–antigen
// complexes into a curated set of unbound counterparts: collect, process,
// duplicates, summary and constraints.
//
// Every stage reads the tables the previous one wrote, so stages can be run
// one at a time from the command line or all at once with Run.
package curation

import (
	"context"
	"sync"
	"time"

	"github.com/biocad/anbase/internal/application/discovery"
	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/domain/ranking"
	"github.com/biocad/anbase/internal/domain/sequence"
	"github.com/biocad/anbase/internal/infrastructure/journal"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/internal/infrastructure/storage/minio"
)

// Stage names, used for metrics and logs.
const (
	StageCollect     = "collect"
	StageProcess     = "process"
	StageDuplicates  = "duplicates"
	StageSummary     = "summary"
	StageConstraints = "constraints"
)

// Remote is the subset of *rcsb.Client the pipeline uses.
type Remote interface {
	discovery.Remote
	StructurePath(ctx context.Context, pdbID, dir string) (string, error)
}

var _ Remote = (*rcsb.Client)(nil)

// Publisher announces finalized complexes.
type Publisher interface {
	Finalized(ctx context.Context, results ...ranking.Result) error
}

// Uploader copies the output tables to object storage and lists what a run
// has stored.
type Uploader interface {
	UploadAll(ctx context.Context, runID string, localPaths []string) ([]*minio.UploadResult, error)
	List(ctx context.Context, runID string) ([]*minio.ObjectMetadata, error)
}

// Lease guards a run against a concurrent run with the same id.
type Lease interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// Metrics receives pipeline counters. *prometheus.PipelineMetrics satisfies it.
type Metrics interface {
	Complex(stage, outcome string)
	Candidate(role, outcome string)
	Pairing(pairingType, outcome string)
	Superposed(role string, rmsd float64)
	Duplicates(n int)
	Finalized(perfect bool)
	StartStage(stage string) func() time.Duration
}

type nopMetrics struct{}

func (nopMetrics) Complex(string, string)     {}
func (nopMetrics) Candidate(string, string)   {}
func (nopMetrics) Pairing(string, string)     {}
func (nopMetrics) Superposed(string, float64) {}
func (nopMetrics) Duplicates(int)             {}
func (nopMetrics) Finalized(bool)             {}
func (nopMetrics) StartStage(string) func() time.Duration {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithPublisher enables ranking events.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithUploader enables uploading the output tables after the summary.
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithLease makes Run hold lease for its duration.
func WithLease(l Lease) Option {
	return func(p *Pipeline) { p.lease = l }
}

// Pipeline runs the curation stages of one run.
type Pipeline struct {
	cfg        config.PipelineConfig
	layout     Layout
	remote     Remote
	comparator *sequence.Comparator
	finder     *discovery.Finder
	metrics    Metrics
	publisher  Publisher
	uploader   Uploader
	lease      Lease
	logger     logging.Logger

	mu      sync.RWMutex
	ledgers *journal.Ledgers
	stage   string
}

// New builds a Pipeline. cfg is expected to have defaults applied.
func New(cfg config.PipelineConfig, remote Remote, log logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		layout:     NewLayout(cfg),
		remote:     remote,
		comparator: sequence.NewComparator(),
		metrics:    nopMetrics{},
		logger:     log.Named("curation"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.finder = discovery.NewFinder(remote, p.comparator, discovery.Options{
		MaxCandidates: cfg.MaxCandidates,
		TopCandidates: cfg.TopCandidates,
		Workers:       cfg.Workers,
	}, log, p.metrics)
	return p
}

// Layout returns the file layout of the run.
func (p *Pipeline) Layout() Layout { return p.layout }

func (p *Pipeline) onlyUU() bool { return p.cfg.Pairing != config.PairingAll }

// Progress returns the ledger counts of the collect stage, zero before it
// starts.
func (p *Pipeline) Progress() journal.Counts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ledgers == nil {
		return journal.Counts{}
	}
	return p.ledgers.Counts()
}

// Stage returns the name of the running stage, "" between stages.
func (p *Pipeline) Stage() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stage
}

func (p *Pipeline) setStage(stage string) {
	p.mu.Lock()
	p.stage = stage
	p.mu.Unlock()
}

func (p *Pipeline) openLedgers() (*journal.Ledgers, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ledgers != nil {
		return p.ledgers, nil
	}
	l, err := journal.OpenLedgers(p.layout.OutDir, p.cfg.RunID, p.cfg.Continue, p.logger)
	if err != nil {
		return nil, err
	}
	p.ledgers = l
	return l, nil
}

// Close releases the ledgers.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ledgers == nil {
		return nil
	}
	err := p.ledgers.Close()
	p.ledgers = nil
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Run
// ─────────────────────────────────────────────────────────────────────────────

// Run executes every stage in order. A stage error stops the run.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.lease != nil {
		if err := p.lease.Acquire(ctx); err != nil {
			return err
		}
		defer func() {
			if rerr := p.lease.Release(context.Background()); rerr != nil {
				p.logger.Warn("Failed to release run lease", logging.Err(rerr))
			}
		}()
	}

	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageCollect, p.Collect},
		{StageProcess, p.Process},
		{StageDuplicates, p.Duplicates},
		{StageSummary, func(ctx context.Context) error { _, err := p.Summary(ctx); return err }},
		{StageConstraints, func(ctx context.Context) error { _, err := p.Constraints(ctx); return err }},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.fn(ctx); err != nil {
			p.logger.Error("Stage failed", logging.String("stage", st.name), logging.Err(err))
			return err
		}
	}
	return nil
}

// timeStage starts the duration metric of stage and returns the function that
// stops it and logs the elapsed time.
func (p *Pipeline) timeStage(stage string) func() {
	stop := p.metrics.StartStage(stage)
	p.setStage(stage)
	p.logger.Info("Stage started", logging.String("stage", stage), logging.String("run_id", p.cfg.RunID))
	return func() {
		p.setStage("")
		p.logger.Info("Stage finished", logging.String("stage", stage), logging.Duration("elapsed", stop()))
	}
}

//Personal.AI order the ending
