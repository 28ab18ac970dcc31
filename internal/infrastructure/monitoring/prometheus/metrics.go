package prometheus

import (
	"time"
)

// PipelineMetrics holds the metrics of a curation run.
type PipelineMetrics struct {
	// Stages
	ComplexesTotal CounterVec
	StageDuration  HistogramVec
	StageRunning   GaugeVec

	// Candidates
	CandidatesTotal CounterVec
	PairingsTotal   CounterVec
	SuperposeRMSD   HistogramVec
	DuplicatesTotal CounterVec
	FinalizedTotal  CounterVec

	// Remote
	RemoteRequestsTotal CounterVec
	RemoteRetriesTotal  CounterVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Outputs
	EventsPublishedTotal CounterVec
	UploadsTotal         CounterVec
}

// Default buckets.
var (
	DefaultStageDurationBuckets = []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 21600}
	DefaultRMSDBuckets          = []float64{0.25, 0.5, 1, 2, 4, 8, 16}
)

// NewPipelineMetrics registers all pipeline metrics on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	m := &PipelineMetrics{}

	m.ComplexesTotal = collector.RegisterCounter("complexes_total", "Complexes handled per stage and outcome", "stage", "outcome")
	m.StageDuration = collector.RegisterHistogram("stage_duration_seconds", "Wall time of a pipeline stage", DefaultStageDurationBuckets, "stage")
	m.StageRunning = collector.RegisterGauge("stage_running", "1 while a stage runs", "stage")

	m.CandidatesTotal = collector.RegisterCounter("candidates_total", "Unbound candidates per role and outcome", "role", "outcome")
	m.PairingsTotal = collector.RegisterCounter("pairings_total", "Scored pairings per type and outcome", "type", "outcome")
	m.SuperposeRMSD = collector.RegisterHistogram("superpose_rmsd_angstrom", "RMSD of the fitted points after superposition", DefaultRMSDBuckets, "role")
	m.DuplicatesTotal = collector.RegisterCounter("duplicates_total", "Duplicate complex pairs found")
	m.FinalizedTotal = collector.RegisterCounter("finalized_total", "Finalized complexes", "perfect")

	m.RemoteRequestsTotal = collector.RegisterCounter("remote_requests_total", "Remote requests per endpoint and outcome", "endpoint", "outcome")
	m.RemoteRetriesTotal = collector.RegisterCounter("remote_retries_total", "Remote request retries", "endpoint")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Memo cache hits", "call")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Memo cache misses", "call")

	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Ranking events published", "outcome")
	m.UploadsTotal = collector.RegisterCounter("uploads_total", "Export files uploaded", "outcome")

	return m
}

// ── Recorders ──────────────────────────────────────────────────────────────

// CacheHit implements cache.Recorder.
func (m *PipelineMetrics) CacheHit(call string) { m.CacheHitsTotal.WithLabelValues(call).Inc() }

// CacheMiss implements cache.Recorder.
func (m *PipelineMetrics) CacheMiss(call string) { m.CacheMissesTotal.WithLabelValues(call).Inc() }

// RemoteRequest implements rcsb.Recorder.
func (m *PipelineMetrics) RemoteRequest(endpoint, outcome string) {
	m.RemoteRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RemoteRetry implements rcsb.Recorder.
func (m *PipelineMetrics) RemoteRetry(endpoint string) {
	m.RemoteRetriesTotal.WithLabelValues(endpoint).Inc()
}

// Complex counts one complex leaving stage with outcome (processed, failed,
// skipped, obsolete).
func (m *PipelineMetrics) Complex(stage, outcome string) {
	m.ComplexesTotal.WithLabelValues(stage, outcome).Inc()
}

// Candidate counts one candidate of role (AB, AG) with outcome.
func (m *PipelineMetrics) Candidate(role, outcome string) {
	m.CandidatesTotal.WithLabelValues(role, outcome).Inc()
}

// Pairing counts one scored pairing.
func (m *PipelineMetrics) Pairing(pairingType, outcome string) {
	m.PairingsTotal.WithLabelValues(pairingType, outcome).Inc()
}

// Superposed records the RMSD of a fitted group.
func (m *PipelineMetrics) Superposed(role string, rmsd float64) {
	m.SuperposeRMSD.WithLabelValues(role).Observe(rmsd)
}

// Duplicates adds n found duplicate pairs.
func (m *PipelineMetrics) Duplicates(n int) { m.DuplicatesTotal.WithLabelValues().Add(float64(n)) }

// Finalized counts one finalized complex.
func (m *PipelineMetrics) Finalized(perfect bool) {
	label := "false"
	if perfect {
		label = "true"
	}
	m.FinalizedTotal.WithLabelValues(label).Inc()
}

// EventPublished counts one ranking event.
func (m *PipelineMetrics) EventPublished(err error) {
	m.EventsPublishedTotal.WithLabelValues(outcome(err)).Inc()
}

// Uploaded counts one uploaded export file.
func (m *PipelineMetrics) Uploaded(err error) { m.UploadsTotal.WithLabelValues(outcome(err)).Inc() }

// StartStage marks stage as running and returns a function that records its
// duration when called.
func (m *PipelineMetrics) StartStage(stage string) func() time.Duration {
	m.StageRunning.WithLabelValues(stage).Set(1)
	timer := NewTimer(m.StageDuration.WithLabelValues(stage))
	return func() time.Duration {
		m.StageRunning.WithLabelValues(stage).Set(0)
		return timer.ObserveDuration()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

//Personal.AI order the ending
