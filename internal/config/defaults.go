package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	PairingUU  = "uu"
	PairingAll = "all"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

const (
	DefaultRunID           = "0"
	DefaultSummaryPath     = "sabdab_summary_all.tsv"
	DefaultDataDir         = "data"
	DefaultOutDir          = "out"
	DefaultWorkers         = 3
	DefaultDupWorkers      = 30
	DefaultMaxCandidates   = 50
	DefaultTopCandidates   = 5
	DefaultInterfaceCutoff = 10.0
	DefaultEpitopeCutoff   = 6.5
	DefaultGapCutoffExt    = 5.0
	DefaultLongGapLength   = 15

	DefaultSearchURL      = "https://search.rcsb.org"
	DefaultFastaURL       = "https://www.rcsb.org"
	DefaultFilesURL       = "https://files.rcsb.org"
	DefaultDataURL        = "https://data.rcsb.org"
	DefaultUserAgent      = "anbase/1.0"
	DefaultCallTimeout    = 100 * time.Second
	DefaultAttemptTimeout = 30 * time.Second
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 20 * time.Second
	DefaultIdentityCutoff = 0.9
	DefaultEValueCutoff   = 10.0
	DefaultSearchRows     = 100

	DefaultCachePrefix = "anbase:memo:"
	DefaultCacheTTL    = 24 * time.Hour

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10
	DefaultRedisTimeout  = 3 * time.Second

	DefaultStorageBucket = "anbase-exports"
	DefaultEventsTopic   = "anbase.ranking"
	DefaultEventsBatch   = 100 * time.Millisecond

	DefaultShutdownTimeout  = 5 * time.Second
	DefaultMetricsNamespace = "anbase"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// DefaultAntigenTypes are the SAbDab antigen_type values accepted as
// protein antigens.
var DefaultAntigenTypes = []string{"protein", "protein | protein", "protein | protein | protein"}

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly set fields are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	p := &cfg.Pipeline
	if p.RunID == "" {
		p.RunID = DefaultRunID
	}
	if p.SummaryPath == "" {
		p.SummaryPath = DefaultSummaryPath
	}
	if p.DataDir == "" {
		p.DataDir = DefaultDataDir
	}
	if p.OutDir == "" {
		p.OutDir = DefaultOutDir
	}
	if p.Workers == 0 {
		p.Workers = DefaultWorkers
	}
	if p.DupWorkers == 0 {
		p.DupWorkers = DefaultDupWorkers
	}
	if p.Pairing == "" {
		p.Pairing = PairingUU
	}
	if len(p.AntigenTypes) == 0 {
		p.AntigenTypes = append([]string(nil), DefaultAntigenTypes...)
	}
	if p.MaxCandidates == 0 {
		p.MaxCandidates = DefaultMaxCandidates
	}
	if p.TopCandidates == 0 {
		p.TopCandidates = DefaultTopCandidates
	}
	if p.InterfaceCutoff == 0 {
		p.InterfaceCutoff = DefaultInterfaceCutoff
	}
	if p.EpitopeCutoff == 0 {
		p.EpitopeCutoff = DefaultEpitopeCutoff
	}
	if p.GapCutoffExtension == 0 {
		p.GapCutoffExtension = DefaultGapCutoffExt
	}
	if p.LongGapLength == 0 {
		p.LongGapLength = DefaultLongGapLength
	}

	// ── Remote ────────────────────────────────────────────────────────────────
	r := &cfg.Remote
	if r.SearchURL == "" {
		r.SearchURL = DefaultSearchURL
	}
	if r.FastaURL == "" {
		r.FastaURL = DefaultFastaURL
	}
	if r.FilesURL == "" {
		r.FilesURL = DefaultFilesURL
	}
	if r.DataURL == "" {
		r.DataURL = DefaultDataURL
	}
	if r.UserAgent == "" {
		r.UserAgent = DefaultUserAgent
	}
	if r.CallTimeout == 0 {
		r.CallTimeout = DefaultCallTimeout
	}
	if r.AttemptTimeout == 0 {
		r.AttemptTimeout = DefaultAttemptTimeout
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = DefaultInitialBackoff
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = DefaultMaxBackoff
	}
	if r.IdentityCutoff == 0 {
		r.IdentityCutoff = DefaultIdentityCutoff
	}
	if r.EValueCutoff == 0 {
		r.EValueCutoff = DefaultEValueCutoff
	}
	if r.Rows == 0 {
		r.Rows = DefaultSearchRows
	}

	// ── Cache / Redis ─────────────────────────────────────────────────────────
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheMemory
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = DefaultCachePrefix
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}

	// ── Storage / Events ──────────────────────────────────────────────────────
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = DefaultStorageBucket
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = DefaultEventsTopic
	}
	if cfg.Events.BatchTimeout == 0 {
		cfg.Events.BatchTimeout = DefaultEventsBatch
	}
	if cfg.Events.WriteTimeout == 0 {
		cfg.Events.WriteTimeout = 10 * time.Second
	}

	// ── Status / Metrics / Log ────────────────────────────────────────────────
	if cfg.Status.ShutdownTimeout == 0 {
		cfg.Status.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// NewDefault returns a Config populated only with defaults.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

//Personal.AI order the ending
