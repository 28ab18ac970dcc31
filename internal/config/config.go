// Package config defines the configuration structures of the anbase pipeline.
// Loading lives in loader.go, defaults in defaults.go.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// PipelineConfig holds the curation run parameters.
type PipelineConfig struct {
	RunID        string   `mapstructure:"run_id" yaml:"run_id"`
	SummaryPath  string   `mapstructure:"sabdab_summary" yaml:"sabdab_summary"`
	DataDir      string   `mapstructure:"data_dir" yaml:"data_dir"`
	OutDir       string   `mapstructure:"out_dir" yaml:"out_dir"`
	Workers      int      `mapstructure:"workers" yaml:"workers"`
	DupWorkers   int      `mapstructure:"duplicate_workers" yaml:"duplicate_workers"`
	RangeStart   int      `mapstructure:"range_start" yaml:"range_start"`
	RangeEnd     int      `mapstructure:"range_end" yaml:"range_end"` // 0 means "to the end of the table"
	Continue     bool     `mapstructure:"continue" yaml:"continue"`
	Pairing      string   `mapstructure:"pairing" yaml:"pairing"` // "uu" | "all"
	AntigenTypes []string `mapstructure:"antigen_types" yaml:"antigen_types"`

	MaxCandidates int `mapstructure:"max_candidates" yaml:"max_candidates"`
	TopCandidates int `mapstructure:"top_candidates" yaml:"top_candidates"`

	InterfaceCutoff    float64 `mapstructure:"interface_cutoff" yaml:"interface_cutoff"`
	EpitopeCutoff      float64 `mapstructure:"epitope_cutoff" yaml:"epitope_cutoff"`
	GapCutoffExtension float64 `mapstructure:"gap_cutoff_extension" yaml:"gap_cutoff_extension"`
	LongGapLength      int     `mapstructure:"long_gap_length" yaml:"long_gap_length"`
}

// RemoteConfig holds the structure-database endpoints and retry tunables.
type RemoteConfig struct {
	SearchURL string `mapstructure:"search_url" yaml:"search_url"`
	FastaURL  string `mapstructure:"fasta_url" yaml:"fasta_url"`
	FilesURL  string `mapstructure:"files_url" yaml:"files_url"`
	DataURL   string `mapstructure:"data_url" yaml:"data_url"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	CallTimeout    time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`

	IdentityCutoff float64 `mapstructure:"identity_cutoff" yaml:"identity_cutoff"`
	EValueCutoff   float64 `mapstructure:"evalue_cutoff" yaml:"evalue_cutoff"`
	Rows           int     `mapstructure:"rows" yaml:"rows"`
}

// CacheConfig selects the memo store backing remote calls.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"` // "memory" | "redis"
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Purge   bool          `mapstructure:"purge" yaml:"purge"` // drop memoized calls before the run
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// StorageConfig holds the MinIO export upload parameters.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Region    string `mapstructure:"region" yaml:"region"`
}

// EventsConfig holds the Kafka producer parameters for ranking events.
type EventsConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Brokers      []string      `mapstructure:"brokers" yaml:"brokers"`
	Topic        string        `mapstructure:"topic" yaml:"topic"`
	CreateTopic  bool          `mapstructure:"create_topic" yaml:"create_topic"`
	Partitions   int           `mapstructure:"partitions" yaml:"partitions"`
	Acks         string        `mapstructure:"acks" yaml:"acks"` // "none" | "one" | "all"
	BatchTimeout time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// StatusConfig holds the status server address. An empty Addr disables it.
type StatusConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MetricsConfig holds the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Pipeline PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Remote   RemoteConfig      `mapstructure:"remote" yaml:"remote"`
	Cache    CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Redis    RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Storage  StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Events   EventsConfig      `mapstructure:"events" yaml:"events"`
	Status   StatusConfig      `mapstructure:"status" yaml:"status"`
	Metrics  MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Log      logging.LogConfig `mapstructure:"log" yaml:"log"`
}

// OnlyUU reports whether only unbound:unbound pairings are scored.
func (c *Config) OnlyUU() bool {
	return c.Pipeline.Pairing != PairingAll
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.Workers < 1 {
		return fmt.Errorf("config: pipeline.workers must be ≥ 1, got %d", p.Workers)
	}
	if p.DupWorkers < 1 {
		return fmt.Errorf("config: pipeline.duplicate_workers must be ≥ 1, got %d", p.DupWorkers)
	}
	if p.RangeStart < 0 {
		return fmt.Errorf("config: pipeline.range_start must be ≥ 0, got %d", p.RangeStart)
	}
	if p.RangeEnd != 0 && p.RangeEnd <= p.RangeStart {
		return fmt.Errorf("config: pipeline range [%d, %d) is empty", p.RangeStart, p.RangeEnd)
	}
	switch p.Pairing {
	case PairingUU, PairingAll:
	default:
		return fmt.Errorf("config: pipeline.pairing %q is invalid; expected uu|all", p.Pairing)
	}
	if p.MaxCandidates < 1 || p.TopCandidates < 1 {
		return fmt.Errorf("config: pipeline candidate caps must be ≥ 1")
	}
	if p.InterfaceCutoff <= 0 || p.EpitopeCutoff <= 0 {
		return fmt.Errorf("config: pipeline cutoffs must be positive")
	}
	if strings.ContainsAny(p.RunID, "/\\ ") {
		return fmt.Errorf("config: pipeline.run_id %q must not contain path separators or spaces", p.RunID)
	}

	r := c.Remote
	for name, u := range map[string]string{
		"search_url": r.SearchURL, "fasta_url": r.FastaURL,
		"files_url": r.FilesURL, "data_url": r.DataURL,
	} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("config: remote.%s %q must be an http(s) URL", name, u)
		}
	}
	if r.CallTimeout <= 0 {
		return fmt.Errorf("config: remote.call_timeout must be positive")
	}
	if r.IdentityCutoff <= 0 || r.IdentityCutoff > 1 {
		return fmt.Errorf("config: remote.identity_cutoff %v is out of range (0, 1]", r.IdentityCutoff)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("config: cache.backend %q is invalid; expected memory|redis", c.Cache.Backend)
	}

	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("config: storage.endpoint and storage.bucket are required when storage is enabled")
	}
	if c.Events.Enabled && (len(c.Events.Brokers) == 0 || c.Events.Topic == "") {
		return fmt.Errorf("config: events.brokers and events.topic are required when events are enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}

//Personal.AI order the ending
