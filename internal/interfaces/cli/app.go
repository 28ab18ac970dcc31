package cli

import (
	"context"
	"time"

	"github.com/biocad/anbase/internal/application/curation"
	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/cache"
	"github.com/biocad/anbase/internal/infrastructure/database/redis"
	"github.com/biocad/anbase/internal/infrastructure/messaging/kafka"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/prometheus"
	"github.com/biocad/anbase/internal/infrastructure/rcsb"
	"github.com/biocad/anbase/internal/infrastructure/storage/minio"
	statushttp "github.com/biocad/anbase/internal/interfaces/http"
	"github.com/biocad/anbase/internal/interfaces/http/handlers"
)

// app owns every component of one CLI invocation. Components are released
// in reverse order of construction.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	metrics  *prometheus.PipelineMetrics
	pipeline *curation.Pipeline
	server   *statushttp.Server

	collector prometheus.MetricsCollector
	checkers  []handlers.HealthChecker
	closers   []func() error
}

// newApp builds the pipeline described by cfg. Optional integrations (events,
// storage, status server) are wired only when enabled.
func newApp(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
		ConstLabels:          map[string]string{"run_id": cfg.Pipeline.RunID},
	}, log)
	if err != nil {
		return nil, err
	}
	a.metrics = prometheus.NewPipelineMetrics(a.collector)

	backend, err := cache.Open(cfg.Cache, cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, backend.Close)
	if cfg.Cache.Purge {
		n, err := backend.Purge(ctx)
		if err != nil {
			return nil, err
		}
		log.Info("Memo store purged", logging.Int64("entries", n))
	}

	memo := cache.New(backend.Store, log, cache.WithTTL(cfg.Cache.TTL), cache.WithRecorder(a.metrics))
	remote := rcsb.NewClient(cfg.Remote, log, rcsb.WithMemo(memo), rcsb.WithRecorder(a.metrics))

	opts := []curation.Option{curation.WithMetrics(a.metrics)}

	if backend.Client != nil {
		client := backend.Client
		opts = append(opts, curation.WithLease(redis.NewLease(client, log, cfg.Pipeline.RunID, 0)))
		a.checkers = append(a.checkers, handlers.CheckFunc{ComponentName: "redis", Fn: client.Ping})
	}

	if cfg.Events.Enabled {
		pub, err := a.openEvents(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, curation.WithPublisher(pub))
	}

	if cfg.Storage.Enabled {
		up, err := a.openStorage(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, curation.WithUploader(up))
	}

	a.pipeline = curation.New(cfg.Pipeline, remote, log, opts...)

	if cfg.Status.Addr != "" {
		if err := a.startStatus(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openEvents(ctx context.Context) (*kafka.RankingPublisher, error) {
	ev := a.cfg.Events
	if ev.CreateTopic {
		tm, err := kafka.NewTopicManager(ev.Brokers, a.log)
		if err != nil {
			return nil, err
		}
		err = tm.EnsureTopic(ctx, ev.Topic, ev.Partitions)
		tm.Close()
		if err != nil {
			return nil, err
		}
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(ev), a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Close)
	return kafka.NewRankingPublisher(producer, ev.Topic, a.cfg.Pipeline.RunID, a.metrics, a.log), nil
}

func (a *app) openStorage(ctx context.Context) (minio.ExportRepository, error) {
	client, err := minio.NewClient(ctx, a.cfg.Storage, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	a.checkers = append(a.checkers, handlers.CheckFunc{ComponentName: "storage", Fn: func(ctx context.Context) error {
		_, err := client.HealthCheck(ctx)
		return err
	}})
	return minio.NewExportRepository(client, a.metrics, a.log), nil
}

func (a *app) startStatus() error {
	router := statushttp.NewRouter(statushttp.RouterConfig{
		HealthHandler:   handlers.NewHealthHandler(Version, a.checkers...),
		ProgressHandler: handlers.NewProgressHandler(a.cfg.Pipeline.RunID, a.pipeline),
		Metrics:         a.collector.Handler(),
		Logger:          a.log,
	})
	a.server = statushttp.NewServer(a.cfg.Status.Addr, router, a.log)
	return a.server.Start()
}

// Close stops the status server, closes the pipeline ledgers and releases
// every remaining component.
func (a *app) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if a.server != nil {
		timeout := a.cfg.Status.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		keep(a.server.Stop(ctx))
		cancel()
	}
	if a.pipeline != nil {
		keep(a.pipeline.Close())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		keep(a.closers[i]())
	}
	a.closers = nil
	return first
}

//Personal.AI order the ending
