// Package minio uploads the pipeline's output tables to an S3-compatible
// bucket.
package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the uploader needs.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

const (
	defaultRegion  = "us-east-1"
	connectTimeout = 10 * time.Second
)

// Client holds the connection and the target bucket.
type Client struct {
	api    MinIOAPI
	config config.StorageConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// ErrClientClosed is returned by operations on a closed client.
var ErrClientClosed = errors.New(errors.ErrCodeServiceUnavailable, "minio client is closed")

// NewClient connects to the endpoint of cfg and makes sure the bucket
// exists.
func NewClient(ctx context.Context, cfg config.StorageConfig, log logging.Logger) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := NewClientWithAPI(api, cfg, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API handle without contacting it.
func NewClientWithAPI(api MinIOAPI, cfg config.StorageConfig, log logging.Logger) *Client {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return &Client{api: api, config: cfg, logger: log}
}

// Bucket returns the target bucket.
func (c *Client) Bucket() string { return c.config.Bucket }

// EnsureBucket creates the target bucket when it does not exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.New(errors.ErrCodeInternal, "failed to create bucket").WithDetail(c.config.Bucket).WithCause(err)
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

func (c *Client) getAPI() (MinIOAPI, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	return c.api, nil
}

// Close marks the client closed. minio-go holds no long-lived connections of
// its own beyond the shared transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HealthStatus is the result of a health check.
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Latency      time.Duration `json:"latency"`
	BucketExists bool          `json:"bucket_exists"`
	Error        string        `json:"error,omitempty"`
}

// HealthCheck pings the endpoint and the target bucket.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	api, err := c.getAPI()
	if err != nil {
		return &HealthStatus{Error: err.Error()}, err
	}
	start := time.Now()
	exists, err := api.BucketExists(ctx, c.config.Bucket)
	status := &HealthStatus{
		Healthy:      err == nil && exists,
		Latency:      time.Since(start),
		BucketExists: exists,
	}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	if !exists {
		status.Error = "bucket " + c.config.Bucket + " missing"
	}
	return status, nil
}

//Personal.AI order the ending
