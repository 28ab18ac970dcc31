package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
	"github.com/biocad/anbase/pkg/errors"
)

const contentTypeCSV = "text/csv"

// ExportRepository stores output tables under {prefix}/{run}/{file name}.
type ExportRepository interface {
	Upload(ctx context.Context, runID, localPath string) (*UploadResult, error)
	UploadAll(ctx context.Context, runID string, localPaths []string) ([]*UploadResult, error)
	List(ctx context.Context, runID string) ([]*ObjectMetadata, error)
}

// UploadResult describes one stored object.
type UploadResult struct {
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ObjectMetadata describes a listed object.
type ObjectMetadata struct {
	ObjectKey    string    `json:"object_key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Recorder receives one call per attempted upload.
type Recorder interface {
	Uploaded(err error)
}

type minioRepository struct {
	client   *Client
	logger   logging.Logger
	recorder Recorder
}

// NewExportRepository builds the repository on client. recorder may be nil.
func NewExportRepository(client *Client, recorder Recorder, log logging.Logger) ExportRepository {
	return &minioRepository{client: client, logger: log, recorder: recorder}
}

// ObjectKey returns the key a file of the given base name is stored under.
func (r *minioRepository) ObjectKey(runID, name string) string {
	return path.Join(r.client.config.Prefix, runID, name)
}

func (r *minioRepository) Upload(ctx context.Context, runID, localPath string) (res *UploadResult, err error) {
	defer func() {
		if r.recorder != nil {
			r.recorder.Uploaded(err)
		}
	}()

	api, err := r.client.getAPI()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "export file not found").WithDetail(localPath)
		}
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to open export file")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExport, "failed to stat export file")
	}

	key := r.ObjectKey(runID, filepath.Base(localPath))
	info, err := api.PutObject(ctx, r.client.Bucket(), key, f, st.Size(), minio.PutObjectOptions{
		ContentType:  contentTypeCSV,
		UserMetadata: map[string]string{"run-id": runID},
	})
	if err != nil {
		return nil, errors.New(errors.ErrCodeExport, "upload failed").WithDetail(key).WithCause(err)
	}

	r.logger.Info("Uploaded export",
		logging.String("bucket", r.client.Bucket()),
		logging.String("key", key),
		logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     r.client.Bucket(),
		ObjectKey:  key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

// UploadAll uploads every existing file of localPaths. Missing files are
// skipped; the first other failure stops the batch.
func (r *minioRepository) UploadAll(ctx context.Context, runID string, localPaths []string) ([]*UploadResult, error) {
	results := make([]*UploadResult, 0, len(localPaths))
	for _, p := range localPaths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			r.logger.Debug("Skipping missing export", logging.String("path", p))
			continue
		}
		res, err := r.Upload(ctx, runID, p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// List returns every object stored under the run prefix.
func (r *minioRepository) List(ctx context.Context, runID string) ([]*ObjectMetadata, error) {
	api, err := r.client.getAPI()
	if err != nil {
		return nil, err
	}
	prefix := r.ObjectKey(runID, "") + "/"
	var objects []*ObjectMetadata
	for obj := range api.ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExport, "failed to list objects")
		}
		objects = append(objects, &ObjectMetadata{ObjectKey: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return objects, nil
}

//Personal.AI order the ending
