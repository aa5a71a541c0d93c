package filestore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"boxstore/internal/config"
	"boxstore/internal/ids"
)

// MinioDriver stores each file as an object keyed by {boxId}/{id} in an
// S3-compatible bucket (MinIO, AWS S3, etc.); content type travels as
// object metadata. Consistency guarantees are whatever the remote
// service provides. Safe for concurrent use.
type MinioDriver struct {
	client *minio.Client
	bucket string
	policy SecurityPolicy
}

var _ Driver = (*MinioDriver)(nil)

// NewMinio creates the driver, validates connectivity and ensures the
// bucket exists (creating it if missing).
func NewMinio(cfg config.MinIOConfig, policy SecurityPolicy) (*MinioDriver, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if policy == nil {
		policy = AllowAll
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	d := &MinioDriver{client: cli, bucket: cfg.Bucket, policy: policy}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return d, nil
}

func (d *MinioDriver) CheckSecurity(ctx context.Context, boxID, fileID string, write bool) bool {
	return d.policy(ctx, boxID, fileID, write)
}

func objectKey(boxID, id string) string {
	return boxID + "/" + id
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

func (d *MinioDriver) Save(ctx context.Context, boxID string, r io.Reader, contentType string, size int64) (FileInfo, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	id := ids.New()

	info, err := d.client.PutObject(ctx, d.bucket, objectKey(boxID, id), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("put object: %w", err)
	}
	return FileInfo{ID: id, ContentType: contentType, Size: info.Size}, nil
}

func (d *MinioDriver) Get(ctx context.Context, boxID, id string) (*File, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, objectKey(boxID, id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces missing keys before streaming.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}

	contentType := st.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &File{
		FileInfo: FileInfo{ID: id, ContentType: contentType, Size: st.Size},
		Content:  obj,
	}, nil
}

func (d *MinioDriver) List(ctx context.Context, boxID string) ([]FileInfo, error) {
	prefix := boxID + "/"

	infos := make([]FileInfo, 0)
	for obj := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		id := strings.TrimPrefix(obj.Key, prefix)
		if id == "" {
			continue
		}
		infos = append(infos, FileInfo{ID: id, ContentType: obj.ContentType, Size: obj.Size})
	}
	return infos, nil
}

func (d *MinioDriver) Delete(ctx context.Context, boxID, id string) (int, error) {
	key := objectKey(boxID, id)

	// RemoveObject succeeds on absent keys; stat first to report the
	// at-most-one-result count faithfully.
	if _, err := d.client.StatObject(ctx, d.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat object: %w", err)
	}
	if err := d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return 0, fmt.Errorf("remove object: %w", err)
	}
	return 1, nil
}
