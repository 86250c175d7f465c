package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

// MinioClient stores snapshots in a MinIO (or any S3 compatible) bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "", strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil || exists {
		return err
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Put uploads a snapshot in a single request with a server-verified SHA-256
// checksum. Snapshots are never rewritten, so the object is marked immutable
// for caches.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, meta types.ObjectMeta) error {
	info, err := m.client.PutObject(ctx, m.bucket, key, r, meta.Size, minio.PutObjectOptions{
		ContentType:        meta.ContentType,
		ContentDisposition: contentDisposition(key),
		CacheControl:       "private, max-age=31536000, immutable",
		UserMetadata:       userMetadata(meta),
		AutoChecksum:       minio.ChecksumSHA256,
	})
	if err != nil {
		return err
	}
	return checkSize(key, meta.Size, info.Size)
}

func (m *MinioClient) Bucket() string {
	return m.bucket
}
