package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSClient stores snapshots in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSClient uses CredentialsFile when set and application default
// credentials otherwise.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSClient{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

// EnsureBucket creates the bucket when missing, which needs a project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err == nil || !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.client.Bucket(g.bucket).Create(ctx, g.projectID, nil)
}

// Put uploads a snapshot. The object must not exist yet, so a second export
// in the same second cannot overwrite the first.
func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, meta types.ObjectMeta) error {
	obj := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = meta.ContentType
	w.ContentDisposition = contentDisposition(key)
	w.CacheControl = "private, max-age=31536000, immutable"
	w.Metadata = userMetadata(meta)
	// Snapshots smaller than one chunk go up in a single request.
	if meta.Size > 0 && meta.Size < googleapi.DefaultUploadChunkSize {
		w.ChunkSize = 0
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return checkSize(key, meta.Size, w.Attrs().Size)
}

func (g *GCSClient) Bucket() string {
	return g.bucket
}
