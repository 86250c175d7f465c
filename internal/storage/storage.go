// Package storage uploads board snapshots to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

// userMetadata merges the digest into the caller's metadata.
func userMetadata(m types.ObjectMeta) map[string]string {
	out := make(map[string]string, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		out[k] = v
	}
	if m.SHA256 != "" {
		out["sha256"] = m.SHA256
	}
	return out
}

// contentDisposition names the download after the key's base name.
func contentDisposition(key string) string {
	return fmt.Sprintf("attachment; filename=%q", path.Base(key))
}

// checkSize reports a truncated or padded upload.
func checkSize(key string, want, got int64) error {
	if want >= 0 && want != got {
		return fmt.Errorf("upload %s: stored %d bytes, expected %d", key, got, want)
	}
	return nil
}

// Backend is an object store holding snapshot archives.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, meta types.ObjectMeta) error
	Bucket() string
}

// Storage prefixes every key with the configured directory.
type Storage struct {
	backend Backend
	prefix  string
}

func NewStorage(backend Backend, prefix string) *Storage {
	return &Storage{backend: backend, prefix: strings.Trim(prefix, "/")}
}

// New builds the backend named by cfg.Backend and makes sure its bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case config.BackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case config.BackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Backend, err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend, cfg.Prefix), nil
}

// Put uploads r under the prefixed key and returns the full key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, meta types.ObjectMeta) (string, error) {
	full := key
	if s.prefix != "" {
		full = path.Join(s.prefix, key)
	}
	if err := s.backend.Put(ctx, full, r, meta); err != nil {
		return "", err
	}
	return full, nil
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
