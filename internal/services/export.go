package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

const snapshotContentType = "application/gzip"

// SnapshotStore receives exported board archives.
type SnapshotStore interface {
	Put(ctx context.Context, key string, r io.Reader, meta types.ObjectMeta) (string, error)
	Bucket() string
}

// Snapshot is the archived form of the board.
type Snapshot struct {
	TakenAt time.Time             `json:"takenAt"`
	Items   []types.PublicContent `json:"items"`
}

// ExportResult describes an uploaded snapshot.
type ExportResult struct {
	Bucket string
	Key    string
	Items  int
	Bytes  int
	SHA256 string
}

// ExportService writes the public board to object storage.
type ExportService struct {
	contents *ContentService
	store    SnapshotStore
	now      func() time.Time
}

func NewExportService(contents *ContentService, store SnapshotStore) *ExportService {
	return &ExportService{contents: contents, store: store, now: time.Now}
}

// Export collects every listed item into a gzipped JSON snapshot and uploads it.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	items, err := Collect(s.contents.List(ctx, ""))
	if err != nil {
		return ExportResult{}, fmt.Errorf("list content: %w", err)
	}

	takenAt := s.now().UTC()
	data, err := encodeSnapshot(Snapshot{TakenAt: takenAt, Items: items})
	if err != nil {
		return ExportResult{}, err
	}

	hash := sha256.Sum256(data)
	digest := hex.EncodeToString(hash[:])
	name := fmt.Sprintf("board-%s.json.gz", takenAt.Format("20060102T150405Z"))
	key, err := s.store.Put(ctx, name, bytes.NewReader(data), types.ObjectMeta{
		Size:        int64(len(data)),
		ContentType: snapshotContentType,
		SHA256:      digest,
		Metadata: map[string]string{
			"items":    strconv.Itoa(len(items)),
			"taken-at": takenAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("upload snapshot: %w", err)
	}

	return ExportResult{
		Bucket: s.store.Bucket(),
		Key:    key,
		Items:  len(items),
		Bytes:  len(data),
		SHA256: digest,
	}, nil
}

func encodeSnapshot(snapshot Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(snapshot); err != nil {
		_ = gz.Close()
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
