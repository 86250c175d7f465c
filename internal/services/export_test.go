package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"path"
	"testing"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySnapshots struct {
	objects map[string][]byte
	meta    map[string]types.ObjectMeta
	err     error
}

func (m *memorySnapshots) Put(_ context.Context, key string, r io.Reader, meta types.ObjectMeta) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != meta.Size || meta.ContentType != snapshotContentType {
		return "", errors.New("unexpected upload")
	}
	full := path.Join("snapshots", key)
	m.objects[full] = data
	m.meta[full] = meta
	return full, nil
}

func (m *memorySnapshots) Bucket() string { return "boards" }

func TestExportUploadsSnapshot(t *testing.T) {
	f := newFixture(t)
	ann := f.register(t, "ann")
	f.text(t, ann, "one")
	f.text(t, ann, "two")

	snapshots := &memorySnapshots{objects: map[string][]byte{}, meta: map[string]types.ObjectMeta{}}
	exporter := NewExportService(f.board, snapshots)
	exporter.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }

	res, err := exporter.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boards", res.Bucket)
	assert.Equal(t, "snapshots/board-20260504T030201Z.json.gz", res.Key)
	assert.Equal(t, 2, res.Items)

	data := snapshots.objects[res.Key]
	require.Len(t, data, res.Bytes)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
	meta := snapshots.meta[res.Key]
	assert.Equal(t, res.SHA256, meta.SHA256)
	assert.Equal(t, map[string]string{"items": "2", "taken-at": "2026-05-04T03:02:01Z"}, meta.Metadata)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	var snapshot Snapshot
	require.NoError(t, json.NewDecoder(gz).Decode(&snapshot))
	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, types.KindText, snapshot.Items[0].Kind)
	assert.Equal(t, "ann", snapshot.Items[0].Author.Username)
}

func TestExportUploadFailure(t *testing.T) {
	f := newFixture(t)
	exporter := NewExportService(f.board, &memorySnapshots{err: errors.New("bucket gone")})

	_, err := exporter.Export(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}
