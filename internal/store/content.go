package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/samber/oops"
)

const contentColumns = `id, kind, author_id, data, created_at, edited, last_edit_at, last_edit_by, revision`

// ContentRepository persists all content variants in one table,
// discriminated by the kind column.
type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (types.Content, error) {
	var (
		item       types.Content
		kind       types.Kind
		data       []byte
		lastEditAt sql.NullTime
		lastEditBy sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&kind,
		&item.AuthorID,
		&data,
		&item.EditInfo.CreatedAt,
		&item.EditInfo.Edited,
		&lastEditAt,
		&lastEditBy,
		&item.Revision,
	); err != nil {
		return types.Content{}, err
	}

	payload, err := types.DecodePayload(kind, data)
	if err != nil {
		return types.Content{}, oops.In("store").With("content_id", item.ID).Wrap(err)
	}
	item.Payload = payload
	if lastEditAt.Valid {
		t := lastEditAt.Time
		item.EditInfo.LastEditAt = &t
	}
	item.EditInfo.LastEditBy = lastEditBy.String
	return item, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (types.Content, error) {
	const query = `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	item, err := scanContent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Content{}, ErrNotFound
		}
		return types.Content{}, oops.In("store").With("operation", "get content").With("content_id", id).Wrap(err)
	}
	return item, nil
}

// ListPage returns up to limit items with an id greater than after, ordered
// by id. An empty kind lists every variant.
func (r *ContentRepository) ListPage(ctx context.Context, kind types.Kind, after string, limit int) ([]types.Content, error) {
	if limit < 1 {
		limit = 100
	}

	const query = `
		SELECT ` + contentColumns + `
		FROM contents
		WHERE ($1 = '' OR kind = $1) AND id > $2
		ORDER BY id
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, string(kind), after, limit)
	if err != nil {
		return nil, oops.In("store").With("operation", "list content").Wrap(err)
	}
	defer rows.Close()

	items := make([]types.Content, 0, limit)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ContentRepository) Create(ctx context.Context, item types.Content) (types.Content, error) {
	data, err := json.Marshal(item.Payload)
	if err != nil {
		return types.Content{}, err
	}
	if item.ID == "" {
		item.ID = types.NewID()
	}
	if item.EditInfo.CreatedAt.IsZero() {
		item.EditInfo.CreatedAt = time.Now().UTC()
	}
	item.Revision = 1

	const query = `
		INSERT INTO contents (` + contentColumns + `)
		VALUES ($1, $2, $3, $4, $5, FALSE, NULL, NULL, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		string(item.Kind()),
		item.AuthorID,
		string(data),
		item.EditInfo.CreatedAt,
		item.Revision,
	); err != nil {
		return types.Content{}, oops.In("store").With("operation", "create content").Wrap(err)
	}
	return item, nil
}

// Update writes item only if the stored revision still equals expected.
// On success the returned item carries expected+1.
func (r *ContentRepository) Update(ctx context.Context, item types.Content, expected int64) (types.Content, error) {
	data, err := json.Marshal(item.Payload)
	if err != nil {
		return types.Content{}, err
	}

	var lastEditAt sql.NullTime
	if item.EditInfo.LastEditAt != nil {
		lastEditAt = sql.NullTime{Time: *item.EditInfo.LastEditAt, Valid: true}
	}
	lastEditBy := sql.NullString{String: item.EditInfo.LastEditBy, Valid: item.EditInfo.LastEditBy != ""}

	const query = `
		UPDATE contents
		SET data = $1,
			edited = $2,
			last_edit_at = $3,
			last_edit_by = $4,
			revision = revision + 1
		WHERE id = $5 AND revision = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		string(data),
		item.EditInfo.Edited,
		lastEditAt,
		lastEditBy,
		item.ID,
		expected,
	)
	if err != nil {
		return types.Content{}, oops.In("store").With("operation", "update content").With("content_id", item.ID).Wrap(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Content{}, err
	}
	if affected == 0 {
		return types.Content{}, ErrStaleRevision
	}
	item.Revision = expected + 1
	return item, nil
}

func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM contents WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return oops.In("store").With("operation", "delete content").With("content_id", id).Wrap(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
