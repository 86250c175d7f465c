package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contentCols = []string{"id", "kind", "author_id", "data", "created_at", "edited", "last_edit_at", "last_edit_by", "revision"}

const (
	itemID   = "65a0c0de0123456789abcdef"
	authorID = "65a0c0de00000000000000aa"
	editorID = "65a0c0de00000000000000bb"
)

func newMock(t *testing.T) (*ContentRepository, *UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewContentRepository(db), NewUserRepository(db), mock
}

func TestContentGetByID(t *testing.T) {
	repo, _, mock := newMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	edited := created.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contents WHERE id = $1")).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows(contentCols).AddRow(
			itemID, "path", authorID, []byte(`{"path":"M0 0","pos":{"x":3,"y":4},"originPos":{"x":1,"y":2}}`),
			created, true, edited, editorID, int64(3),
		))

	item, err := repo.GetByID(context.Background(), itemID)
	require.NoError(t, err)

	assert.Equal(t, types.KindPath, item.Kind())
	assert.Equal(t, types.Path{
		Path:      "M0 0",
		Pos:       types.Coords{X: 3, Y: 4},
		OriginPos: types.Coords{X: 1, Y: 2},
		Version:   types.DefaultPathVersion,
	}, item.Payload)
	assert.Equal(t, int64(3), item.Revision)
	assert.True(t, item.EditInfo.Edited)
	require.NotNil(t, item.EditInfo.LastEditAt)
	assert.True(t, edited.Equal(*item.EditInfo.LastEditAt))
	assert.Equal(t, editorID, item.EditInfo.LastEditBy)
}

func TestContentGetByIDNotFound(t *testing.T) {
	repo, _, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM contents WHERE id = $1")).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows(contentCols))

	_, err := repo.GetByID(context.Background(), itemID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentCreate(t *testing.T) {
	repo, _, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contents")).
		WithArgs(sqlmock.AnyArg(), "text", authorID, `{"body":"hello","pos":{"x":10,"y":20}}`, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item, err := repo.Create(context.Background(), types.Content{
		AuthorID: authorID,
		Payload:  types.Text{Body: "hello", Pos: types.Coords{X: 10, Y: 20}},
	})
	require.NoError(t, err)

	assert.True(t, types.ValidID(item.ID))
	assert.Equal(t, int64(1), item.Revision)
	assert.False(t, item.EditInfo.CreatedAt.IsZero())
}

func TestContentUpdateChecksRevision(t *testing.T) {
	repo, _, mock := newMock(t)
	now := time.Now().UTC()
	item := types.Content{
		ID:       itemID,
		AuthorID: authorID,
		EditInfo: types.EditInfo{Edited: true, LastEditAt: &now, LastEditBy: editorID},
		Payload:  types.Text{Body: "goodbye"},
	}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $5 AND revision = $6")).
		WithArgs(sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg(), itemID, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $5 AND revision = $6")).
		WithArgs(sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg(), itemID, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.Update(context.Background(), item, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Revision)

	_, err = repo.Update(context.Background(), item, 1)
	assert.ErrorIs(t, err, ErrStaleRevision)
}

func TestContentDelete(t *testing.T) {
	repo, _, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contents")).
		WithArgs(itemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contents")).
		WithArgs(itemID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), itemID))
	assert.ErrorIs(t, repo.Delete(context.Background(), itemID), ErrNotFound)
}

func TestContentListPage(t *testing.T) {
	repo, _, mock := newMock(t)
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id")).
		WithArgs("image", "", int64(2)).
		WillReturnRows(sqlmock.NewRows(contentCols).
			AddRow(itemID, "image", authorID, []byte(`{"url":"https://example.com/a.png","pos":{"x":0,"y":0},"scale":{"x":1,"y":1}}`), created, false, nil, nil, int64(1)).
			AddRow(editorID, "image", authorID, []byte(`{"url":"https://example.com/b.png","pos":{"x":0,"y":0},"scale":{"x":2,"y":2}}`), created, false, nil, nil, int64(1)))

	items, err := repo.ListPage(context.Background(), types.KindImage, "", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/b.png", items[1].Payload.(types.Image).URL)
	assert.Nil(t, items[0].EditInfo.LastEditAt)
}
