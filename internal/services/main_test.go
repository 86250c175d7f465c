package services

import (
	"context"
	"testing"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/auth"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/store"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	users    *store.MemoryUserRepository
	contents *store.MemoryContentRepository
	accounts *UserService
	board    *ContentService
}

func newFixture(t *testing.T, opts ...ContentOption) *fixture {
	t.Helper()
	users := store.NewMemoryUserRepository()
	contents := store.NewMemoryContentRepository()
	return &fixture{
		users:    users,
		contents: contents,
		accounts: NewUserService(users, auth.NewHasher(1), nil),
		board:    NewContentService(contents, users, opts...),
	}
}

func (f *fixture) register(t *testing.T, name string) types.User {
	t.Helper()
	user, err := f.accounts.Register(context.Background(), Registration{
		Username:       name,
		Email:          name + "@example.com",
		Password:       "secret-" + name,
		PasswordVerify: "secret-" + name,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) setRole(t *testing.T, user types.User, role types.Role) {
	t.Helper()
	_, err := f.accounts.SetRole(context.Background(), user.Username, role)
	require.NoError(t, err)
}

func (f *fixture) text(t *testing.T, author types.User, body string) types.Content {
	t.Helper()
	item, err := f.board.Create(context.Background(), author.ID, types.Text{Body: body, Pos: types.Coords{X: 1, Y: 2}})
	require.NoError(t, err)
	return item
}
