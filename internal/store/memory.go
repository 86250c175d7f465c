package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

// MemoryUserRepository keeps users in process memory. It enforces the same
// uniqueness rules as the users table.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]types.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]types.User)}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) find(match func(types.User) bool) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if match(user) {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

// conflict must be called with the lock held.
func (r *MemoryUserRepository) conflict(user types.User) error {
	for id, other := range r.users {
		if id == user.ID {
			continue
		}
		if other.Email == user.Email {
			return userConflict("users_email_key")
		}
		if other.Username == user.Username {
			return userConflict("users_username_key")
		}
	}
	return nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = types.NewID()
	}
	if err := r.conflict(user); err != nil {
		return types.User{}, err
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return types.User{}, ErrNotFound
	}
	if err := r.conflict(user); err != nil {
		return types.User{}, err
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// MemoryContentRepository keeps content items in process memory with the
// same revision semantics as the contents table.
type MemoryContentRepository struct {
	mu    sync.RWMutex
	items map[string]types.Content
}

func NewMemoryContentRepository() *MemoryContentRepository {
	return &MemoryContentRepository{items: make(map[string]types.Content)}
}

func (r *MemoryContentRepository) GetByID(_ context.Context, id string) (types.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return types.Content{}, ErrNotFound
	}
	return cloneContent(item), nil
}

func (r *MemoryContentRepository) ListPage(_ context.Context, kind types.Kind, after string, limit int) ([]types.Content, error) {
	if limit < 1 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]types.Content, 0, len(r.items))
	for id, item := range r.items {
		if id <= after || (kind != "" && item.Kind() != kind) {
			continue
		}
		items = append(items, cloneContent(item))
	}
	slices.SortFunc(items, func(a, b types.Content) int { return strings.Compare(a.ID, b.ID) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *MemoryContentRepository) Create(_ context.Context, item types.Content) (types.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = types.NewID()
	}
	if item.EditInfo.CreatedAt.IsZero() {
		item.EditInfo.CreatedAt = time.Now().UTC()
	}
	item.Revision = 1
	r.items[item.ID] = cloneContent(item)
	return item, nil
}

func (r *MemoryContentRepository) Update(_ context.Context, item types.Content, expected int64) (types.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok || current.Revision != expected {
		return types.Content{}, ErrStaleRevision
	}
	item.Revision = expected + 1
	item.AuthorID = current.AuthorID
	item.EditInfo.CreatedAt = current.EditInfo.CreatedAt
	r.items[item.ID] = cloneContent(item)
	return item, nil
}

func (r *MemoryContentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// cloneContent detaches the LastEditAt pointer from the stored copy.
func cloneContent(item types.Content) types.Content {
	if item.EditInfo.LastEditAt != nil {
		t := *item.EditInfo.LastEditAt
		item.EditInfo.LastEditAt = &t
	}
	return item
}
