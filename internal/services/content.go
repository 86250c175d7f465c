package services

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/metrics"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/store"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

const (
	defaultPageSize     = 100
	maxMutationAttempts = 3

	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// ContentRepository defines persistence operations for content items.
type ContentRepository interface {
	GetByID(ctx context.Context, id string) (types.Content, error)
	ListPage(ctx context.Context, kind types.Kind, after string, limit int) ([]types.Content, error)
	Create(ctx context.Context, item types.Content) (types.Content, error)
	Update(ctx context.Context, item types.Content, expected int64) (types.Content, error)
	Delete(ctx context.Context, id string) error
}

// AuthorCache caches public author projections for read paths. It is never
// consulted for authorization.
type AuthorCache interface {
	Get(ctx context.Context, id string) (types.PublicUser, bool)
	Set(ctx context.Context, user types.PublicUser)
	Invalidate(ctx context.Context, id string)
}

// MutationRecorder observes content mutation outcomes.
type MutationRecorder interface {
	Mutation(kind, operation, outcome string)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (types.PublicUser, bool) { return types.PublicUser{}, false }
func (noopCache) Set(context.Context, types.PublicUser)                {}
func (noopCache) Invalidate(context.Context, string)                   {}

type noopRecorder struct{}

func (noopRecorder) Mutation(string, string, string) {}

// ContentOption configures a ContentService.
type ContentOption func(*ContentService)

// WithAuthorCache sets the cache used when rendering authors.
func WithAuthorCache(cache AuthorCache) ContentOption {
	return func(s *ContentService) {
		if cache != nil {
			s.authors = cache
		}
	}
}

// WithMutationRecorder sets the observer of mutation outcomes.
func WithMutationRecorder(recorder MutationRecorder) ContentOption {
	return func(s *ContentService) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithClock overrides the time source for edit metadata.
func WithClock(now func() time.Time) ContentOption {
	return func(s *ContentService) { s.now = now }
}

// WithPageSize sets how many rows a listing reads per storage round trip.
func WithPageSize(size int) ContentOption {
	return func(s *ContentService) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// ContentService implements the ownership-aware mutation protocol over all
// content variants.
type ContentService struct {
	contents ContentRepository
	users    UserRepository
	authors  AuthorCache
	recorder MutationRecorder
	now      func() time.Time
	pageSize int
}

func NewContentService(contents ContentRepository, users UserRepository, opts ...ContentOption) *ContentService {
	s := &ContentService{
		contents: contents,
		users:    users,
		authors:  noopCache{},
		recorder: noopRecorder{},
		now:      time.Now,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new item authored by the actor. The author and creation
// time are always set here.
func (s *ContentService) Create(ctx context.Context, actorID string, payload types.Payload) (types.Content, error) {
	if payload == nil {
		return types.Content{}, apperr.InvalidInput("No content.")
	}
	kind := string(payload.Kind())
	if err := payload.Validate(); err != nil {
		return types.Content{}, apperr.InvalidInput("%s", err.Error())
	}

	actor, err := resolveActor(ctx, s.users, actorID)
	if err != nil {
		return types.Content{}, err
	}

	if path, ok := payload.(types.Path); ok {
		path.OriginPos = path.Pos
		if path.Version == "" {
			path.Version = types.DefaultPathVersion
		}
		payload = path
	}

	item, err := s.contents.Create(ctx, types.Content{
		ID:       types.NewID(),
		AuthorID: actor.ID,
		EditInfo: types.EditInfo{CreatedAt: s.now().UTC()},
		Payload:  payload,
	})
	if err != nil {
		s.recorder.Mutation(kind, opCreate, metrics.OutcomeError)
		return types.Content{}, err
	}
	s.recorder.Mutation(kind, opCreate, metrics.OutcomeApplied)
	return item, nil
}

// UpdateText applies a partial update to a text item.
func (s *ContentService) UpdateText(ctx context.Context, actorID, id string, expected int64, patch types.TextPatch) (types.PublicContent, error) {
	item, err := mutate[types.Text](ctx, s, actorID, id, expected, patch)
	if err != nil {
		return types.PublicContent{}, err
	}
	return s.Render(ctx, item)
}

// UpdatePath applies a partial update to a path item.
func (s *ContentService) UpdatePath(ctx context.Context, actorID, id string, expected int64, patch types.PathPatch) (types.PublicContent, error) {
	item, err := mutate[types.Path](ctx, s, actorID, id, expected, patch)
	if err != nil {
		return types.PublicContent{}, err
	}
	return s.Render(ctx, item)
}

// UpdateImage applies a partial update to an image item.
func (s *ContentService) UpdateImage(ctx context.Context, actorID, id string, expected int64, patch types.ImagePatch) (types.PublicContent, error) {
	item, err := mutate[types.Image](ctx, s, actorID, id, expected, patch)
	if err != nil {
		return types.PublicContent{}, err
	}
	return s.Render(ctx, item)
}

// mutate is the single read-modify-write used by every variant. A non-zero
// expected revision makes the update conditional on the client's view.
// A write that loses a race against another editor is retried on fresh state.
func mutate[S types.Diffable[S, P], P types.Patch](ctx context.Context, s *ContentService, actorID, id string, expected int64, patch P) (types.Content, error) {
	var zero S
	kind := zero.Kind()

	if patch.Empty() {
		return types.Content{}, apperr.InvalidInput("No %s updates found.", kind)
	}
	if err := patch.Validate(); err != nil {
		return types.Content{}, apperr.InvalidInput("%s", err.Error())
	}

	id, err := normalizeID(id)
	if err != nil {
		return types.Content{}, err
	}

	actor, err := resolveActor(ctx, s.users, actorID)
	if err != nil {
		return types.Content{}, err
	}

	for range maxMutationAttempts {
		item, err := s.contents.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.Content{}, apperr.NotFound("No %s item found with id: %s.", kind, id)
			}
			return types.Content{}, err
		}
		current, ok := item.Payload.(S)
		if !ok {
			return types.Content{}, apperr.NotFound("No %s item found with id: %s.", kind, id)
		}

		if err := Authorize(actor, item); err != nil {
			s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeForbidden)
			return types.Content{}, err
		}
		if expected > 0 && item.Revision != expected {
			s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeConflict)
			return types.Content{}, apperr.Conflict("%s item was changed by someone else (revision %d, expected %d).", kindLabel(kind), item.Revision, expected)
		}

		diff := current.Diff(patch)
		if diff.Empty() {
			s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeNoop)
			return types.Content{}, apperr.NoEffectiveChange("New %s values are identical to the current ones.", kind)
		}

		now := s.now().UTC()
		next := item
		next.Payload = current.Apply(diff)
		next.EditInfo.Edited = true
		next.EditInfo.LastEditAt = &now
		next.EditInfo.LastEditBy = actor.ID

		saved, err := s.contents.Update(ctx, next, item.Revision)
		if errors.Is(err, store.ErrStaleRevision) {
			continue
		}
		if err != nil {
			s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeError)
			return types.Content{}, err
		}
		s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeApplied)
		return saved, nil
	}

	s.recorder.Mutation(string(kind), opUpdate, metrics.OutcomeConflict)
	return types.Content{}, apperr.Conflict("%s item is being edited concurrently, try again.", kindLabel(kind))
}

// Delete removes an item of the given kind outright.
func (s *ContentService) Delete(ctx context.Context, actorID string, kind types.Kind, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}

	actor, err := resolveActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}

	item, err := s.get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor, item); err != nil {
		s.recorder.Mutation(string(kind), opDelete, metrics.OutcomeForbidden)
		return err
	}

	if err := s.contents.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("No %s item found with id: %s.", kind, id)
		}
		s.recorder.Mutation(string(kind), opDelete, metrics.OutcomeError)
		return err
	}
	s.recorder.Mutation(string(kind), opDelete, metrics.OutcomeApplied)
	return nil
}

// Get returns the public projection of one item. An empty kind matches any.
func (s *ContentService) Get(ctx context.Context, kind types.Kind, id string) (types.PublicContent, error) {
	id, err := normalizeID(id)
	if err != nil {
		return types.PublicContent{}, err
	}
	item, err := s.get(ctx, kind, id)
	if err != nil {
		return types.PublicContent{}, err
	}
	return s.Render(ctx, item)
}

func (s *ContentService) get(ctx context.Context, kind types.Kind, id string) (types.Content, error) {
	label := kind
	if label == "" {
		label = "content"
	}
	item, err := s.contents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Content{}, apperr.NotFound("No %s item found with id: %s.", label, id)
		}
		return types.Content{}, err
	}
	if kind != "" && item.Kind() != kind {
		return types.Content{}, apperr.NotFound("No %s item found with id: %s.", label, id)
	}
	return item, nil
}

// Render builds the public projection of item. An author that no longer
// exists is rendered by id only.
func (s *ContentService) Render(ctx context.Context, item types.Content) (types.PublicContent, error) {
	author, ok, err := s.author(ctx, item.AuthorID)
	if err != nil {
		return types.PublicContent{}, err
	}
	if !ok {
		author = types.PublicUser{ID: item.AuthorID}
	}
	return types.Project(item, author), nil
}

func (s *ContentService) author(ctx context.Context, id string) (types.PublicUser, bool, error) {
	if cached, ok := s.authors.Get(ctx, id); ok {
		return cached, true, nil
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PublicUser{}, false, nil
		}
		return types.PublicUser{}, false, err
	}
	public := user.Public()
	s.authors.Set(ctx, public)
	return public, true, nil
}

// List lazily yields the public projection of every item of kind (all kinds
// when empty), in id order. Items whose author cannot be resolved are
// skipped. Each range over the sequence starts a fresh listing.
func (s *ContentService) List(ctx context.Context, kind types.Kind) iter.Seq2[types.PublicContent, error] {
	return func(yield func(types.PublicContent, error) bool) {
		resolved := make(map[string]*types.PublicUser)
		after := ""
		for {
			page, err := s.contents.ListPage(ctx, kind, after, s.pageSize)
			if err != nil {
				yield(types.PublicContent{}, err)
				return
			}

			for _, item := range page {
				author, seen := resolved[item.AuthorID]
				if !seen {
					public, ok, err := s.author(ctx, item.AuthorID)
					if err != nil {
						yield(types.PublicContent{}, err)
						return
					}
					if ok {
						author = &public
					}
					resolved[item.AuthorID] = author
				}
				if author == nil {
					continue
				}
				if !yield(types.Project(item, *author), nil) {
					return
				}
			}

			if len(page) < s.pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

// Collect drains a listing into a slice.
func Collect(seq iter.Seq2[types.PublicContent, error]) ([]types.PublicContent, error) {
	items := make([]types.PublicContent, 0)
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
