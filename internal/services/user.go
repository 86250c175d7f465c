package services

import (
	"context"
	"errors"
	"strings"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/store"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// PasswordHasher creates and verifies password credentials.
type PasswordHasher interface {
	Create(password string) (types.AuthRecord, error)
	Verify(password string, record types.AuthRecord) bool
}

// UserService is the identity directory: registration, authentication and
// profile management.
type UserService struct {
	repo    UserRepository
	hasher  PasswordHasher
	authors AuthorCache
}

func NewUserService(repo UserRepository, hasher PasswordHasher, authors AuthorCache) *UserService {
	if authors == nil {
		authors = noopCache{}
	}
	return &UserService{repo: repo, hasher: hasher, authors: authors}
}

// Registration is the input of Register.
type Registration struct {
	Username       string
	Email          string
	Password       string
	PasswordVerify string
}

// ProfileUpdate describes a requested profile change. Nil fields are left
// unchanged. TargetID selects another account (Admin only); empty means self.
type ProfileUpdate struct {
	TargetID        string
	Username        *string
	Email           *string
	Password        *string
	Role            *types.Role
	CurrentPassword string
	CurrentEmail    string
}

func (u ProfileUpdate) empty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil && u.Role == nil
}

// UserQuery selects an account by exactly one of its keys; all empty means self.
type UserQuery struct {
	ID       string
	Username string
	Email    string
}

// DeleteRequest is the input of Delete. Password re-proves the actor.
type DeleteRequest struct {
	Password string
	Target   UserQuery
}

// Profile is the view of an account returned by Lookup. Email is only set
// for the account itself and for admins.
type Profile struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email,omitempty"`
	Role     types.Role `json:"role"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates a User account.
func (s *UserService) Register(ctx context.Context, r Registration) (types.User, error) {
	username := strings.TrimSpace(r.Username)
	email := normalizeEmail(r.Email)
	if username == "" || email == "" || r.Password == "" || r.PasswordVerify == "" {
		return types.User{}, apperr.InvalidInput("Missing required fields.")
	}
	if len(r.Password) < minPasswordLength {
		return types.User{}, apperr.InvalidInput("Password must be at least %d characters.", minPasswordLength)
	}
	if r.Password != r.PasswordVerify {
		return types.User{}, apperr.InvalidInput("Passwords do not match.")
	}
	return s.create(ctx, username, email, r.Password, types.RoleUser)
}

func (s *UserService) create(ctx context.Context, username, email, password string, role types.Role) (types.User, error) {
	if err := s.ensureFree(ctx, "", &username, &email); err != nil {
		return types.User{}, err
	}

	record, err := s.hasher.Create(password)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username: username,
		Email:    email,
		Auth:     record,
		Role:     role,
	})
}

// ensureFree checks uniqueness of the given values against accounts other
// than selfID. The unique indexes still guard against races.
func (s *UserService) ensureFree(ctx context.Context, selfID string, username, email *string) error {
	if email != nil {
		existing, err := s.repo.GetByEmail(ctx, *email)
		if err == nil && existing.ID != selfID {
			return apperr.Conflict("Email already in use.")
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if username != nil {
		existing, err := s.repo.GetByUsername(ctx, *username)
		if err == nil && existing.ID != selfID {
			return apperr.Conflict("Username already in use.")
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Authenticate checks a password against the account named by login, which
// may be a username or an email.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (types.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return types.User{}, apperr.InvalidInput("Missing credentials.")
	}

	user, err := s.repo.GetByUsername(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.repo.GetByEmail(ctx, normalizeEmail(login))
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.Unauthorized("Wrong credentials.")
		}
		return types.User{}, err
	}

	if !s.hasher.Verify(password, user.Auth) {
		return types.User{}, apperr.Unauthorized("Wrong credentials.")
	}
	return user, nil
}

// current loads the actor's own account; a vanished account ends the session.
func (s *UserService) current(ctx context.Context, actorID string) (types.User, error) {
	if !types.ValidID(actorID) {
		return types.User{}, apperr.LoggedOut("User not found.")
	}
	user, err := s.repo.GetByID(ctx, strings.ToLower(actorID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.LoggedOut("User not found.")
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) find(ctx context.Context, q UserQuery) (types.User, error) {
	var (
		user types.User
		err  error
	)
	switch {
	case q.ID != "":
		id, idErr := normalizeID(q.ID)
		if idErr != nil {
			return types.User{}, idErr
		}
		user, err = s.repo.GetByID(ctx, id)
	case q.Username != "":
		user, err = s.repo.GetByUsername(ctx, strings.TrimSpace(q.Username))
	case q.Email != "":
		user, err = s.repo.GetByEmail(ctx, normalizeEmail(q.Email))
	default:
		return types.User{}, apperr.InvalidInput("No user given.")
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound("User not found.")
		}
		return types.User{}, err
	}
	return user, nil
}

// Lookup returns an account as seen by the actor.
func (s *UserService) Lookup(ctx context.Context, actorID string, q UserQuery) (Profile, error) {
	actor, err := s.current(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}

	target := actor
	if q != (UserQuery{}) {
		if target, err = s.find(ctx, q); err != nil {
			return Profile{}, err
		}
	}

	profile := Profile{ID: target.ID, Username: target.Username, Role: target.Role}
	if target.ID == actor.ID || actor.Role == types.RoleAdmin {
		profile.Email = target.Email
	}
	return profile, nil
}

// UpdateProfile changes username, email, password or role. Self-service
// changes of password and email need the current value as proof; an Admin
// acting on another account does not.
func (s *UserService) UpdateProfile(ctx context.Context, actorID string, u ProfileUpdate) (types.User, error) {
	actor, err := s.current(ctx, actorID)
	if err != nil {
		return types.User{}, err
	}

	target := actor
	self := true
	if u.TargetID != "" {
		id, err := normalizeID(u.TargetID)
		if err != nil {
			return types.User{}, err
		}
		self = id == actor.ID
	}
	if !self {
		if actor.Role != types.RoleAdmin {
			return types.User{}, apperr.Forbidden("Only admins can update other users.")
		}
		if target, err = s.find(ctx, UserQuery{ID: u.TargetID}); err != nil {
			return types.User{}, err
		}
	}

	if u.empty() {
		return types.User{}, apperr.InvalidInput("No user updates found.")
	}

	next := target

	if u.Username != nil {
		username := strings.TrimSpace(*u.Username)
		if username == "" {
			return types.User{}, apperr.InvalidInput("Username cannot be empty.")
		}
		if username == target.Username {
			return types.User{}, apperr.NoEffectiveChange("New username is identical to the current one.")
		}
		if err := s.ensureFree(ctx, target.ID, &username, nil); err != nil {
			return types.User{}, err
		}
		next.Username = username
	}

	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		if email == "" {
			return types.User{}, apperr.InvalidInput("Email cannot be empty.")
		}
		if self {
			if strings.TrimSpace(u.CurrentEmail) == "" {
				return types.User{}, apperr.InvalidInput("Current email is required to change email.")
			}
			if normalizeEmail(u.CurrentEmail) != target.Email {
				return types.User{}, apperr.Forbidden("Current email does not match.")
			}
		}
		if email == target.Email {
			return types.User{}, apperr.NoEffectiveChange("New email is identical to the current one.")
		}
		if err := s.ensureFree(ctx, target.ID, nil, &email); err != nil {
			return types.User{}, err
		}
		next.Email = email
	}

	if u.Password != nil {
		if len(*u.Password) < minPasswordLength {
			return types.User{}, apperr.InvalidInput("Password must be at least %d characters.", minPasswordLength)
		}
		if self {
			if u.CurrentPassword == "" {
				return types.User{}, apperr.InvalidInput("Current password is required to change password.")
			}
			if !s.hasher.Verify(u.CurrentPassword, target.Auth) {
				return types.User{}, apperr.Forbidden("Current password is wrong.")
			}
		}
		if s.hasher.Verify(*u.Password, target.Auth) {
			return types.User{}, apperr.NoEffectiveChange("New password is identical to the current one.")
		}
		record, err := s.hasher.Create(*u.Password)
		if err != nil {
			return types.User{}, err
		}
		next.Auth = record
	}

	if u.Role != nil {
		if actor.Role != types.RoleAdmin {
			return types.User{}, apperr.Forbidden("Only admins can change roles.")
		}
		if !u.Role.Valid() {
			return types.User{}, apperr.InvalidInput("Unknown role %q.", *u.Role)
		}
		if *u.Role == target.Role {
			return types.User{}, apperr.NoEffectiveChange("New role is identical to the current one.")
		}
		next.Role = *u.Role
	}

	saved, err := s.repo.Update(ctx, next)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound("User not found.")
		}
		return types.User{}, err
	}
	s.authors.Invalidate(ctx, saved.ID)
	return saved, nil
}

// Delete removes an account after the actor re-proves its password. Content
// authored by the account is left in place. It reports whether the actor
// deleted itself.
func (s *UserService) Delete(ctx context.Context, actorID string, req DeleteRequest) (bool, error) {
	actor, err := s.current(ctx, actorID)
	if err != nil {
		return false, err
	}
	if req.Password == "" {
		return false, apperr.InvalidInput("Password is required to delete a user.")
	}
	if !s.hasher.Verify(req.Password, actor.Auth) {
		return false, apperr.Forbidden("Wrong password.")
	}

	target := actor
	if req.Target != (UserQuery{}) {
		if target, err = s.find(ctx, req.Target); err != nil {
			return false, err
		}
	}
	if target.ID != actor.ID && actor.Role != types.RoleAdmin {
		return false, apperr.Forbidden("Only admins can delete other users.")
	}

	if err := s.repo.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, apperr.NotFound("User not found.")
		}
		return false, err
	}
	s.authors.Invalidate(ctx, target.ID)
	return target.ID == actor.ID, nil
}

// SetRole changes the role of username without any actor checks. It backs
// operator tooling only.
func (s *UserService) SetRole(ctx context.Context, username string, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, apperr.InvalidInput("Unknown role %q.", role)
	}
	user, err := s.find(ctx, UserQuery{Username: username})
	if err != nil {
		return types.User{}, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	saved, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}
	s.authors.Invalidate(ctx, saved.ID)
	return saved, nil
}

// EnsureAdmin creates an Admin account unless username is already taken.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (types.User, bool, error) {
	existing, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, false, err
	}
	if len(password) < minPasswordLength {
		return types.User{}, false, apperr.InvalidInput("Password must be at least %d characters.", minPasswordLength)
	}
	user, err := s.create(ctx, strings.TrimSpace(username), normalizeEmail(email), password, types.RoleAdmin)
	if err != nil {
		return types.User{}, false, err
	}
	return user, true, nil
}
