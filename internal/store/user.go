package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"github.com/samber/oops"
)

const userColumns = `id, username, email, auth_hash, auth_salt, auth_iterations, role, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Auth.Hash,
		&user.Auth.Salt,
		&user.Auth.Iterations,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, oops.In("store").With("operation", "get user").Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = types.NewID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.Auth.Hash,
		user.Auth.Salt,
		user.Auth.Iterations,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return types.User{}, userConflict(constraint)
		}
		return types.User{}, oops.In("store").With("operation", "create user").Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			auth_hash = $3,
			auth_salt = $4,
			auth_iterations = $5,
			role = $6,
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Auth.Hash,
		user.Auth.Salt,
		user.Auth.Iterations,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return types.User{}, userConflict(constraint)
		}
		return types.User{}, oops.In("store").With("operation", "update user").With("user_id", user.ID).Wrap(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return oops.In("store").With("operation", "delete user").With("user_id", id).Wrap(err)
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
