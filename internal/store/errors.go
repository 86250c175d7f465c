package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = apperr.ErrNotFound

	// ErrStaleRevision is returned when a versioned update lost a race.
	ErrStaleRevision = errors.New("stale revision")
)

// uniqueViolation reports the violated constraint of a unique-index error.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func userConflict(constraint string) error {
	switch constraint {
	case "users_email_key":
		return apperr.Conflict("Email already in use.")
	case "users_username_key":
		return apperr.Conflict("Username already in use.")
	default:
		return apperr.Conflict("Account already exists.")
	}
}
