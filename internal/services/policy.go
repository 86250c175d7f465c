package services

import (
	"context"
	"errors"
	"strings"

	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

// Actor is the account performing a request, with its role as currently
// stored in the directory.
type Actor struct {
	ID   string
	Role types.Role
}

// Authorize permits a mutation of item by its author or by a Moderator or Admin.
func Authorize(actor Actor, item types.Content) error {
	if actor.ID == item.AuthorID || actor.Role.Elevated() {
		return nil
	}
	return apperr.Forbidden("%s item found, but it does not belong to you and you lack the authority to change it.", kindLabel(item.Kind()))
}

// resolveActor loads the actor's current account. Roles are never taken from
// the session token, so role changes apply to the very next request.
func resolveActor(ctx context.Context, users UserRepository, actorID string) (Actor, error) {
	if !types.ValidID(actorID) {
		return Actor{}, apperr.LoggedOut("User not found.")
	}
	user, err := users.GetByID(ctx, strings.ToLower(actorID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Actor{}, apperr.LoggedOut("User not found.")
		}
		return Actor{}, err
	}
	return Actor{ID: user.ID, Role: user.Role}, nil
}

// normalizeID validates an externally supplied identifier before any lookup.
func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !types.ValidID(id) {
		return "", apperr.InvalidInput("Invalid object id.")
	}
	return strings.ToLower(id), nil
}

func kindLabel(kind types.Kind) string {
	switch kind {
	case types.KindText:
		return "Text"
	case types.KindPath:
		return "Path"
	case types.KindImage:
		return "Image"
	default:
		return "Content"
	}
}
