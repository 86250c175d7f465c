// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer. Errors are built with oops so they carry a code and context;
// classification always goes through errors.Is on the sentinels below.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrNoEffectiveChange = errors.New("no effective change")
)

// Error codes reported to clients alongside the message.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeNoEffectiveChange = "NO_EFFECTIVE_CHANGE"
	CodeInternal          = "INTERNAL"
)

const (
	keyMessage     = "message"
	keyForceLogOut = "forceLogOut"
)

type class struct {
	sentinel error
	code     string
	status   int
}

var classes = []class{
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, CodeForbidden, http.StatusForbidden},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrConflict, CodeConflict, http.StatusConflict},
	{ErrNoEffectiveChange, CodeNoEffectiveChange, http.StatusUnprocessableEntity},
}

func build(sentinel error, code, format string, args ...any) error {
	return oops.Code(code).
		With(keyMessage, fmt.Sprintf(format, args...)).
		Wrap(sentinel)
}

// InvalidInput reports malformed or missing request data.
func InvalidInput(format string, args ...any) error {
	return build(ErrInvalidInput, CodeInvalidInput, format, args...)
}

// Unauthorized reports a missing or invalid session.
func Unauthorized(format string, args ...any) error {
	return build(ErrUnauthorized, CodeUnauthorized, format, args...)
}

// LoggedOut reports an invalid session that the client must discard.
func LoggedOut(format string, args ...any) error {
	return oops.Code(CodeUnauthorized).
		With(keyMessage, fmt.Sprintf(format, args...)).
		With(keyForceLogOut, true).
		Wrap(ErrUnauthorized)
}

// Forbidden reports an authenticated actor lacking the required rights.
func Forbidden(format string, args ...any) error {
	return build(ErrForbidden, CodeForbidden, format, args...)
}

// NotFound reports a missing target.
func NotFound(format string, args ...any) error {
	return build(ErrNotFound, CodeNotFound, format, args...)
}

// Conflict reports a uniqueness violation or a stale revision.
func Conflict(format string, args ...any) error {
	return build(ErrConflict, CodeConflict, format, args...)
}

// NoEffectiveChange reports an update whose values all equal the stored ones.
func NoEffectiveChange(format string, args ...any) error {
	return build(ErrNoEffectiveChange, CodeNoEffectiveChange, format, args...)
}

// Status maps err to an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}

// Code returns the client-facing code of err.
func Code(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return CodeInternal
}

// Message returns the client-facing message of err. Unclassified errors get a
// generic message so storage details never leak.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "Internal server error."
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if msg, ok := oopsErr.Context()[keyMessage].(string); ok && msg != "" {
			return msg
		}
	}
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c.sentinel.Error()
		}
	}
	return err.Error()
}

// ForceLogOut reports whether the client must clear its session cookie.
func ForceLogOut(err error) bool {
	if !errors.Is(err, ErrUnauthorized) {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	force, _ := oopsErr.Context()[keyForceLogOut].(bool)
	return force
}
