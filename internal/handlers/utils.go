package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/logging"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"go.uber.org/zap"
)

type contextKey string

const (
	contextAccountKey contextKey = "account"

	tokenCookie     = "token"
	maxRequestBytes = 1 << 20
)

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextAccountKey, id)
}

// accountIDFromContext returns the account id stored by RequireAuth.
func accountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextAccountKey).(string)
	return id
}

type ErrorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	Code         string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// responder writes JSON responses and owns the session cookie attributes.
type responder struct {
	l      *zap.Logger
	secure bool
}

func newResponder(l *zap.Logger, secureCookies bool) responder {
	if l == nil {
		l = zap.NewNop()
	}
	return responder{l: l, secure: secureCookies}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps err onto the error taxonomy. Errors that end the session
// also clear the token cookie.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logging.LogError(rs.l, "request failed", err,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	if apperr.ForceLogOut(err) {
		rs.clearSession(w)
	}
	writeJSON(w, status, ErrorResponse{ErrorMessage: apperr.Message(err), Code: apperr.Code(err)})
}

func (rs responder) sameSite() http.SameSite {
	if rs.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (rs responder) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   rs.secure,
		SameSite: rs.sameSite(),
	})
}

func (rs responder) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rs.secure,
		SameSite: rs.sameSite(),
	})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	return unmarshalBody(body, v)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.InvalidInput("Request body too large.")
		}
		return nil, apperr.InvalidInput("Invalid request body.")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, apperr.InvalidInput("Missing request body.")
	}
	return body, nil
}

func unmarshalBody(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		switch {
		case errors.Is(err, types.ErrPartialCoords):
			return apperr.InvalidInput("Coordinates need both 'x' and 'y'.")
		case errors.Is(err, types.ErrAmbiguousText):
			return apperr.InvalidInput("Please only use either 'body' or 'text'.")
		}
		return apperr.InvalidInput("Invalid request body.")
	}
	return nil
}
