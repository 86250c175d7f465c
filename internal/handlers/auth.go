package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/auth"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/services"
	"go.uber.org/zap"
)

// AuthHandler provides cookie based session endpoints.
type AuthHandler struct {
	responder
	users  *services.UserService
	tokens *auth.TokenCodec
}

func NewAuthHandler(users *services.UserService, tokens *auth.TokenCodec, l *zap.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		responder: newResponder(l, secureCookies),
		users:     users,
		tokens:    tokens,
	}
}

// AuthRouter registers session routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Get("/loggedIn", h.LoggedIn)
}

// RequireAuth validates the token cookie and injects the account id into the
// request context. Whether the account still exists is checked by the service.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(tokenCookie)
		if err != nil || cookie.Value == "" {
			h.writeError(w, r, apperr.Unauthorized("Unauthorized."))
			return
		}

		accountID, err := h.tokens.Validate(cookie.Value)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), accountID)))
	})
}

// startSession issues a token for accountID and sets it as the cookie.
func (h *AuthHandler) startSession(w http.ResponseWriter, accountID string) error {
	token, err := h.tokens.Issue(accountID)
	if err != nil {
		return err
	}
	h.setSession(w, token)
	return nil
}

type LoginRequest struct {
	User     string `json:"user"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	login := strings.TrimSpace(req.User)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}

	user, err := h.users.Authenticate(r.Context(), login, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Authorized!", ID: user.ID})
}

// Logout always succeeds and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out."})
}

// LoggedIn reports whether the request carries a valid token.
func (h *AuthHandler) LoggedIn(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(tokenCookie)
	if err != nil {
		writeJSON(w, http.StatusOK, false)
		return
	}
	_, err = h.tokens.Validate(cookie.Value)
	writeJSON(w, http.StatusOK, err == nil)
}
