package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/services"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
)

// UserHandler serves the account endpoints.
type UserHandler struct {
	*AuthHandler
}

func NewUserHandler(a *AuthHandler) *UserHandler {
	return &UserHandler{AuthHandler: a}
}

// UserRouter registers account routes on the given router.
func UserRouter(r chi.Router, h *UserHandler) {
	r.Post("/", h.Register)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PasswordVerify string `json:"passwordVerify"`
}

type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Register creates an account and logs it in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), services.Registration{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		PasswordVerify: req.PasswordVerify,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{Message: "User created.", ID: user.ID})
}

// Get looks up an account by id, username or email query parameter, or the
// caller's own account when none is given.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	profile, err := h.users.Lookup(r.Context(), accountIDFromContext(r.Context()), services.UserQuery{
		ID:       q.Get("id"),
		Username: q.Get("username"),
		Email:    q.Get("email"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type UpdateUserRequest struct {
	ID              string      `json:"id"`
	NewUsername     *string     `json:"newUsername"`
	NewEmail        *string     `json:"newEmail"`
	NewPassword     *string     `json:"newPassword"`
	NewRole         *types.Role `json:"newRole"`
	CurrentPassword string      `json:"currentPassword"`
	CurrentEmail    string      `json:"currentEmail"`
}

// Update changes the caller's profile, or another account's for admins.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), accountIDFromContext(r.Context()), services.ProfileUpdate{
		TargetID:        req.ID,
		Username:        req.NewUsername,
		Email:           req.NewEmail,
		Password:        req.NewPassword,
		Role:            req.NewRole,
		CurrentPassword: req.CurrentPassword,
		CurrentEmail:    req.CurrentEmail,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.Profile{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role})
}

type DeleteUserRequest struct {
	Password string `json:"password"`
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Delete removes an account after a password check. Deleting oneself also
// ends the session.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	self, err := h.users.Delete(r.Context(), accountIDFromContext(r.Context()), services.DeleteRequest{
		Password: req.Password,
		Target:   services.UserQuery{ID: req.ID, Username: req.Username, Email: req.Email},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if self {
		h.clearSession(w)
	}
	w.WriteHeader(http.StatusNoContent)
}
