package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
)

// Welcome greets clients probing the API root.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Welcome to the virtual whiteboard API."})
}

// Healthz reports liveness. A nil check always reports healthy.
func Healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					ErrorMessage: "Storage unavailable.",
					Code:         apperr.CodeInternal,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
	}
}

// CORS allows credentialed requests from the configured origins. A "*"
// entry reflects any origin, since browsers reject a literal wildcard on
// credentialed requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodHead, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if slices.Contains(origins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return cors.Handler(opts)
}
