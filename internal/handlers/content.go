package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/services"
	"github.com/niklasbuhl/virtual-whiteboard-backend/types"
	"go.uber.org/zap"
)

// ContentHandler serves the board items.
type ContentHandler struct {
	responder
	contents *services.ContentService
}

func NewContentHandler(contents *services.ContentService, l *zap.Logger, secureCookies bool) *ContentHandler {
	return &ContentHandler{responder: newResponder(l, secureCookies), contents: contents}
}

// ContentRouter registers the listing route and one sub-router per kind.
func ContentRouter(r chi.Router, h *ContentHandler, requireAuth func(http.Handler) http.Handler) {
	r.Get("/content", h.list(""))
	r.Route("/texts", func(r chi.Router) {
		kindRoutes(r, h, types.KindText, requireAuth, decodeText, h.contents.UpdateText)
	})
	r.Route("/paths", func(r chi.Router) {
		kindRoutes(r, h, types.KindPath, requireAuth, decodePath, h.contents.UpdatePath)
	})
	r.Route("/images", func(r chi.Router) {
		kindRoutes(r, h, types.KindImage, requireAuth, decodeImage, h.contents.UpdateImage)
	})
}

func kindRoutes[P types.Patch](
	r chi.Router,
	h *ContentHandler,
	kind types.Kind,
	requireAuth func(http.Handler) http.Handler,
	decodeCreate func(w http.ResponseWriter, r *http.Request) (types.Payload, error),
	update func(ctx context.Context, actorID, id string, expected int64, patch P) (types.PublicContent, error),
) {
	r.Get("/", h.list(kind))
	r.Get("/{contentID}", h.get(kind))
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.create(decodeCreate))
		r.Put("/{contentID}", updateHandler(h, update))
		r.Delete("/{contentID}", h.delete(kind))
	})
}

func (h *ContentHandler) list(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := services.Collect(h.contents.List(r.Context(), kind))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *ContentHandler) get(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := h.contents.Get(r.Context(), kind, chi.URLParam(r, "contentID"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *ContentHandler) create(decode func(w http.ResponseWriter, r *http.Request) (types.Payload, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decode(w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		item, err := h.contents.Create(r.Context(), accountIDFromContext(r.Context()), payload)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, CreatedResponse{
			Message: kindTitle(item.Kind()) + " created successfully.",
			ID:      item.ID,
		})
	}
}

func updateHandler[P types.Patch](
	h *ContentHandler,
	update func(ctx context.Context, actorID, id string, expected int64, patch P) (types.PublicContent, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patch, revision, err := decodeUpdate[P](w, r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		item, err := update(r.Context(), accountIDFromContext(r.Context()), chi.URLParam(r, "contentID"), revision, patch)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *ContentHandler) delete(kind types.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h.contents.Delete(r.Context(), accountIDFromContext(r.Context()), kind, chi.URLParam(r, "contentID"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeUpdate reads the patch fields and the optional expected revision
// from the same object.
func decodeUpdate[P types.Patch](w http.ResponseWriter, r *http.Request) (P, int64, error) {
	var (
		patch P
		meta  struct {
			Revision int64 `json:"revision"`
		}
	)
	body, err := readBody(w, r)
	if err != nil {
		return patch, 0, err
	}
	if err := unmarshalBody(body, &patch); err != nil {
		return patch, 0, err
	}
	if err := unmarshalBody(body, &meta); err != nil {
		return patch, 0, err
	}
	if meta.Revision < 0 {
		return patch, 0, apperr.InvalidInput("Invalid revision.")
	}
	return patch, meta.Revision, nil
}

// decodeText shares the update decoding, so "text" is accepted as an alias
// of "body" on both routes.
func decodeText(w http.ResponseWriter, r *http.Request) (types.Payload, error) {
	var req types.TextPatch
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, apperr.InvalidInput("No content.")
	}
	text := types.Text{Body: *req.Body}
	if req.Pos != nil {
		text.Pos = *req.Pos
	}
	return text, nil
}

type PathRequest struct {
	Path    string        `json:"path"`
	Pos     *types.Coords `json:"pos"`
	Version string        `json:"version"`
}

func decodePath(w http.ResponseWriter, r *http.Request) (types.Payload, error) {
	var req PathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Pos == nil {
		return nil, apperr.InvalidInput("No path position.")
	}
	return types.Path{Path: req.Path, Pos: *req.Pos, Version: req.Version}, nil
}

type ImageRequest struct {
	URL   string        `json:"url"`
	Pos   *types.Coords `json:"pos"`
	Scale *types.Coords `json:"scale"`
}

func decodeImage(w http.ResponseWriter, r *http.Request) (types.Payload, error) {
	var req ImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if req.Pos == nil {
		return nil, apperr.InvalidInput("No image position.")
	}
	if req.Scale == nil {
		return nil, apperr.InvalidInput("No image scale.")
	}
	return types.Image{URL: req.URL, Pos: *req.Pos, Scale: *req.Scale}, nil
}

func kindTitle(kind types.Kind) string {
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
