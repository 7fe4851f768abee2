package content

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/platform/httpx"
)

// Handler exposes the community board over JSON.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	principals authz.PrincipalSource
	metrics    authz.DecisionRecorder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, principals authz.PrincipalSource, metrics authz.DecisionRecorder) *Handler {
	return &Handler{logger: logger, service: service, principals: principals, metrics: metrics}
}

// MountRoutes registers board routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/posts", h.list)
	r.Post("/api/posts", h.create)
	r.Get("/api/posts/{id}", h.get)
	r.Post("/api/posts/{id}/unlock", h.unlock)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	category := Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown category")
		return
	}
	viewer, ok := h.resolve(w, r)
	if !ok {
		return
	}
	rows, err := h.service.List(r.Context(), category, viewer)
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	post, err := h.service.Create(r.Context(), input, viewer)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		switch {
		case errors.Is(err, ErrUnauthenticated):
			httpx.RespondError(w, httpx.ErrUnauthorized)
		case errors.As(err, &fieldErrs):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fieldErrs.Error())
		default:
			h.logger.Error("create post", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, Summary{
		ID:        post.ID,
		Title:     post.Title,
		Author:    post.Author,
		Category:  post.Category,
		Secret:    post.Secret,
		Views:     post.Views,
		CreatedAt: post.CreatedAt,
	})
}

type detailResponse struct {
	Unlocked bool   `json:"unlocked"`
	Post     Detail `json:"post"`
}

// get returns the post detail. A secret post the viewer cannot open
// comes back with unlocked=false and no body, never as an error: the
// front end renders a password prompt, not a failure dialog.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	viewer, ok := h.resolve(w, r)
	if !ok {
		return
	}
	detail, unlocked, err := h.service.Reveal(r.Context(), id, r.URL.Query().Get("password"), viewer)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.observe(unlocked)
	httpx.JSON(w, http.StatusOK, detailResponse{Unlocked: unlocked, Post: detail})
}

type unlockRequest struct {
	Password string `json:"password"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req unlockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	viewer, ok := h.resolve(w, r)
	if !ok {
		return
	}
	detail, unlocked, err := h.service.Reveal(r.Context(), id, req.Password, viewer)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.observe(unlocked)
	httpx.JSON(w, http.StatusOK, detailResponse{Unlocked: unlocked, Post: detail})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*authz.Principal, bool) {
	viewer, err := h.principals.FromRequest(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return nil, false
	}
	return viewer, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrPostNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error("reveal post", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) observe(unlocked bool) {
	if h.metrics != nil {
		h.metrics.ObserveDecision("secret", unlocked)
	}
}
