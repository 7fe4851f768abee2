package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/platform/httpx"
	"github.com/withalice/portal/internal/shared"
)

// Handler wires HTTP endpoints for sign-in, sign-out and impersonation.
// The dev login and impersonation endpoints are config-gated; with both
// switches off, only sign-out and the principal view remain.
type Handler struct {
	logger             *slog.Logger
	directory          *Directory
	resolver           *Resolver
	sessionManager     *shared.SessionManager
	csrfManager        *shared.CSRFManager
	validator          *validator.Validate
	allowDevLogin      bool
	allowImpersonation bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, directory *Directory, resolver *Resolver, sessions *shared.SessionManager, csrf *shared.CSRFManager, allowDevLogin, allowImpersonation bool) *Handler {
	return &Handler{
		logger:             logger,
		directory:          directory,
		resolver:           resolver,
		sessionManager:     sessions,
		csrfManager:        csrf,
		validator:          validator.New(),
		allowDevLogin:      allowDevLogin,
		allowImpersonation: allowImpersonation,
	}
}

// MountRoutes registers identity routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/impersonate", h.handleImpersonate)
	r.Get("/api/me", h.handleMe)
}

// PrincipalView is the JSON projection of a resolved principal.
type PrincipalView struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ViewOf projects a principal for JSON responses.
func ViewOf(p *authz.Principal) PrincipalView {
	return PrincipalView{
		Email:    p.Email,
		Nickname: p.Nickname,
		Role:     string(p.Role),
		IsAdmin:  p.IsAdmin,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Principal PrincipalView `json:"principal"`
	CSRFToken string        `json:"csrfToken"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.allowDevLogin {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	user, err := h.directory.Authenticate(req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	sess.SetIdentity(user.SessionIdentity())
	token, _ := h.csrfManager.EnsureToken(sess)

	principal := authz.NewPrincipal(user.Email, user.Nickname, user.Role)
	httpx.JSON(w, http.StatusOK, loginResponse{Principal: ViewOf(principal), CSRFToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.ClearIdentity()
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

type impersonateRequest struct {
	Role string `json:"role" validate:"required"`
}

// handleImpersonate force-selects a demo principal by role. Available
// only when the debug switch is enabled; hidden otherwise.
func (h *Handler) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	if !h.allowImpersonation {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req impersonateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, ok := h.directory.ByRole(role)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	sess.SetIdentity(user.SessionIdentity())
	token, _ := h.csrfManager.EnsureToken(sess)

	principal := authz.NewPrincipal(user.Email, user.Nickname, user.Role)
	httpx.JSON(w, http.StatusOK, loginResponse{Principal: ViewOf(principal), CSRFToken: token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, err := h.resolver.FromRequest(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	if principal == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, ViewOf(principal))
}
