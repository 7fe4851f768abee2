package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/withalice/portal/internal/platform/httpx"
)

// Handler exposes the read side of the authorization core as JSON. Every
// page and menu in the front end is a caller; denials are plain boolean
// payloads, never error responses, so the UI can hide or lock elements
// without special-casing failures.
type Handler struct {
	logger     *slog.Logger
	ledger     *Ledger
	principals PrincipalSource
	metrics    DecisionRecorder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, ledger *Ledger, principals PrincipalSource, metrics DecisionRecorder) *Handler {
	return &Handler{logger: logger, ledger: ledger, principals: principals, metrics: metrics}
}

// MountRoutes registers authorization query routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/authz/permission", h.checkPermission)
	r.Get("/api/authz/exact", h.checkExactRole)
	r.Get("/api/features/verify", h.verifyFeature)
}

type decisionResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	required, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, ok := h.resolve(w, r)
	if !ok {
		return
	}
	allowed := CheckPermission(principal, required)
	h.observe("permission", allowed)
	httpx.JSON(w, http.StatusOK, decisionResponse{Allowed: allowed})
}

func (h *Handler) checkExactRole(w http.ResponseWriter, r *http.Request) {
	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, ok := h.resolve(w, r)
	if !ok {
		return
	}
	allowed := CheckExactRole(principal, role)
	h.observe("exact_role", allowed)
	httpx.JSON(w, http.StatusOK, decisionResponse{Allowed: allowed})
}

func (h *Handler) verifyFeature(w http.ResponseWriter, r *http.Request) {
	feature, err := ParseFeature(r.URL.Query().Get("feature"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal, ok := h.resolve(w, r)
	if !ok {
		return
	}
	allowed := h.ledger.VerifyAccess(principal, feature)
	h.observe("feature", allowed)
	httpx.JSON(w, http.StatusOK, decisionResponse{Allowed: allowed})
}

// resolve maps a provider fault to 503; an absent principal flows
// through as a deny, not an error.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*Principal, bool) {
	principal, err := h.principals.FromRequest(r)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("authz resolve", slog.Any("error", err))
		}
		httpx.RespondError(w, httpx.ErrUnavailable)
		return nil, false
	}
	return principal, true
}

func (h *Handler) observe(check string, allowed bool) {
	if h.metrics != nil {
		h.metrics.ObserveDecision(check, allowed)
	}
}
