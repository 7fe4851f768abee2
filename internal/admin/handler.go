// Package admin backs the administrative review screen: who holds which
// role, and which feature codes were granted to whom.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/identity"
	"github.com/withalice/portal/internal/platform/httpx"
)

// GrantSink receives accepted grant mutations for write-behind
// persistence. Implementations must not block the request path on the
// durable store; the in-memory ledger is already authoritative.
type GrantSink interface {
	GrantAccepted(ctx context.Context, identity string, feature authz.Feature)
	RevokeAccepted(ctx context.Context, identity string, feature authz.Feature)
}

// Handler wires the admin endpoints. All routes require the top admin
// role; ADMIN_2 can see every feature but cannot mint grants.
type Handler struct {
	logger    *slog.Logger
	ledger    *authz.Ledger
	directory *identity.Directory
	guard     authz.Middleware
	sink      GrantSink
	validator *validator.Validate
	group     singleflight.Group
}

// NewHandler constructs a Handler instance. sink may be nil when the
// portal runs without durability.
func NewHandler(logger *slog.Logger, ledger *authz.Ledger, directory *identity.Directory, guard authz.Middleware, sink GrantSink) *Handler {
	return &Handler{
		logger:    logger,
		ledger:    ledger,
		directory: directory,
		guard:     guard,
		sink:      sink,
		validator: validator.New(),
	}
}

// MountRoutes registers admin routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(authz.RoleAdmin1))
		r.Get("/api/admin/principals", h.listPrincipals)
		r.Get("/api/admin/grants/{identity}", h.listGrants)
		r.Post("/api/admin/grants", h.grant)
		r.Delete("/api/admin/grants", h.revoke)
	})
}

type principalRow struct {
	Principal identity.PrincipalView `json:"principal"`
	Grants    []authz.Feature        `json:"grants"`
}

// listPrincipals returns every known principal with its grant set,
// ordered by ascending role. Concurrent admin tabs share one assembly
// via singleflight; the result is built fresh on the next request, so a
// grant issued in between is never hidden for long.
func (h *Handler) listPrincipals(w http.ResponseWriter, r *http.Request) {
	rows, err, _ := h.group.Do("principals", func() (any, error) {
		principals := h.directory.Principals()
		out := make([]principalRow, 0, len(principals))
		for _, p := range principals {
			out = append(out, principalRow{
				Principal: identity.ViewOf(p),
				Grants:    h.ledger.ListGrants(p.Email),
			})
		}
		return out, nil
	})
	if err != nil {
		h.logger.Error("list principals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "identity")
	if id == "" {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, h.ledger.ListGrants(id))
}

type grantRequest struct {
	Identity string `json:"identity" validate:"required,email"`
	Feature  string `json:"feature" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	req, feature, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Grant(req.Identity, feature); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if h.sink != nil {
		h.sink.GrantAccepted(r.Context(), req.Identity, feature)
	}
	h.logger.Info("feature granted",
		slog.String("identity", req.Identity),
		slog.String("feature", string(feature)),
	)
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": h.ledger.ListGrants(req.Identity)})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	req, feature, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	removed := h.ledger.Revoke(req.Identity, feature)
	if removed && h.sink != nil {
		h.sink.RevokeAccepted(r.Context(), req.Identity, feature)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"grants":  h.ledger.ListGrants(req.Identity),
	})
}

func (h *Handler) decodeGrant(w http.ResponseWriter, r *http.Request) (grantRequest, authz.Feature, bool) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return req, "", false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, "", false
	}
	feature, err := authz.ParseFeature(req.Feature)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, "", false
	}
	return req, feature, true
}
