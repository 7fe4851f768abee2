package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/withalice/portal/internal/admin"
	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/content"
	"github.com/withalice/portal/internal/identity"
	"github.com/withalice/portal/internal/nav"
	"github.com/withalice/portal/internal/observability"
	"github.com/withalice/portal/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	IdentityHandler *identity.Handler
	AuthzHandler    *authz.Handler
	ContentHandler  *content.Handler
	NavHandler      *nav.Handler
	AdminHandler    *admin.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.IdentityHandler.MountRoutes(r)
	params.AuthzHandler.MountRoutes(r)
	params.NavHandler.MountRoutes(r)
	params.ContentHandler.MountRoutes(r)
	params.AdminHandler.MountRoutes(r)

	return r
}
