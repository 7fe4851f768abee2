package nav

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/platform/httpx"
)

// Handler serves the visible navigation tree for the current principal.
type Handler struct {
	principals authz.PrincipalSource
}

// NewHandler constructs a Handler instance.
func NewHandler(principals authz.PrincipalSource) *Handler {
	return &Handler{principals: principals}
}

// MountRoutes registers navigation routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/nav", h.menu)
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	principal, err := h.principals.FromRequest(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, Visible(Menu(), principal))
}
