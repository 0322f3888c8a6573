// AngelaMos | 2026
// tenant.go

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
)

// TenantHandler serves the resolved tenant to its own members.
type TenantHandler struct {
	usage UsageReporter
	urls  tenant.URLBuilder
}

func NewTenantHandler(usage UsageReporter, urls tenant.URLBuilder) *TenantHandler {
	return &TenantHandler{usage: usage, urls: urls}
}

// RegisterRoutes mounts /tenant. member must be a tenant-required gate.
func (h *TenantHandler) RegisterRoutes(r chi.Router, member func(http.Handler) http.Handler) {
	r.Route("/tenant", func(r chi.Router) {
		r.Use(member)
		r.Get("/", h.Current)
		r.Get("/usage", h.Usage)
	})
}

func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request) {
	t, usage, ok := h.load(w, r)
	if !ok {
		return
	}

	core.OK(w, TenantDetailResponse{
		Tenant: tenant.ToResponse(t, h.urls),
		Usage:  usage,
	})
}

func (h *TenantHandler) Usage(w http.ResponseWriter, r *http.Request) {
	_, usage, ok := h.load(w, r)
	if !ok {
		return
	}
	core.OK(w, usage)
}

func (h *TenantHandler) load(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, []UsageLine, bool) {
	sc, ok := gate.FromContext(r.Context())
	if !ok || sc.Tenant == nil {
		core.JSONError(w, core.ErrTenantRequired)
		return nil, nil, false
	}

	usage, err := h.usage.Usage(r.Context(), sc.Tenant)
	if err != nil {
		core.InternalServerError(w, err)
		return nil, nil, false
	}

	return sc.Tenant, ToUsageLines(usage), true
}
