// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type UsageReporter interface {
	Usage(ctx context.Context, t *tenant.Tenant) ([]quota.Usage, error)
}

// Handler is the platform operator surface. Every route sits behind a
// super-admin gate.
type Handler struct {
	tenants   *tenant.Service
	users     *user.Service
	usage     UsageReporter
	urls      tenant.URLBuilder
	stats     StatsConfig
	logger    *slog.Logger
	validator *validator.Validate
}

type HandlerConfig struct {
	Tenants *tenant.Service
	Users   *user.Service
	Usage   UsageReporter
	URLs    tenant.URLBuilder
	Stats   StatsConfig
	Logger  *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tenants:   cfg.Tenants,
		users:     cfg.Users,
		usage:     cfg.Usage,
		urls:      cfg.URLs,
		stats:     cfg.Stats,
		logger:    logger,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, platform func(http.Handler) http.Handler) {
	r.Route("/platform", func(r chi.Router) {
		r.Use(platform)

		r.Get("/plans", h.ListPlans)

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{tenantID}", h.GetTenant)
			r.Patch("/{tenantID}/status", h.UpdateStatus)
			r.Put("/{tenantID}/plan", h.ChangePlan)
			r.Delete("/{tenantID}", h.PurgeTenant)
		})

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults on parse failure
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults on parse failure

	params := tenant.ListParams{
		Page:     page,
		PageSize: pageSize,
		Status:   tenant.Status(q.Get("status")),
		Search:   q.Get("search"),
	}
	params.Normalize()

	tenants, total, err := h.tenants.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]tenant.TenantResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, tenant.ToResponse(&tenants[i], h.urls))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	var (
		first   *user.User
		onboard tenant.OnboardFunc
	)
	if req.Admin != nil {
		onboard = func(ctx context.Context, tx core.DBTX, t *tenant.Tenant) error {
			u, err := h.users.CreateIn(ctx, tx, t.TenantID, user.CreateInput{
				Email:         req.Admin.Email,
				Password:      req.Admin.Password,
				Name:          req.Admin.Name,
				Role:          user.RoleAdmin,
				IsTenantAdmin: true,
			})
			if err != nil {
				return err
			}
			first = u
			return nil
		}
	}

	t, err := h.tenants.Create(r.Context(), tenant.CreateInput{
		TenantID:           req.TenantID,
		Name:               req.Name,
		PlanRef:            req.Plan,
		SubscriptionStatus: tenant.SubscriptionStatus(req.SubscriptionStatus),
		Settings:           tenant.Settings{LimitSet: req.Limits, Features: req.Features},
	}, onboard)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("tenant"))
		case errors.Is(err, core.ErrInvalidInput):
			core.JSONError(w, core.BadRequestError("tenantId must be a lowercase DNS label and not reserved"))
		case errors.Is(err, core.ErrNotFound):
			core.JSONError(w, core.NotFoundError("plan"))
		default:
			core.JSONError(w, err)
		}
		return
	}

	h.audit(r, "tenant created", t.TenantID, "plan", t.PlanRef, "with_admin", first != nil)

	resp := TenantDetailResponse{Tenant: tenant.ToResponse(t, h.urls)}
	if first != nil {
		ur := user.ToUserResponse(first)
		resp.Admin = &ur
	}
	if usage, err := h.usage.Usage(r.Context(), t); err == nil {
		resp.Usage = ToUsageLines(usage)
	}

	core.Created(w, resp)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := h.loadTenant(w, r)
	if !ok {
		return
	}

	usage, err := h.usage.Usage(r.Context(), t)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, TenantDetailResponse{
		Tenant: tenant.ToResponse(t, h.urls),
		Usage:  ToUsageLines(usage),
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	id := chi.URLParam(r, "tenantID")
	t, err := h.tenants.ChangeStatus(r.Context(), id, tenant.Status(req.Status))
	if err != nil {
		core.JSONError(w, tenantNotFoundAs(err))
		return
	}

	h.audit(r, "tenant status changed", id, "status", t.Status)
	core.OK(w, tenant.ToResponse(t, h.urls))
}

func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	var req ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	id := chi.URLParam(r, "tenantID")
	t, err := h.tenants.ChangePlan(r.Context(), id, req.Plan, tenant.SubscriptionStatus(req.SubscriptionStatus))
	if err != nil {
		core.JSONError(w, tenantNotFoundAs(err))
		return
	}

	h.audit(r, "tenant plan changed", id, "plan", t.PlanRef, "subscription", t.SubscriptionStatus)
	core.OK(w, tenant.ToResponse(t, h.urls))
}

// PurgeTenant irreversibly deletes a tenant and every row it owns. The caller
// must repeat the tenant id in ?confirm=.
func (h *Handler) PurgeTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tenantID")
	if r.URL.Query().Get("confirm") != id {
		core.BadRequest(w, "purge requires confirm=<tenantId>")
		return
	}

	if _, ok := h.loadTenant(w, r); !ok {
		return
	}

	if err := h.tenants.Purge(r.Context(), id); err != nil {
		core.JSONError(w, tenantNotFoundAs(err))
		return
	}

	h.logger.WarnContext(r.Context(), "tenant purged",
		"tenant_id", id,
		"actor_id", actorID(r),
	)
	core.NoContent(w)
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.tenants.Plans(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, ToPlanResponse(p))
	}

	core.OK(w, out)
}

func (h *Handler) loadTenant(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, bool) {
	t, err := h.tenants.Get(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		core.JSONError(w, tenantNotFoundAs(err))
		return nil, false
	}
	return t, true
}

func (h *Handler) audit(r *http.Request, msg, tenantID string, attrs ...any) {
	args := append([]any{"tenant_id", tenantID, "actor_id", actorID(r)}, attrs...)
	h.logger.InfoContext(r.Context(), msg, args...)
}

func actorID(r *http.Request) string {
	sc, _ := gate.FromContext(r.Context())
	return sc.ActorID()
}

func tenantNotFoundAs(err error) error {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, core.ErrNotFound) {
		return core.NotFoundError("tenant")
	}
	return err
}
