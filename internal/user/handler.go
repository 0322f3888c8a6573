// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

type Handler struct {
	service   *Service
	caller    CallerFunc
	validator *validator.Validate
}

func NewHandler(service *Service, caller CallerFunc) *Handler {
	return &Handler{
		service:   service,
		caller:    caller,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts tenant user management. member gates reads to any
// user of the resolved tenant, admin gates writes to tenant admins, and
// guard enforces the users plan limit on creation.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	member, admin, guard func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.With(member).Get("/", h.List)
		r.With(member).Get("/{userID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.With(guard).Post("/", h.Create)
			r.Put("/{userID}/role", h.UpdateRole)
			r.Post("/{userID}/deactivate", h.Deactivate)
			r.Post("/{userID}/activate", h.Activate)
			r.Delete("/{userID}", h.Delete)
		})
	})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (Caller, bool) {
	c, ok := h.caller(r.Context())
	if !ok || c.Tenant == nil {
		core.JSONError(w, core.ErrTenantRequired)
		return Caller{}, false
	}
	return c, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults on parse failure
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults on parse failure

	params := ListUsersParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Status:   Status(q.Get("status")),
	}
	if v := q.Get("role"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			role := Role(n)
			params.Role = &role
		}
	}
	params.Normalize()

	users, total, err := h.service.List(r.Context(), c.Tenant.TenantID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToUserResponseList(users), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), c.Tenant.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, notFoundAs(err))
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	u, usage, err := h.service.Create(r.Context(), c, CreateInput{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Role:          req.Role,
		IsTenantAdmin: req.IsTenantAdmin,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.JSONError(w, err)
		return
	}

	core.Created(w, map[string]any{
		"user":  ToUserResponse(u),
		"usage": usage,
	})
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	u, err := h.service.UpdateRole(r.Context(), c.Tenant.TenantID, chi.URLParam(r, "userID"), req.Role, req.IsTenantAdmin)
	if err != nil {
		core.JSONError(w, notFoundAs(err))
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "userID")
	if id == c.ActorID {
		core.BadRequest(w, "cannot deactivate yourself")
		return
	}

	u, err := h.service.Deactivate(r.Context(), c.Tenant.TenantID, id)
	if err != nil {
		core.JSONError(w, notFoundAs(err))
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	u, err := h.service.Activate(r.Context(), c.Tenant.TenantID, chi.URLParam(r, "userID"))
	if err != nil {
		core.JSONError(w, notFoundAs(err))
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.scope(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "userID")
	if id == c.ActorID {
		core.BadRequest(w, "cannot delete yourself")
		return
	}

	if err := h.service.Delete(r.Context(), c.Tenant.TenantID, id); err != nil {
		core.JSONError(w, notFoundAs(err))
		return
	}

	core.NoContent(w)
}

func notFoundAs(err error) error {
	if core.KindOf(err) == core.KindNotFound {
		return core.NotFoundError("user")
	}
	return err
}
