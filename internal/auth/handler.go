// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
)

type Handler struct {
	service   *Service
	cookie    token.CookieConfig
	urls      tenant.URLBuilder
	validator *validator.Validate
}

func NewHandler(service *Service, cookie token.CookieConfig, urls tenant.URLBuilder) *Handler {
	return &Handler{
		service:   service,
		cookie:    cookie,
		urls:      urls,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the credential endpoints. tenantScoped must resolve a
// tenant for anonymous callers; authenticated must load a principal.
// throttle guards both login endpoints.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	tenantScoped, authenticated, throttle func(http.Handler) http.Handler,
) {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(throttle, tenantScoped).Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/me", h.Me)
			r.Post("/change-password", h.ChangePassword)
		})
	})

	r.With(throttle).Post("/platform/login", h.PlatformLogin)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}

	sc, _ := gate.FromContext(r.Context())
	var t *tenant.Tenant
	if sc != nil {
		t = sc.Tenant
	}

	session, err := h.service.Login(r.Context(), t, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err, "invalid email or password")
		return
	}

	token.SetCookie(w, h.cookie, session.Token)
	core.OK(w, ToTokenResponse(session, h.urls.TenantURL(session.TenantID)))
}

func (h *Handler) PlatformLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}

	session, err := h.service.PlatformLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err, "invalid email or password")
		return
	}

	token.SetCookie(w, h.cookie, session.Token)
	core.OK(w, ToTokenResponse(session, h.urls.AdminURL()))
}

func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	token.ClearCookie(w, h.cookie)
	core.NoContent(w)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sc, _ := gate.FromContext(r.Context())

	session, err := h.service.ChangePassword(r.Context(), sc, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeAuthError(w, err, "current password is incorrect")
		return
	}

	token.SetCookie(w, h.cookie, session.Token)
	core.OK(w, ToTokenResponse(session, ""))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sc, ok := gate.FromContext(r.Context())
	if !ok || !sc.Authenticated() {
		core.Unauthorized(w, "")
		return
	}

	core.OK(w, ToMeResponse(sc, h.urls))
}

func (h *Handler) decodeLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return req, false
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return req, false
	}

	return req, true
}

func writeAuthError(w http.ResponseWriter, err error, credentialsMessage string) {
	if errors.Is(err, ErrInvalidCredentials) {
		core.JSONError(w, core.UnauthorizedError(credentialsMessage))
		return
	}
	core.JSONError(w, err)
}
