// AngelaMos | 2026
// handler.go

package emulation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
)

type Handler struct {
	manager *Manager
	cookie  token.CookieConfig
	urls    tenant.URLBuilder
}

func NewHandler(manager *Manager, cookie token.CookieConfig, urls tenant.URLBuilder) *Handler {
	return &Handler{manager: manager, cookie: cookie, urls: urls}
}

type SessionResponse struct {
	Token       string    `json:"token"`
	TenantID    string    `json:"tenantId,omitempty"`
	IsEmulating bool      `json:"isEmulating"`
	ExpiresAt   time.Time `json:"expiresAt"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
}

// RegisterRoutes mounts the emulation endpoints. platform must admit only
// super admin contexts, emulating or not.
func (h *Handler) RegisterRoutes(r chi.Router, platform func(http.Handler) http.Handler) {
	r.Route("/platform/emulate", func(r chi.Router) {
		r.Use(platform)
		r.Post("/stop", h.Stop)
		r.Post("/{tenantID}", h.Start)
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sc, _ := gate.FromContext(r.Context())

	s, err := h.manager.Start(r.Context(), sc, chi.URLParam(r, "tenantID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.setCookie(w, s)
	core.OK(w, SessionResponse{
		Token:       s.Token,
		TenantID:    s.TenantID,
		IsEmulating: true,
		ExpiresAt:   s.ExpiresAt,
		RedirectURL: h.urls.TenantURL(s.TenantID),
	})
}

func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	sc, _ := gate.FromContext(r.Context())

	s, err := h.manager.Stop(r.Context(), sc)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.setCookie(w, s)
	core.OK(w, SessionResponse{
		Token:       s.Token,
		ExpiresAt:   s.ExpiresAt,
		RedirectURL: h.urls.AdminURL(),
	})
}

func (h *Handler) setCookie(w http.ResponseWriter, s Session) {
	cfg := h.cookie
	if s.TTL < cfg.TTL || cfg.TTL == 0 {
		cfg.TTL = s.TTL
	}
	token.SetCookie(w, cfg, s.Token)
}
