// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

// GateOptions says where the adapter finds the raw signals on a request.
type GateOptions struct {
	CookieName   string
	TenantHeader string
	// QueryParams are checked in order for the query fallback tenant id.
	QueryParams []string
	Logger      *slog.Logger
}

func (o GateOptions) withDefaults() GateOptions {
	if o.CookieName == "" {
		o.CookieName = token.DefaultCookieName
	}
	if o.TenantHeader == "" {
		o.TenantHeader = "X-Tenant-ID"
	}
	if len(o.QueryParams) == 0 {
		o.QueryParams = []string{"tenant", "tenantId"}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Gate runs the pipeline for every request and either rejects with the
// mapped error envelope or stores the SecurityContext for the handler.
func Gate(p *gate.Pipeline, opts GateOptions) func(http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, err := p.Run(r.Context(), newSecurityContext(r, opts))
			if err != nil {
				logDenied(r, opts.Logger, err)
				core.JSONError(w, err)
				return
			}

			annotate(r.Context(), sc)
			next.ServeHTTP(w, r.WithContext(gate.WithContext(r.Context(), sc)))
		})
	}
}

func newSecurityContext(r *http.Request, opts GateOptions) *gate.SecurityContext {
	sc := &gate.SecurityContext{RawToken: token.FromRequest(r, opts.CookieName)}

	sc.Signals.HeaderTenantID = strings.TrimSpace(r.Header.Get(opts.TenantHeader))
	sc.Signals.Host = r.Host

	q := r.URL.Query()
	for _, name := range opts.QueryParams {
		if v := q.Get(name); v != "" {
			sc.Signals.QueryTenantID = v
			break
		}
	}

	return sc
}

func logDenied(r *http.Request, logger *slog.Logger, err error) {
	kind := core.KindOf(err)

	level := slog.LevelDebug
	switch kind {
	case core.KindForbidden, core.KindTenantAccessDenied:
		level = slog.LevelWarn
	case core.KindInternal:
		level = slog.LevelError
	}

	logger.Log(r.Context(), level, "request denied",
		"kind", kind,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", GetRequestID(r.Context()),
		"error", err,
	)
}

func GetSecurityContext(ctx context.Context) *gate.SecurityContext {
	sc, ok := gate.FromContext(ctx)
	if !ok {
		return nil
	}
	return sc
}

// UserCaller adapts the SecurityContext for the user package handlers.
func UserCaller(ctx context.Context) (user.Caller, bool) {
	sc, ok := gate.FromContext(ctx)
	if !ok {
		return user.Caller{}, false
	}
	return user.Caller{
		Tenant:  sc.Tenant,
		ActorID: sc.ActorID(),
		Bypass:  sc.IsSuperAdmin,
	}, true
}
