// AngelaMos | 2026
// manager_test.go

package emulation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/emulation"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/middleware"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

func newManager(env *testutil.Env) *emulation.Manager {
	return emulation.NewManager(env.Tokens, env.Tenants, env.Config.Tenancy.PlatformTenantID, nil)
}

func gated(t *testing.T, env *testutil.Env, raw string) *gate.SecurityContext {
	t.Helper()
	sc, err := env.Gate.Authenticated(gate.TenantOptional).
		Run(context.Background(), &gate.SecurityContext{RawToken: raw})
	require.NoError(t, err)
	return sc
}

func TestStartIssuesScopedToken(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme", func(tn *tenant.Tenant) { tn.Status = tenant.StatusSuspended })
	a, _ := env.SeedSuperAdmin("ops@platform.test")
	m := newManager(env)

	s, err := m.Start(context.Background(), gated(t, env, env.PlatformToken(t, a)), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", s.TenantID)
	assert.Equal(t, env.Tokens.EmulationTTL(), s.TTL)

	claims, err := env.Tokens.Verify(s.Token)
	require.NoError(t, err)
	ec, ok := claims.(token.EmulationClaims)
	require.True(t, ok)
	assert.Equal(t, a.ID, ec.OperatorID)
	assert.Equal(t, a.ID, ec.OriginalUserID)
	assert.Equal(t, "acme", ec.EmulatedTenantID)
}

func TestStartRejectsNonSuperAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme")
	env.SeedTenant("beta")
	u := env.SeedUser("acme", "admin@acme.test", user.RoleAdmin, true)
	m := newManager(env)

	_, err := m.Start(context.Background(), gated(t, env, env.SessionToken(t, u)), "beta")
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = m.Start(context.Background(), nil, "beta")
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestStartUnknownTenant(t *testing.T) {
	env := testutil.NewEnv(t)
	a, _ := env.SeedSuperAdmin("ops@platform.test")
	m := newManager(env)

	_, err := m.Start(context.Background(), gated(t, env, env.PlatformToken(t, a)), "nope")
	require.ErrorIs(t, err, core.ErrTenantNotFound)
}

func TestStopRequiresEmulation(t *testing.T) {
	env := testutil.NewEnv(t)
	a, _ := env.SeedSuperAdmin("ops@platform.test")
	m := newManager(env)

	_, err := m.Stop(context.Background(), gated(t, env, env.PlatformToken(t, a)))
	require.ErrorIs(t, err, core.ErrNotEmulating)
	assert.Equal(t, http.StatusBadRequest, core.ToAppError(err).StatusCode)
}

func TestStopReturnsPlatformSessionForOriginalUser(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme")
	a, _ := env.SeedSuperAdmin("ops@platform.test")
	m := newManager(env)

	started, err := m.Start(context.Background(), gated(t, env, env.PlatformToken(t, a)), "acme")
	require.NoError(t, err)

	sc := gated(t, env, started.Token)
	require.True(t, sc.IsEmulating)
	assert.Equal(t, "acme", sc.TenantID)

	stopped, err := m.Stop(context.Background(), sc)
	require.NoError(t, err)
	assert.Empty(t, stopped.TenantID)

	claims, err := env.Tokens.Verify(stopped.Token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.Subject())
	sess, ok := claims.(token.SessionClaims)
	require.True(t, ok, "stop token carries no emulation claims")
	assert.True(t, sess.IsSuperAdmin)
	assert.Equal(t, "platform", sess.TenantID)

	after := gated(t, env, stopped.Token)
	assert.False(t, after.IsEmulating)
	assert.Empty(t, after.TenantID)
}

func platformRouter(env *testutil.Env, h *emulation.Handler) func(path, raw string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.Gate(env.Gate.Platform(), middleware.GateOptions{}))

	return func(path, raw string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
}

func TestHandlerRoutes(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme")
	a, _ := env.SeedSuperAdmin("ops@platform.test")
	u := env.SeedUser("acme", "admin@acme.test", user.RoleAdmin, true)

	cookie := token.CookieConfig{Name: "jwt", TTL: env.Tokens.SessionTTL()}
	h := emulation.NewHandler(newManager(env), cookie, tenant.NewURLBuilder(env.Config.Tenancy, true))

	post := platformRouter(env, h)

	rec := post("/platform/emulate/acme", env.SessionToken(t, u))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post("/platform/emulate/acme", env.PlatformToken(t, a))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status bool                      `json:"status"`
		Data   emulation.SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.IsEmulating)
	assert.Equal(t, "https://acme."+testutil.Domain, body.Data.RedirectURL)

	var jwtCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwt" {
			jwtCookie = c
		}
	}
	require.NotNil(t, jwtCookie)
	assert.Equal(t, body.Data.Token, jwtCookie.Value)
	assert.Equal(t, int(env.Tokens.EmulationTTL().Seconds()), jwtCookie.MaxAge)

	rec = post("/platform/emulate/stop", body.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post("/platform/emulate/stop", env.PlatformToken(t, a))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(core.KindNotEmulating))
}

func TestStopWorksForTenantsOutsideActiveSet(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*tenant.Tenant)
	}{
		{"pending", func(tn *tenant.Tenant) { tn.Status = tenant.StatusPending }},
		{"cancelled", func(tn *tenant.Tenant) { tn.Status = tenant.StatusCancelled }},
		{"past due", func(tn *tenant.Tenant) { tn.SubscriptionStatus = tenant.SubscriptionPastDue }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			env.SeedTenant("acme", tt.mutate)
			a, _ := env.SeedSuperAdmin("ops@platform.test")

			cookie := token.CookieConfig{Name: "jwt", TTL: env.Tokens.SessionTTL()}
			h := emulation.NewHandler(newManager(env), cookie, tenant.NewURLBuilder(env.Config.Tenancy, true))
			post := platformRouter(env, h)

			rec := post("/platform/emulate/acme", env.PlatformToken(t, a))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body struct {
				Data emulation.SessionResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			rec = post("/platform/emulate/stop", body.Data.Token)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Data.IsEmulating)
		})
	}
}
