// AngelaMos | 2026
// handler_test.go

package user_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/middleware"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type errorBody struct {
	Status  bool           `json:"status"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

func newUserRouter(env *testutil.Env) http.Handler {
	guard := func(p *gate.Pipeline) func(http.Handler) http.Handler {
		return middleware.Gate(p, middleware.GateOptions{})
	}

	r := chi.NewRouter()
	user.NewHandler(env.UserService(false), middleware.UserCaller).RegisterRoutes(r,
		guard(env.Gate.Authenticated(gate.TenantRequired)),
		guard(env.Gate.Authenticated(gate.TenantRequired, gate.RequireTenantAdmin())),
		middleware.EnforceLimit(env.Enforcer, quota.Users),
	)
	return r
}

func createUser(r http.Handler, bearer, email string) *httptest.ResponseRecorder {
	body := `{"email":"` + email + `","password":"a long enough password","name":"New","role":1}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-Tenant-ID", "acme")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateUserEndpointEnforcesUserLimit(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme", func(tn *tenant.Tenant) {
		tn.Settings.MaxUsers = tenant.IntPtr(3)
	})
	admin := env.SeedUser("acme", "admin@acme.test", user.RoleAdmin, true)
	staff := env.SeedUser("acme", "staff@acme.test", user.RoleStaff, false)
	r := newUserRouter(env)
	raw := env.SessionToken(t, admin)

	rec := createUser(r, raw, "third@acme.test")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Quota-Current"))
	assert.Equal(t, "3", rec.Header().Get("X-Quota-Limit"))

	rec = createUser(r, raw, "fourth@acme.test")
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, string(core.KindQuotaExceeded), body.Error)
	assert.Equal(t, "users", body.Details["resource"])
	assert.InDelta(t, 3, body.Details["current"], 0)
	assert.InDelta(t, 3, body.Details["limit"], 0)

	_, err := env.Users.GetByEmail(t.Context(), "acme", "fourth@acme.test")
	require.ErrorIs(t, err, core.ErrNotFound, "blocked create writes nothing")

	rec = createUser(r, env.SessionToken(t, staff), "fifth@acme.test")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), string(core.KindForbidden))
}

func TestCreateUserEndpointSuperAdminBypassesLimit(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme", func(tn *tenant.Tenant) {
		tn.Settings.MaxUsers = tenant.IntPtr(1)
	})
	env.SeedUser("acme", "admin@acme.test", user.RoleAdmin, true)
	a, _ := env.SeedSuperAdmin("ops@platform.test")

	rec := createUser(newUserRouter(env), env.PlatformToken(t, a), "extra@acme.test")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Quota-Limit"))
}
