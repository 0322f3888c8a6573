// AngelaMos | 2026
// middleware_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiterFallsBackToLocalBuckets(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimitConfig{Limit: PerMinute(2, 2)})
	h := rl.Handler(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/tenant", nil)
		req.RemoteAddr = ip + ":5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Contains(t, rec.Body.String(), string(core.KindRateLimited))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "budgets are per client")
}

func TestLocalLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Now()
	l := newLocalLimiter(func() time.Time { return now })

	l.allow("a", PerSecond(1, 1))
	l.allow("b", PerSecond(1, 1))
	require.Len(t, l.entries, 2)

	now = now.Add(localEntryTTL + time.Minute)
	res := l.allow("b", PerSecond(1, 1))
	assert.Equal(t, 1, res.Allowed)
	assert.Len(t, l.entries, 1)
	assert.Contains(t, l.entries, "b")
}

func TestKeyByLoginNormalizesIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/platform/emulate/123", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")

	assert.Equal(t, "ratelimit:login:2.2.2.2:/v1/platform/emulate/{id}", KeyByLogin(req))
}

func TestSecurityHeaders(t *testing.T) {
	for _, production := range []bool{false, true} {
		rec := httptest.NewRecorder()
		SecurityHeaders(production)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, production, rec.Header().Get("Strict-Transport-Security") != "")
	}
}

func TestCORSAdmitsTenantSubdomains(t *testing.T) {
	h := CORS(config.CORSConfig{
		AllowedOrigins:   []string{"https://*.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(okHandler)

	tests := []struct {
		name   string
		origin string
		code   int
		allow  string
	}{
		{"tenant subdomain", "https://acme.example.com", http.StatusNoContent, "https://acme.example.com"},
		{"scheme mismatch", "http://acme.example.com", http.StatusForbidden, ""},
		{"foreign origin", "https://evil.test", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestEnforceLimit(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme")
	admin := env.SeedUser("acme", "admin@acme.test", user.RoleAdmin, true)

	member := Gate(env.Gate.Authenticated(gate.TenantRequired), GateOptions{})
	h := member(EnforceLimit(env.Enforcer, quota.Users)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			u, found := quota.UsageFromContext(r.Context())
			assert.True(t, found)
			assert.Equal(t, quota.Users, u.Resource)
			w.WriteHeader(http.StatusCreated)
		},
	)))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/users", nil)
		req.Header.Set("Authorization", "Bearer "+env.SessionToken(t, admin))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post()
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Quota-Current"))
	assert.Equal(t, "5", rec.Header().Get("X-Quota-Limit"))

	for i := range 4 {
		env.SeedUser("acme", "staff"+string(rune('a'+i))+"@acme.test", user.RoleStaff, false)
	}

	rec = post()
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), string(core.KindQuotaExceeded))
}

func TestEnforceLimitRequiresTenant(t *testing.T) {
	rec := httptest.NewRecorder()
	EnforceLimit(nil, quota.Users)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanRateLimiterUsesTenantPlan(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedTenant("acme", func(tn *tenant.Tenant) { tn.PlanRef = "starter" })
	u := env.SeedUser("acme", "staff@acme.test", user.RoleStaff, false)

	member := Gate(env.Gate.Authenticated(gate.TenantRequired), GateOptions{})
	limited := PlanRateLimiter(nil,
		map[string]TierConfig{"starter": {RequestsPerMinute: 1, BurstSize: 1}},
		TierConfig{RequestsPerMinute: 100, BurstSize: 100},
	)
	h := member(limited(okHandler))

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/tenant", nil)
		req.Header.Set("Authorization", "Bearer "+env.SessionToken(t, u))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "starter", rec.Header().Get("X-RateLimit-Plan"))
	assert.Equal(t, http.StatusTooManyRequests, get().Code)
}
