// AngelaMos | 2026
// handler_test.go

package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/health"
)

var (
	up   = health.CheckerFunc(func(context.Context) error { return nil })
	down = health.CheckerFunc(func(context.Context) error { return errors.New("connection refused") })
)

func get(h *health.Handler, path string) (*httptest.ResponseRecorder, health.ReadinessResponse) {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body health.ReadinessResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body) //nolint:errcheck // asserted by callers
	return rec, body
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		deps   []health.Dependency
		code   int
		status string
	}{
		{
			name:   "all healthy",
			deps:   []health.Dependency{{Name: "database", Checker: up}, {Name: "redis", Checker: up, Optional: true}},
			code:   http.StatusOK,
			status: health.StatusOK,
		},
		{
			name:   "optional redis down",
			deps:   []health.Dependency{{Name: "database", Checker: up}, {Name: "redis", Checker: down, Optional: true}},
			code:   http.StatusOK,
			status: health.StatusDegraded,
		},
		{
			name:   "database down",
			deps:   []health.Dependency{{Name: "database", Checker: down}, {Name: "redis", Checker: up, Optional: true}},
			code:   http.StatusServiceUnavailable,
			status: health.StatusUnavailable,
		},
		{
			name:   "required checker missing",
			deps:   []health.Dependency{{Name: "database"}},
			code:   http.StatusServiceUnavailable,
			status: health.StatusUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(health.NewHandler(tt.deps...), "/readyz")
			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.status, body.Status)
			require.Len(t, body.Checks, len(tt.deps))
			for i, dep := range tt.deps {
				assert.Equal(t, dep.Name, body.Checks[i].Name)
			}
		})
	}
}

func TestReadinessReportsRedisUnreachableAtStartup(t *testing.T) {
	redis, err := core.NewRedis(t.Context(), config.RedisConfig{URL: "redis://127.0.0.1:1/0", PoolSize: 1})
	require.Error(t, err)
	require.NotNil(t, redis)
	t.Cleanup(func() { _ = redis.Close() })

	rec, body := get(health.NewHandler(
		health.Dependency{Name: "database", Checker: up},
		health.Dependency{Name: "redis", Checker: health.CheckerFunc(redis.Ping), Optional: true},
	), "/readyz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, health.StatusDegraded, body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "redis", body.Checks[1].Name)
}

func TestShutdownDrains(t *testing.T) {
	h := health.NewHandler(health.Dependency{Name: "database", Checker: up})

	rec, _ := get(h, "/livez")
	require.Equal(t, http.StatusOK, rec.Code)

	h.SetShutdown(true)

	rec, body := get(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, health.StatusShuttingDown, body.Status)

	rec, _ = get(h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotReady(t *testing.T) {
	h := health.NewHandler()
	h.SetReady(false)

	rec, body := get(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, health.StatusNotReady, body.Status)
}
