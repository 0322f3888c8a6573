// AngelaMos | 2026
// core_test.go

package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
)

type limitErr struct{}

func (limitErr) Error() string                { return "orders limit reached (100/100)" }
func (limitErr) Unwrap() error                { return ErrQuotaExceeded }
func (limitErr) ErrorDetails() map[string]any { return map[string]any{"limit": 100} }

func TestToAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   Kind
	}{
		{"wrapped stale", fmt.Errorf("load user: %w", ErrTokenStale), http.StatusUnauthorized, KindTokenStale},
		{"tenant required", ErrTenantRequired, http.StatusBadRequest, KindTenantRequired},
		{"locked", fmt.Errorf("login: %w", ErrAccountLocked), http.StatusLocked, KindAccountLocked},
		{"access denied", ErrTenantAccessDenied, http.StatusForbidden, KindTenantAccessDenied},
		{"not emulating", ErrNotEmulating, http.StatusBadRequest, KindNotEmulating},
		{"duplicate", ErrDuplicateKey, http.StatusConflict, KindConflict},
		{"app error passes through", ForbiddenError("nope"), http.StatusForbidden, KindForbidden},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.kind, appErr.Kind)
		})
	}
}

func TestJSONErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, fmt.Errorf("create order: %w", limitErr{}))

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, KindQuotaExceeded, body.Error)
	assert.Equal(t, "orders limit reached (100/100)", body.Message)
	assert.EqualValues(t, 100, body.Details["limit"])

	rec = httptest.NewRecorder()
	JSONError(rec, fmt.Errorf("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	check, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, check.Match)
	assert.Empty(t, check.Rehash)

	check, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, check.Match)

	_, err = VerifyPassword("x", "plain-text")
	require.ErrorIs(t, err, ErrMalformedHash)

	assert.False(t, VerifyPasswordTimingSafe("x", "").Match)
}

func TestOutdatedHashIsRehashed(t *testing.T) {
	weak := DefaultHashParams
	weak.Memory = 8 * 1024
	hash, err := hashWith("correct horse", weak)
	require.NoError(t, err)

	check, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	require.True(t, check.Match)
	require.NotEmpty(t, check.Rehash)

	again, err := VerifyPassword("correct horse", check.Rehash)
	require.NoError(t, err)
	assert.True(t, again.Match)
	assert.Empty(t, again.Rehash)
}

func TestNilRedisIsDisabled(t *testing.T) {
	var r *Redis

	assert.Nil(t, r.Limiter())
	assert.Nil(t, r.PoolStats())
	assert.NoError(t, r.Close())
	assert.ErrorIs(t, r.Ping(t.Context()), ErrRedisDisabled)
}

func TestUnreachableRedisStaysRegistered(t *testing.T) {
	r, err := NewRedis(t.Context(), config.RedisConfig{URL: "redis://127.0.0.1:1/0", PoolSize: 1})
	require.Error(t, err)
	require.NotNil(t, r)
	t.Cleanup(func() { _ = r.Close() })

	assert.NotNil(t, r.Limiter())
	assert.NotNil(t, r.PoolStats())

	err = r.Ping(t.Context())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRedisDisabled)
}

func TestRedisUnsetOrMalformed(t *testing.T) {
	r, err := NewRedis(t.Context(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewRedis(t.Context(), config.RedisConfig{URL: "not a url"})
	require.Error(t, err)
	assert.Nil(t, r)
}
