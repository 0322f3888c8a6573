// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	BypassFunc func(*http.Request) bool
}

// limiterBackend asks Redis first and falls back to an in-process token
// bucket per key when Redis is unreachable or absent.
type limiterBackend struct {
	redis *redis_rate.Limiter
	local *localLimiter
}

func newLimiterBackend(rdb *redis.Client) *limiterBackend {
	b := &limiterBackend{local: newLocalLimiter(time.Now)}
	if rdb != nil {
		b.redis = redis_rate.NewLimiter(rdb)
	}
	return b
}

func (b *limiterBackend) allow(ctx context.Context, key string, limit redis_rate.Limit) *redis_rate.Result {
	if b.redis != nil {
		res, err := b.redis.Allow(ctx, key, limit)
		if err == nil {
			return res
		}
		slog.Debug("redis rate limiter unavailable, using local bucket", "key", key, "error", err)
	}
	return b.local.allow(key, limit)
}

type RateLimiter struct {
	backend *limiterBackend
	config  RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		backend: newLimiterBackend(rdb),
		config:  cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		res := rl.backend.allow(r.Context(), key, rl.config.Limit)

		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

// KeyByTenant shares one budget across every user of the resolved tenant.
func KeyByTenant(r *http.Request) string {
	if sc := GetSecurityContext(r.Context()); sc != nil && sc.TenantID != "" {
		return "ratelimit:tenant:" + sc.TenantID
	}
	return KeyByIP(r)
}

// KeyByLogin throttles credential attempts per client and endpoint so a
// tenant login flood cannot starve the super admin endpoint.
func KeyByLogin(r *http.Request) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", clientIP(r), normalizeEndpoint(r.URL.Path))
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func normalizeEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if looksLikeID(part) {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(s string) bool {
	if len(s) == 36 && s[8] == '-' && s[13] == '-' && s[18] == '-' && s[23] == '-' {
		return true
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// TierConfig is the request budget for one plan.
type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// PlanRateLimiter budgets each tenant by the slug or id of its plan. Tenants
// on an unknown plan get fallback. Super admins are not limited.
func PlanRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierConfig,
	fallback TierConfig,
) func(http.Handler) http.Handler {
	backend := newLimiterBackend(rdb)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := GetSecurityContext(r.Context())
			if sc == nil || sc.Tenant == nil || sc.IsSuperAdmin {
				next.ServeHTTP(w, r)
				return
			}

			tier, ok := tiers[sc.Tenant.PlanRef]
			if !ok {
				tier = fallback
			}
			limit := PerMinute(tier.RequestsPerMinute, tier.BurstSize)

			res := backend.allow(r.Context(), KeyByTenant(r), limit)

			if sc.Tenant.PlanRef != "" {
				w.Header().Set("X-RateLimit-Plan", sc.Tenant.PlanRef)
			}
			setRateLimitHeaders(w, res, limit)

			if res.Allowed == 0 {
				writeRateLimitExceeded(w, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		core.ErrRateLimited,
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfter),
		http.StatusTooManyRequests,
		core.KindRateLimited,
	))
}

const localEntryTTL = 10 * time.Minute

type localEntry struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// localLimiter is the single-process fallback. Idle buckets are swept on
// access instead of by a background goroutine.
type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*localEntry
	now       func() time.Time
	lastSweep time.Time
}

func newLocalLimiter(now func() time.Time) *localLimiter {
	return &localLimiter{
		entries:   make(map[string]*localEntry),
		now:       now,
		lastSweep: now(),
	}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSec := float64(limit.Rate) / limit.Period.Seconds()
	interval := time.Duration(float64(time.Second) / perSec)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > localEntryTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > localEntryTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{bucket: rate.NewLimiter(rate.Limit(perSec), max(limit.Burst, 1))}
		l.entries[key] = e
	}
	e.lastSeen = now

	res := &redis_rate.Result{
		Limit:      limit,
		ResetAfter: interval,
		RetryAfter: -1,
	}
	if e.bucket.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	res.Remaining = max(int(e.bucket.TokensAt(now)), 0)

	return res
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func PerSecond(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Second}
}
