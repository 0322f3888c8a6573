// AngelaMos | 2026
// stats.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
)

// StatsConfig exposes the pools to the stats endpoints. Any field may be nil;
// the matching section is then omitted or reported unhealthy.
type StatsConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

type SystemStatsResponse struct {
	Tenants  map[tenant.Status]int `json:"tenants"`
	Database DatabaseStatus        `json:"database"`
	Redis    RedisStatus           `json:"redis"`
	Runtime  RuntimeStats          `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"maxOpenConnections"`
	OpenConnections    int    `json:"openConnections"`
	InUse              int    `json:"inUse"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"waitCount"`
	WaitDuration       string `json:"waitDuration"`
	MaxIdleClosed      int64  `json:"maxIdleClosed"`
	MaxLifetimeClosed  int64  `json:"maxLifetimeClosed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"totalConns"`
	IdleConns  uint32 `json:"idleConns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	NumCPU       int    `json:"numCpu"`
	MemAlloc     uint64 `json:"memAllocBytes"`
	MemSys       uint64 `json:"memSysBytes"`
	NumGC        uint32 `json:"numGc"`
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.tenantCounts(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, SystemStatsResponse{
		Tenants: counts,
		Database: DatabaseStatus{
			Healthy: ping(ctx, h.stats.DBPing),
			Stats:   h.dbStats(),
		},
		Redis: RedisStatus{
			Healthy: ping(ctx, h.stats.RedisPing),
			Stats:   h.redisStats(),
		},
		Runtime: readRuntime(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.dbStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.redisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntime())
}

func (h *Handler) tenantCounts(ctx context.Context) (map[tenant.Status]int, error) {
	out := make(map[tenant.Status]int, 4)
	for _, s := range []tenant.Status{
		tenant.StatusActive,
		tenant.StatusSuspended,
		tenant.StatusPending,
		tenant.StatusCancelled,
	} {
		_, total, err := h.tenants.List(ctx, tenant.ListParams{Status: s, PageSize: 1})
		if err != nil {
			return nil, err
		}
		out[s] = total
	}
	return out, nil
}

func ping(ctx context.Context, fn func(context.Context) error) bool {
	return fn != nil && fn(ctx) == nil
}

func (h *Handler) dbStats() *DBPoolStats {
	if h.stats.DBStats == nil {
		return nil
	}

	s := h.stats.DBStats()
	return &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func (h *Handler) redisStats() *RedisPoolStats {
	if h.stats.RedisStats == nil {
		return nil
	}

	s := h.stats.RedisStats()
	if s == nil {
		return nil
	}
	return &RedisPoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
	}
}

func readRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     m.Alloc,
		MemSys:       m.Sys,
		NumGC:        m.NumGC,
	}
}
