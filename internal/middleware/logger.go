// AngelaMos | 2026
// logger.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
)

// Logger writes one structured line per request once the handler returns.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx, info := withRequestInfo(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			tenantID, actorID, emulating := info.snapshot()

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if tenantID != "" {
				attrs = append(attrs, "tenant_id", tenantID)
			}
			if actorID != "" {
				attrs = append(attrs, "actor_id", actorID)
			}
			if emulating {
				attrs = append(attrs, "emulating", true)
			}
			if traceID := core.TraceIDFromContext(r.Context()); traceID != "" {
				attrs = append(attrs, "trace_id", traceID)
			}

			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

// annotate copies the gate outcome into the access log record, if one is
// being collected.
func annotate(ctx context.Context, sc *gate.SecurityContext) {
	info, ok := ctx.Value(requestInfoKey).(*requestInfo)
	if !ok || sc == nil {
		return
	}

	info.mu.Lock()
	defer info.mu.Unlock()
	info.tenantID = sc.TenantID
	info.actorID = sc.ActorID()
	info.emulating = sc.IsEmulating
}
