// AngelaMos | 2026
// requestid.go

package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	requestInfoKey contextKey = "request_info"
)

const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID keeps a sane inbound X-Request-ID or mints a new one, and echoes
// it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestInfo is filled in by inner middleware so the access log line can
// carry who the gate decided the caller was.
type requestInfo struct {
	mu        sync.Mutex
	tenantID  string
	actorID   string
	emulating bool
}

func withRequestInfo(ctx context.Context) (context.Context, *requestInfo) {
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

func (i *requestInfo) snapshot() (tenantID, actorID string, emulating bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tenantID, i.actorID, i.emulating
}
