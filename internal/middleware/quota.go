// AngelaMos | 2026
// quota.go

package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/quota"
)

type LimitChecker interface {
	CheckLimit(ctx context.Context, req quota.Request) (quota.Usage, error)
}

// EnforceLimit guards a creation route with the resource's plan limit. It
// must sit behind a tenant-required Gate. A passing check is published as
// X-Quota-Current / X-Quota-Limit and recorded on the context.
func EnforceLimit(checker LimitChecker, res quota.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := gate.FromContext(r.Context())
			if !ok || sc.Tenant == nil {
				core.JSONError(w, core.ErrTenantRequired)
				return
			}

			usage, err := checker.CheckLimit(r.Context(), quota.Request{
				Tenant:     sc.Tenant,
				Resource:   res,
				Additional: 1,
				Bypass:     sc.IsSuperAdmin,
			})
			if err != nil {
				core.JSONError(w, err)
				return
			}

			if !usage.Bypassed {
				w.Header().Set("X-Quota-Current", strconv.Itoa(usage.Current))
				w.Header().Set("X-Quota-Limit", strconv.Itoa(usage.Limit))
			}

			next.ServeHTTP(w, r.WithContext(quota.WithUsage(r.Context(), usage)))
		})
	}
}
