// AngelaMos | 2026
// enforcer.go

package quota

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
)

// Usage is what the UI shows as "82/100 users". Limit zero means unlimited.
type Usage struct {
	Resource Resource `json:"resource"`
	Current  int      `json:"current"`
	Limit    int      `json:"limit"`
	Source   Source   `json:"source,omitempty"`
	Bypassed bool     `json:"bypassed,omitempty"`
}

func (u Usage) Unlimited() bool {
	return u.Limit == 0
}

func (u Usage) String() string {
	if u.Unlimited() {
		return fmt.Sprintf("%d %s (unlimited)", u.Current, u.Resource)
	}
	return fmt.Sprintf("%d/%d %s", u.Current, u.Limit, u.Resource)
}

// QuotaError is returned when a creation would push a tenant past its limit.
type QuotaError struct {
	Resource Resource
	Current  int
	Limit    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf(
		"%s limit reached (%d/%d), upgrade the plan to add more",
		e.Resource,
		e.Current,
		e.Limit,
	)
}

func (e *QuotaError) Unwrap() error {
	return core.ErrQuotaExceeded
}

func (e *QuotaError) ErrorDetails() map[string]any {
	return map[string]any{
		"resource": e.Resource,
		"current":  e.Current,
		"limit":    e.Limit,
	}
}

type Request struct {
	Tenant     *tenant.Tenant
	Resource   Resource
	Additional int
	// Bypass is set for super admin and emulation contexts.
	Bypass bool
}

type Enforcer struct {
	limits  *Resolver
	counter Counter
}

func NewEnforcer(limits *Resolver, counter Counter) *Enforcer {
	return &Enforcer{limits: limits, counter: counter}
}

// WithCounter returns an enforcer that counts through c, typically one bound
// to the transaction that will perform the insert.
func (e *Enforcer) WithCounter(c Counter) *Enforcer {
	return &Enforcer{limits: e.limits, counter: c}
}

// CheckLimit counts then compares. The count and the caller's insert are not
// atomic, so concurrent creations may overshoot by a few rows unless the
// caller holds the tenant row lock.
func (e *Enforcer) CheckLimit(ctx context.Context, req Request) (Usage, error) {
	if req.Tenant == nil {
		return Usage{}, fmt.Errorf("check limit: %w", core.ErrTenantRequired)
	}
	if !req.Resource.Valid() {
		return Usage{}, fmt.Errorf("check limit: resource %q: %w", req.Resource, core.ErrInvalidInput)
	}

	if req.Bypass {
		core.QuotaChecks.WithLabelValues(string(req.Resource), "bypass").Inc()
		return Usage{Resource: req.Resource, Bypassed: true}, nil
	}

	additional := req.Additional
	if additional < 1 {
		additional = 1
	}

	limit, err := e.limits.Limit(ctx, req.Tenant, req.Resource)
	if err != nil {
		return Usage{}, fmt.Errorf("check limit: %w", err)
	}

	current, err := e.counter.Count(ctx, req.Tenant.TenantID, req.Resource)
	if err != nil {
		return Usage{}, fmt.Errorf("check limit: %w", err)
	}

	usage := Usage{
		Resource: req.Resource,
		Current:  current,
		Limit:    limit.Max,
		Source:   limit.Source,
	}

	if limit.Max > 0 && current+additional > limit.Max {
		core.QuotaChecks.WithLabelValues(string(req.Resource), "exceeded").Inc()
		return usage, &QuotaError{Resource: req.Resource, Current: current, Limit: limit.Max}
	}

	core.QuotaChecks.WithLabelValues(string(req.Resource), "allowed").Inc()
	return usage, nil
}

// Usage reports every resource for the tenant usage endpoint.
func (e *Enforcer) Usage(ctx context.Context, t *tenant.Tenant) ([]Usage, error) {
	limits, err := e.limits.Resolve(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}

	out := make([]Usage, 0, len(Resources))
	for _, res := range Resources {
		n, err := e.counter.Count(ctx, t.TenantID, res)
		if err != nil {
			return nil, fmt.Errorf("usage: %w", err)
		}
		out = append(out, Usage{
			Resource: res,
			Current:  n,
			Limit:    limits[res].Max,
			Source:   limits[res].Source,
		})
	}

	return out, nil
}

type contextKey string

const usageKey contextKey = "quota_usage"

// WithUsage records a passed check so the handler behind the guard does not
// count twice.
func WithUsage(ctx context.Context, u Usage) context.Context {
	return context.WithValue(ctx, usageKey, u)
}

func UsageFromContext(ctx context.Context) (Usage, bool) {
	u, ok := ctx.Value(usageKey).(Usage)
	return u, ok
}
