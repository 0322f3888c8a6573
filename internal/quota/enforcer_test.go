// AngelaMos | 2026
// enforcer_test.go

package quota_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
)

var defaults = config.QuotaConfig{
	MaxUsers:     5,
	MaxOrders:    500,
	MaxCustomers: 100,
	MaxCarriers:  50,
}

func newEnforcer(plans ...tenant.Plan) (*quota.Enforcer, *testutil.Counter) {
	counter := testutil.NewCounter(nil)
	limits := quota.NewResolver(testutil.NewPlanStore(plans...), defaults)
	return quota.NewEnforcer(limits, counter), counter
}

func TestCheckLimit(t *testing.T) {
	ctx := context.Background()
	acme := &tenant.Tenant{
		TenantID: "acme",
		Settings: tenant.Settings{LimitSet: tenant.LimitSet{
			MaxCustomers: tenant.IntPtr(10),
			MaxCarriers:  tenant.IntPtr(0),
		}},
	}

	tests := []struct {
		name       string
		resource   quota.Resource
		current    int
		additional int
		wantErr    bool
	}{
		{"one below limit", quota.Customers, 9, 1, false},
		{"at limit", quota.Customers, 10, 1, true},
		{"batch overshoots", quota.Customers, 8, 3, true},
		{"batch fits", quota.Customers, 7, 3, false},
		{"zero additional counts as one", quota.Customers, 10, 0, true},
		{"zero limit is unlimited", quota.Carriers, 10000, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enforcer, counter := newEnforcer()
			counter.Set("acme", tt.resource, tt.current)

			usage, err := enforcer.CheckLimit(ctx, quota.Request{
				Tenant:     acme,
				Resource:   tt.resource,
				Additional: tt.additional,
			})

			assert.Equal(t, tt.current, usage.Current)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, core.ErrQuotaExceeded)
			var qe *quota.QuotaError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.current, qe.Current)
			assert.Equal(t, 10, qe.Limit)
			assert.Equal(t, tt.resource, qe.Resource)
			assert.Equal(t, core.KindQuotaExceeded, core.KindOf(err))
		})
	}
}

func TestCheckLimitBypass(t *testing.T) {
	enforcer, counter := newEnforcer()
	counter.Set("acme", quota.Users, 1000)

	usage, err := enforcer.CheckLimit(context.Background(), quota.Request{
		Tenant:   &tenant.Tenant{TenantID: "acme"},
		Resource: quota.Users,
		Bypass:   true,
	})
	require.NoError(t, err)
	assert.True(t, usage.Bypassed)
}

func TestCheckLimitRejectsBadRequest(t *testing.T) {
	enforcer, _ := newEnforcer()
	ctx := context.Background()

	_, err := enforcer.CheckLimit(ctx, quota.Request{Resource: quota.Users})
	require.ErrorIs(t, err, core.ErrTenantRequired)

	_, err = enforcer.CheckLimit(ctx, quota.Request{
		Tenant:   &tenant.Tenant{TenantID: "acme"},
		Resource: "trucks",
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestResolveOrder(t *testing.T) {
	pro := tenant.Plan{Slug: "pro", MaxUsers: 500, MaxOrders: 0, MaxCustomers: 200, MaxCarriers: 20}
	limits := quota.NewResolver(testutil.NewPlanStore(pro), defaults)
	ctx := context.Background()

	t.Run("plan beats settings", func(t *testing.T) {
		got, err := limits.Resolve(ctx, &tenant.Tenant{
			TenantID: "acme",
			PlanRef:  "pro",
			Settings: tenant.Settings{LimitSet: tenant.LimitSet{MaxUsers: tenant.IntPtr(1000)}},
		})
		require.NoError(t, err)
		assert.Equal(t, quota.Limit{Max: 500, Source: quota.SourcePlan}, got[quota.Users])
		assert.Equal(t, quota.Limit{Max: 0, Source: quota.SourcePlan}, got[quota.Orders])
	})

	t.Run("missing plan falls to snapshot", func(t *testing.T) {
		got, err := limits.Resolve(ctx, &tenant.Tenant{
			TenantID:   "acme",
			PlanRef:    "retired",
			PlanLimits: tenant.LimitSet{MaxUsers: tenant.IntPtr(25)},
			Settings:   tenant.Settings{LimitSet: tenant.LimitSet{MaxUsers: tenant.IntPtr(1000)}},
		})
		require.NoError(t, err)
		assert.Equal(t, quota.Limit{Max: 25, Source: quota.SourceSnapshot}, got[quota.Users])
	})

	t.Run("settings then default", func(t *testing.T) {
		got, err := limits.Resolve(ctx, &tenant.Tenant{
			TenantID: "acme",
			Settings: tenant.Settings{LimitSet: tenant.LimitSet{MaxOrders: tenant.IntPtr(42)}},
		})
		require.NoError(t, err)
		assert.Equal(t, quota.Limit{Max: 42, Source: quota.SourceSettings}, got[quota.Orders])
		assert.Equal(t, quota.Limit{Max: 5, Source: quota.SourceDefault}, got[quota.Users])
		assert.Equal(t, quota.Limit{Max: 50, Source: quota.SourceDefault}, got[quota.Carriers])
	})
}

func TestUsageReport(t *testing.T) {
	enforcer, counter := newEnforcer()
	counter.Set("acme", quota.Orders, 82)

	report, err := enforcer.Usage(context.Background(), &tenant.Tenant{
		TenantID: "acme",
		Settings: tenant.Settings{LimitSet: tenant.LimitSet{MaxOrders: tenant.IntPtr(100)}},
	})
	require.NoError(t, err)
	require.Len(t, report, len(quota.Resources))

	for _, u := range report {
		if u.Resource == quota.Orders {
			assert.Equal(t, "82/100 orders", u.String())
		}
	}
}

func TestUsageContext(t *testing.T) {
	ctx := context.Background()
	_, ok := quota.UsageFromContext(ctx)
	assert.False(t, ok)

	ctx = quota.WithUsage(ctx, quota.Usage{Resource: quota.Users, Current: 3, Limit: 5})
	got, ok := quota.UsageFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, got.Current)
	assert.False(t, got.Unlimited())
}
