// AngelaMos | 2026
// resolver_test.go

package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
)

func newResolver(t *testing.T, allowQuery bool, tenants ...*tenant.Tenant) *tenant.Resolver {
	t.Helper()

	store := testutil.NewTenantStore(nil)
	for _, tn := range tenants {
		store.Put(tn)
	}

	return tenant.NewResolver(store, config.TenancyConfig{
		Domain:             "example.com",
		TenantHeader:       "X-Tenant-ID",
		AllowQueryFallback: allowQuery,
		ReservedSubdomains: []string{"www", "Admin"},
		PlatformTenantID:   "platform",
	})
}

func activeTenant(id string) *tenant.Tenant {
	return &tenant.Tenant{
		TenantID:           id,
		Name:               id,
		Status:             tenant.StatusActive,
		SubscriptionStatus: tenant.SubscriptionActive,
	}
}

func TestCandidatePriority(t *testing.T) {
	r := newResolver(t, true)

	tests := []struct {
		name       string
		signals    tenant.Signals
		wantID     string
		wantSource tenant.Source
	}{
		{
			name: "emulation beats header",
			signals: tenant.Signals{
				EmulatedTenantID: "beta",
				HeaderTenantID:   "acme",
				Host:             "gamma.example.com",
			},
			wantID:     "beta",
			wantSource: tenant.SourceEmulation,
		},
		{
			name: "header beats principal",
			signals: tenant.Signals{
				HeaderTenantID:    "acme",
				PrincipalTenantID: "beta",
			},
			wantID:     "acme",
			wantSource: tenant.SourceHeader,
		},
		{
			name: "principal beats subdomain",
			signals: tenant.Signals{
				PrincipalTenantID: "acme",
				Host:              "beta.example.com",
			},
			wantID:     "acme",
			wantSource: tenant.SourcePrincipal,
		},
		{
			name: "platform principal falls through to subdomain",
			signals: tenant.Signals{
				PrincipalTenantID: "platform",
				Host:              "beta.example.com",
			},
			wantID:     "beta",
			wantSource: tenant.SourceSubdomain,
		},
		{
			name: "subdomain with port",
			signals: tenant.Signals{
				Host: "acme.example.com:8443",
			},
			wantID:     "acme",
			wantSource: tenant.SourceSubdomain,
		},
		{
			name: "subdomain beats query",
			signals: tenant.Signals{
				Host:          "acme.example.com",
				QueryTenantID: "beta",
			},
			wantID:     "acme",
			wantSource: tenant.SourceSubdomain,
		},
		{
			name: "query used last",
			signals: tenant.Signals{
				Host:          "example.com",
				QueryTenantID: "beta",
			},
			wantID:     "beta",
			wantSource: tenant.SourceQuery,
		},
		{
			name:       "nothing",
			signals:    tenant.Signals{},
			wantID:     "",
			wantSource: tenant.SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, source := r.Candidate(tt.signals)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestCandidateSubdomainRules(t *testing.T) {
	r := newResolver(t, false)

	ignored := []string{
		"example.com",
		"localhost:8080",
		"127.0.0.1:8080",
		"[::1]:8080",
		"www.example.com",
		"admin.example.com",
		".example.com",
	}

	for _, host := range ignored {
		t.Run(host, func(t *testing.T) {
			id, source := r.Candidate(tenant.Signals{Host: host})
			assert.Empty(t, id)
			assert.Equal(t, tenant.SourceNone, source)
		})
	}

	id, _ := r.Candidate(tenant.Signals{Host: "ACME.Example.com"})
	assert.Equal(t, "acme", id)
}

func TestCandidateQueryFallbackDisabled(t *testing.T) {
	r := newResolver(t, false)

	id, source := r.Candidate(tenant.Signals{QueryTenantID: "acme"})
	assert.Empty(t, id)
	assert.Equal(t, tenant.SourceNone, source)
}

func TestResolve(t *testing.T) {
	suspended := activeTenant("frozen")
	suspended.Status = tenant.StatusSuspended

	cancelled := activeTenant("gone")
	cancelled.Status = tenant.StatusCancelled

	pastDue := activeTenant("late")
	pastDue.SubscriptionStatus = tenant.SubscriptionPastDue

	trial := activeTenant("trying")
	trial.SubscriptionStatus = tenant.SubscriptionTrial

	r := newResolver(t, false, activeTenant("acme"), suspended, cancelled, pastDue, trial)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		access  tenant.Access
		wantErr error
	}{
		{"active strict", "acme", tenant.AccessStrict, nil},
		{"trial is usable", "trying", tenant.AccessStrict, nil},
		{"empty id", "", tenant.AccessStrict, core.ErrTenantRequired},
		{"unknown", "nope", tenant.AccessStrict, core.ErrTenantNotFound},
		{"suspended strict", "frozen", tenant.AccessStrict, core.ErrTenantNotFound},
		{"suspended privileged", "frozen", tenant.AccessPrivileged, nil},
		{"cancelled privileged", "gone", tenant.AccessPrivileged, core.ErrTenantNotFound},
		{"past due", "late", tenant.AccessStrict, core.ErrSubscriptionInactive},
		{"past due privileged", "late", tenant.AccessPrivileged, core.ErrSubscriptionInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.id, tt.access)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, got.TenantID)
		})
	}
}
