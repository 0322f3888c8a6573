// AngelaMos | 2026
// repository_test.go

package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
)

func TestPostgresTenantLifecycle(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := t.Context()
	repo := tenant.NewRepository(db.DB)

	maxUsers := 3
	tn := &tenant.Tenant{
		TenantID:           testutil.UniqueTenantID(),
		Name:               "Acme Freight",
		Status:             tenant.StatusActive,
		PlanRef:            "starter",
		SubscriptionStatus: tenant.SubscriptionTrial,
		PlanLimits:         tenant.LimitSet{MaxUsers: &maxUsers},
	}
	require.NoError(t, repo.Create(ctx, tn))
	assert.False(t, tn.CreatedAt.IsZero())

	err := repo.Create(ctx, &tenant.Tenant{
		TenantID:           tn.TenantID,
		Name:               "Copy",
		Status:             tenant.StatusActive,
		SubscriptionStatus: tenant.SubscriptionTrial,
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	got, err := repo.GetByID(ctx, tn.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "starter", got.PlanRef)
	require.NotNil(t, got.PlanLimits.MaxUsers)
	assert.Equal(t, 3, *got.PlanLimits.MaxUsers)

	require.NoError(t, repo.UpdateStatus(ctx, tn.TenantID, tenant.StatusSuspended))
	got, err = repo.GetByID(ctx, tn.TenantID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusSuspended, got.Status)

	err = db.InTx(ctx, func(tx core.DBTX) error {
		locked, err := tenant.NewRepository(tx).LockForUpdate(ctx, tn.TenantID)
		if err != nil {
			return err
		}
		assert.Equal(t, tn.TenantID, locked.TenantID)

		n, err := quota.NewCounter(tx).Count(ctx, tn.TenantID, quota.Users)
		assert.Zero(t, n)
		return err
	})
	require.NoError(t, err)

	err = db.InTx(ctx, func(tx core.DBTX) error {
		return tenant.NewRepository(tx).Purge(ctx, tn.TenantID)
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, tn.TenantID)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestPostgresPlans(t *testing.T) {
	db := testutil.Postgres(t)
	plans := tenant.NewPlanRepository(db.DB)

	p, err := plans.GetByRef(t.Context(), "pro")
	require.NoError(t, err)
	assert.Equal(t, 25, p.MaxUsers)
	assert.Contains(t, p.Features, "invoicing")

	byID, err := plans.GetByRef(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro", byID.Slug)

	_, err = plans.GetByRef(t.Context(), "nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}
