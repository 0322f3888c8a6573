// AngelaMos | 2026
// repository_test.go

package user_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

func TestPostgresUsersAreTenantScoped(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := t.Context()

	tenants := tenant.NewRepository(db.DB)
	ids := []string{testutil.UniqueTenantID(), testutil.UniqueTenantID()}
	for _, id := range ids {
		require.NoError(t, tenants.Create(ctx, &tenant.Tenant{
			TenantID:           id,
			Name:               id,
			Status:             tenant.StatusActive,
			SubscriptionStatus: tenant.SubscriptionTrial,
		}))
	}
	t.Cleanup(func() {
		for _, id := range ids {
			_ = db.InTx(ctx, func(tx core.DBTX) error {
				return tenant.NewRepository(tx).Purge(ctx, id)
			})
		}
	})

	repo := user.NewRepository(db.DB)
	newUser := func(tenantID, email string) *user.User {
		return &user.User{
			ID:           uuid.NewString(),
			TenantID:     tenantID,
			Email:        email,
			PasswordHash: "x",
			Role:         user.RoleStaff,
			Status:       user.StatusActive,
		}
	}

	first := newUser(ids[0], "dispatch@acme.test")
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newUser(ids[0], "Dispatch@ACME.test"))
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	require.NoError(t, repo.Create(ctx, newUser(ids[1], "dispatch@acme.test")))

	got, err := repo.GetByEmail(ctx, ids[0], "DISPATCH@acme.test")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repo.GetInTenant(ctx, ids[1], first.ID)
	require.ErrorIs(t, err, core.ErrNotFound)

	counter := quota.NewCounter(db.DB)
	n, err := counter.Count(ctx, ids[0], quota.Users)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.SoftDelete(ctx, ids[0], first.ID))
	n, err = counter.Count(ctx, ids[0], quota.Users)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Create(ctx, newUser(ids[0], "dispatch@acme.test")))
}
