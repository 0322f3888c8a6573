// AngelaMos | 2026
// repository_test.go

package principal_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
)

func TestPostgresLoginAttempts(t *testing.T) {
	db := testutil.Postgres(t)
	ctx := t.Context()
	repo := principal.NewRepository(db.DB)

	a := &principal.SuperAdmin{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@platform.test",
		PasswordHash: "x",
		Name:         "Ops",
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, a))

	dup := *a
	dup.ID = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, &dup), core.ErrDuplicateKey)

	policy := principal.LockPolicy{MaxAttempts: 5, Duration: 2 * time.Hour}
	now := time.Now().UTC().Truncate(time.Microsecond)

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			_, err := repo.IncLoginAttempts(ctx, a.ID, policy, now)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	state, err := repo.IncLoginAttempts(ctx, a.ID, policy, now)
	require.NoError(t, err)
	assert.Equal(t, 5, state.Attempts)
	require.NotNil(t, state.LockUntil)
	assert.WithinDuration(t, now.Add(2*time.Hour), *state.LockUntil, time.Second)

	state, err = repo.IncLoginAttempts(ctx, a.ID, policy, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Attempts)
	assert.Nil(t, state.LockUntil)

	require.NoError(t, repo.ResetLoginAttempts(ctx, a.ID))
	got, err := repo.GetByEmail(ctx, a.Email)
	require.NoError(t, err)
	assert.Zero(t, got.LoginAttempts)
	assert.Nil(t, got.LockUntil)

	_, err = repo.IncLoginAttempts(ctx, uuid.NewString(), policy, now)
	require.ErrorIs(t, err, core.ErrNotFound)
}
