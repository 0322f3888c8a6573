// AngelaMos | 2026
// store_test.go

package principal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type storeFixture struct {
	store  *principal.Store
	users  *testutil.UserStore
	admins *testutil.SuperAdminStore
	now    time.Time
}

func newStoreFixture() *storeFixture {
	f := &storeFixture{
		users:  testutil.NewUserStore(),
		admins: testutil.NewSuperAdminStore(),
		now:    time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC),
	}
	f.store = principal.NewStore(f.users, f.admins, config.SecurityConfig{
		MaxLoginAttempts: 5,
		LockDuration:     2 * time.Hour,
	}).WithClock(func() time.Time { return f.now })
	return f
}

func TestLoadUser(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	changed := f.now.Add(-time.Hour)
	active := f.users.Put(&user.User{TenantID: "acme", Email: "a@acme.test", PasswordChangedAt: &changed})
	inactive := f.users.Put(&user.User{TenantID: "acme", Email: "b@acme.test", Status: user.StatusInactive})
	deleted := f.users.Put(&user.User{TenantID: "acme", Email: "c@acme.test", DeletedAt: &changed})

	tests := []struct {
		name    string
		id      string
		iat     time.Time
		wantErr error
	}{
		{"fresh token", active.ID, f.now, nil},
		{"zero iat skips staleness", active.ID, time.Time{}, nil},
		{"same second as change", active.ID, changed.Add(500 * time.Millisecond), nil},
		{"stale token", active.ID, changed.Add(-time.Second), core.ErrTokenStale},
		{"unknown user", "missing", f.now, core.ErrPrincipalNotFound},
		{"soft deleted", deleted.ID, f.now, core.ErrPrincipalNotFound},
		{"inactive", inactive.ID, f.now, core.ErrAccountSuspended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := f.store.LoadUser(ctx, tt.id, tt.iat)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, u.ID)
		})
	}
}

func TestLoadUserSuspendedBeforeStale(t *testing.T) {
	f := newStoreFixture()
	changed := f.now
	u := f.users.Put(&user.User{
		TenantID:          "acme",
		Status:            user.StatusInactive,
		PasswordChangedAt: &changed,
	})

	_, err := f.store.LoadUser(context.Background(), u.ID, f.now.Add(-time.Hour))
	require.ErrorIs(t, err, core.ErrAccountSuspended)
}

func TestLoadPlatform(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	linked := f.users.Put(&user.User{TenantID: "platform", Email: "ops@platform.test", Role: user.RoleAdmin})
	withUser := f.admins.Put(&principal.SuperAdmin{Email: "ops@platform.test", IsActive: true, UserID: &linked.ID})
	dangling := "gone"
	orphan := f.admins.Put(&principal.SuperAdmin{Email: "solo@platform.test", IsActive: true, UserID: &dangling})
	disabled := f.admins.Put(&principal.SuperAdmin{Email: "off@platform.test"})
	until := f.now.Add(time.Hour)
	locked := f.admins.Put(&principal.SuperAdmin{Email: "lock@platform.test", IsActive: true, LockUntil: &until})

	p, err := f.store.LoadPlatform(ctx, withUser.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, principal.KindSuperAdmin, p.Kind)
	assert.Equal(t, withUser.ID, p.ID())
	require.NotNil(t, p.User)
	assert.Equal(t, "platform", p.TenantID())

	p, err = f.store.LoadPlatform(ctx, orphan.ID, f.now)
	require.NoError(t, err)
	assert.Nil(t, p.User)
	assert.Empty(t, p.TenantID())

	_, err = f.store.LoadPlatform(ctx, disabled.ID, f.now)
	require.ErrorIs(t, err, core.ErrAccountSuspended)

	_, err = f.store.LoadPlatform(ctx, locked.ID, f.now)
	require.ErrorIs(t, err, core.ErrAccountLocked)

	_, err = f.store.LoadPlatform(ctx, "nobody", f.now)
	require.ErrorIs(t, err, core.ErrPrincipalNotFound)
}

func TestRecordLoginFailureLocksOnFifthAttempt(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()
	a := f.admins.Put(&principal.SuperAdmin{Email: "ops@platform.test", IsActive: true})

	for i := 1; i <= 4; i++ {
		locked, err := f.store.RecordLoginFailure(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}

	locked, err := f.store.RecordLoginFailure(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	stored, err := f.admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.ErrorIs(t, f.store.CheckLoginAllowed(stored), core.ErrAccountLocked)
	assert.True(t, stored.LockUntil.Equal(f.now.Add(2*time.Hour)))

	f.now = f.now.Add(2*time.Hour + time.Second)
	require.NoError(t, f.store.CheckLoginAllowed(stored))

	locked, err = f.store.RecordLoginFailure(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, locked)

	stored, err = f.admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
}

func TestResetLoginAttempts(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()
	a := f.admins.Put(&principal.SuperAdmin{Email: "ops@platform.test", IsActive: true, LoginAttempts: 3})

	require.NoError(t, f.store.ResetLoginAttempts(ctx, a.ID))

	stored, err := f.admins.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
}

func TestRecordLoginFailureSkipsCancelledContext(t *testing.T) {
	f := newStoreFixture()
	a := f.admins.Put(&principal.SuperAdmin{Email: "ops@platform.test", IsActive: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.store.RecordLoginFailure(ctx, a.ID)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.admins.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
}

func TestIsStale(t *testing.T) {
	changed := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

	assert.False(t, principal.IsStale(time.Time{}, &changed))
	assert.False(t, principal.IsStale(changed, nil))
	assert.False(t, principal.IsStale(changed, &changed))
	assert.True(t, principal.IsStale(changed.Add(-time.Second), &changed))
}
