// AngelaMos | 2026
// main_test.go

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/auth"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/testutil"
)

func TestCreatedSuperAdminCanSignIn(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	t.Setenv("SUPER_ADMIN_PASSWORD", "correct horse battery")

	var out bytes.Buffer
	err := dispatch(ctx, env.Admins, &out, "create-super-admin", []string{"-email", "Ops@Platform.test", "-name", "Ops"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created super admin ops@platform.test")

	svc := auth.NewService(env.Users, env.Admins, env.Principals, env.Tokens, env.Config.Tenancy.PlatformTenantID, nil).
		WithClock(env.Now)
	s, err := svc.PlatformLogin(ctx, "ops@platform.test", "correct horse battery")
	require.NoError(t, err)

	sc, err := env.Gate.Platform().Run(ctx, &gate.SecurityContext{RawToken: s.Token})
	require.NoError(t, err)
	assert.True(t, sc.IsSuperAdmin)

	out.Reset()
	require.NoError(t, dispatch(ctx, env.Admins, &out, "list-super-admins", nil))
	assert.Contains(t, out.String(), "EMAIL")
	assert.Contains(t, out.String(), "ops@platform.test")
}

func TestCreateSuperAdminFailures(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	var out bytes.Buffer

	t.Setenv("SUPER_ADMIN_PASSWORD", "")
	err := dispatch(ctx, env.Admins, &out, "create-super-admin", []string{"-email", "ops@platform.test", "-name", "Ops"})
	require.Error(t, err, "password comes from the environment")

	t.Setenv("SUPER_ADMIN_PASSWORD", "correct horse battery")
	require.NoError(t, dispatch(ctx, env.Admins, &out, "create-super-admin", []string{"-email", "ops@platform.test", "-name", "Ops"}))

	err = dispatch(ctx, env.Admins, &out, "create-super-admin", []string{"-email", "ops@platform.test", "-name", "Ops"})
	require.ErrorContains(t, err, "already exists")

	err = dispatch(ctx, env.Admins, &out, "drop-everything", nil)
	require.ErrorContains(t, err, "unknown command")
}
