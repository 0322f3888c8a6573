// AngelaMos | 2026
// provision_test.go

package principal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
)

func TestCreateSuperAdmin(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	a, err := principal.CreateSuperAdmin(ctx, f.admins, principal.NewSuperAdmin{
		Email:    "  Ops@Platform.test ",
		Password: "correct horse battery",
		Name:     " Ops ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@platform.test", a.Email)
	assert.Equal(t, "Ops", a.Name)
	assert.True(t, a.IsActive)
	assert.Nil(t, a.UserID)
	assert.True(t, core.VerifyPasswordTimingSafe("correct horse battery", a.PasswordHash).Match)

	p, err := f.store.LoadPlatform(ctx, a.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, a.ID, p.ID())
	assert.Nil(t, p.User)

	stored, err := f.admins.GetByEmail(ctx, "ops@platform.test")
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
}

func TestCreateSuperAdminRejects(t *testing.T) {
	f := newStoreFixture()
	ctx := context.Background()

	_, err := principal.CreateSuperAdmin(ctx, f.admins, principal.NewSuperAdmin{
		Email: "ops@platform.test", Password: "correct horse battery", Name: "Ops",
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      principal.NewSuperAdmin
		wantErr error
	}{
		{"duplicate email", principal.NewSuperAdmin{Email: "OPS@platform.test", Password: "correct horse battery", Name: "Other"}, core.ErrDuplicateKey},
		{"bad email", principal.NewSuperAdmin{Email: "ops", Password: "correct horse battery", Name: "Ops"}, core.ErrInvalidInput},
		{"short password", principal.NewSuperAdmin{Email: "b@platform.test", Password: "short", Name: "Ops"}, core.ErrInvalidInput},
		{"missing name", principal.NewSuperAdmin{Email: "c@platform.test", Password: "correct horse battery", Name: "  "}, core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := principal.CreateSuperAdmin(ctx, f.admins, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	list, err := f.admins.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
