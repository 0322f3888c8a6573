// AngelaMos | 2026
// postgres.go

package testutil

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/migrations"
)

// Postgres connects to POSTGRES_URL and migrates it to the latest schema.
// Tests calling it are skipped when the variable is unset.
func Postgres(t testing.TB) *core.Database {
	t.Helper()

	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}

	db, err := core.NewDatabase(t.Context(), config.DatabaseConfig{
		URL:             url,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(t.Context(), db.DB.DB, "."))

	return db
}

// UniqueTenantID returns a fresh slug so runs against a shared database do
// not collide.
func UniqueTenantID() string {
	return "t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
