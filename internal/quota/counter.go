// AngelaMos | 2026
// counter.go

package quota

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

// Counter returns the number of live (not soft-deleted) rows a tenant owns.
type Counter interface {
	Count(ctx context.Context, tenantID string, res Resource) (int, error)
}

// countQueries is a whitelist; resource names never reach SQL text.
var countQueries = map[Resource]string{
	Users:     `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND deleted_at IS NULL`,
	Orders:    `SELECT COUNT(*) FROM orders WHERE tenant_id = $1 AND deleted_at IS NULL`,
	Customers: `SELECT COUNT(*) FROM customers WHERE tenant_id = $1 AND deleted_at IS NULL`,
	Carriers:  `SELECT COUNT(*) FROM carriers WHERE tenant_id = $1 AND deleted_at IS NULL`,
}

type sqlCounter struct {
	db core.DBTX
}

func NewCounter(db core.DBTX) Counter {
	return &sqlCounter{db: db}
}

func (c *sqlCounter) Count(ctx context.Context, tenantID string, res Resource) (int, error) {
	query, ok := countQueries[res]
	if !ok {
		return 0, fmt.Errorf("count %q: %w", res, core.ErrInvalidInput)
	}

	var n int
	if err := c.db.GetContext(ctx, &n, query, tenantID); err != nil {
		return 0, fmt.Errorf("count %s for %q: %w", res, tenantID, err)
	}

	return n, nil
}
