// AngelaMos | 2026
// repository.go

package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	// LockForUpdate reads the tenant row with SELECT ... FOR UPDATE; it
	// only serializes anything when the repository wraps a transaction.
	LockForUpdate(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context, params ListParams) ([]Tenant, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateSubscription(ctx context.Context, id string, sub SubscriptionChange) error
	Purge(ctx context.Context, id string) error
}

type SubscriptionChange struct {
	PlanRef    string
	Status     SubscriptionStatus
	PlanLimits LimitSet
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const tenantColumns = `tenant_id, name, status, plan_ref, subscription_status,
		       current_period_start, current_period_end, plan_limits, settings,
		       created_at, updated_at`

func (r *repository) Create(ctx context.Context, t *Tenant) error {
	query := `
		INSERT INTO tenants (tenant_id, name, status, plan_ref, subscription_status,
		                     current_period_start, current_period_end, plan_limits, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, t, query,
		t.TenantID,
		t.Name,
		t.Status,
		t.PlanRef,
		t.SubscriptionStatus,
		t.PeriodStart,
		t.PeriodEnd,
		t.PlanLimits,
		t.Settings,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create tenant: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, id)
}

func (r *repository) LockForUpdate(ctx context.Context, id string) (*Tenant, error) {
	return r.get(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1 FOR UPDATE`, id)
}

func (r *repository) get(ctx context.Context, query, id string) (*Tenant, error) {
	var t Tenant
	err := r.db.GetContext(ctx, &t, query, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get tenant %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %q: %w", id, err)
	}

	return &t, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Tenant, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(tenant_id ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM tenants WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tenants
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		tenantColumns, where, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var tenants []Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	return tenants, total, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE tenants SET status = $2, updated_at = NOW() WHERE tenant_id = $1`
	return r.execOne(ctx, "update tenant status", query, id, status)
}

func (r *repository) UpdateSubscription(
	ctx context.Context,
	id string,
	sub SubscriptionChange,
) error {
	query := `
		UPDATE tenants
		SET plan_ref = $2,
		    subscription_status = $3,
		    plan_limits = $4,
		    current_period_start = NOW(),
		    current_period_end = NOW() + INTERVAL '1 month',
		    updated_at = NOW()
		WHERE tenant_id = $1`
	return r.execOne(ctx, "update tenant subscription", query, id, sub.PlanRef, sub.Status, sub.PlanLimits)
}

// purgeStatements run in order; child tables first.
var purgeStatements = []string{
	`DELETE FROM trailers WHERE tenant_id = $1`,
	`DELETE FROM trucks WHERE tenant_id = $1`,
	`DELETE FROM orders WHERE tenant_id = $1`,
	`DELETE FROM customers WHERE tenant_id = $1`,
	`DELETE FROM carriers WHERE tenant_id = $1`,
	`UPDATE super_admins SET user_id = NULL
	 WHERE user_id IN (SELECT id FROM users WHERE tenant_id = $1)`,
	`DELETE FROM users WHERE tenant_id = $1`,
}

// Purge irreversibly removes the tenant and every row it owns. Callers run
// it inside a transaction.
func (r *repository) Purge(ctx context.Context, id string) error {
	for _, stmt := range purgeStatements {
		if _, err := r.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("purge tenant %q: %w", id, err)
		}
	}

	return r.execOne(ctx, "purge tenant", `DELETE FROM tenants WHERE tenant_id = $1`, id)
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}
