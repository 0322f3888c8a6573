// AngelaMos | 2026
// plan.go

package tenant

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

// Plan is a subscription plan. Every limit is set; zero means unlimited.
type Plan struct {
	ID           string     `db:"id"`
	Slug         string     `db:"slug"`
	Name         string     `db:"name"`
	MaxUsers     int        `db:"max_users"`
	MaxOrders    int        `db:"max_orders"`
	MaxCustomers int        `db:"max_customers"`
	MaxCarriers  int        `db:"max_carriers"`
	Features     StringList `db:"features"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
}

func (p *Plan) Limits() LimitSet {
	return LimitSet{
		MaxUsers:     IntPtr(p.MaxUsers),
		MaxOrders:    IntPtr(p.MaxOrders),
		MaxCustomers: IntPtr(p.MaxCustomers),
		MaxCarriers:  IntPtr(p.MaxCarriers),
	}
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

type PlanRepository interface {
	// GetByRef finds a plan by uuid or slug.
	GetByRef(ctx context.Context, ref string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}

type planRepository struct {
	db core.DBTX
}

func NewPlanRepository(db core.DBTX) PlanRepository {
	return &planRepository{db: db}
}

const planColumns = `id, slug, name, max_users, max_orders, max_customers,
		       max_carriers, features, is_active, created_at`

func (r *planRepository) GetByRef(ctx context.Context, ref string) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE slug = $1`
	if _, err := uuid.Parse(ref); err == nil {
		query = `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`
	}

	var p Plan
	err := r.db.GetContext(ctx, &p, query, ref)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get plan %q: %w", ref, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %q: %w", ref, err)
	}

	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY max_users, slug`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}
