// AngelaMos | 2026
// limits.go

package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
)

type Resource string

const (
	Users     Resource = tenant.ResourceUsers
	Orders    Resource = tenant.ResourceOrders
	Customers Resource = tenant.ResourceCustomers
	Carriers  Resource = tenant.ResourceCarriers
)

var Resources = []Resource{Users, Orders, Customers, Carriers}

func (r Resource) Valid() bool {
	switch r {
	case Users, Orders, Customers, Carriers:
		return true
	}
	return false
}

// Source records which tier of the resolution order produced a limit.
type Source string

const (
	SourcePlan     Source = "plan"
	SourceSnapshot Source = "plan_limits"
	SourceSettings Source = "settings"
	SourceDefault  Source = "default"
)

// Limit is a resolved ceiling. Max zero means unlimited.
type Limit struct {
	Max    int    `json:"max"`
	Source Source `json:"source"`
}

type Limits map[Resource]Limit

type tier struct {
	source Source
	set    tenant.LimitSet
}

type PlanReader interface {
	GetByRef(ctx context.Context, ref string) (*tenant.Plan, error)
}

// Resolver is the only place limits are derived. The order per resource is
// linked plan, plan_limits snapshot, tenant settings, then the configured
// default; the first tier that sets the resource wins outright.
type Resolver struct {
	plans    PlanReader
	defaults map[Resource]int
}

func NewResolver(plans PlanReader, cfg config.QuotaConfig) *Resolver {
	return &Resolver{
		plans: plans,
		defaults: map[Resource]int{
			Users:     cfg.MaxUsers,
			Orders:    cfg.MaxOrders,
			Customers: cfg.MaxCustomers,
			Carriers:  cfg.MaxCarriers,
		},
	}
}

func (r *Resolver) Resolve(ctx context.Context, t *tenant.Tenant) (Limits, error) {
	plan, err := r.linkedPlan(ctx, t)
	if err != nil {
		return nil, err
	}

	var tiers []tier
	if plan != nil {
		tiers = append(tiers, tier{SourcePlan, plan.Limits()})
	}
	tiers = append(tiers,
		tier{SourceSnapshot, t.PlanLimits},
		tier{SourceSettings, t.Settings.LimitSet},
	)

	out := make(Limits, len(Resources))
	for _, res := range Resources {
		out[res] = Limit{Max: r.defaults[res], Source: SourceDefault}
		for _, tr := range tiers {
			if v, ok := tr.set.Lookup(string(res)); ok {
				out[res] = Limit{Max: v, Source: tr.source}
				break
			}
		}
	}

	return out, nil
}

func (r *Resolver) Limit(ctx context.Context, t *tenant.Tenant, res Resource) (Limit, error) {
	limits, err := r.Resolve(ctx, t)
	if err != nil {
		return Limit{}, err
	}
	return limits[res], nil
}

// linkedPlan returns nil when the tenant references no plan or a plan that no
// longer exists; the lower tiers then apply.
func (r *Resolver) linkedPlan(ctx context.Context, t *tenant.Tenant) (*tenant.Plan, error) {
	if t.PlanRef == "" || r.plans == nil {
		return nil, nil
	}

	plan, err := r.plans.GetByRef(ctx, t.PlanRef)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve limits for %q: %w", t.TenantID, err)
	}

	return plan, nil
}
