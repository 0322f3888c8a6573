// AngelaMos | 2026
// dto.go

package admin

import (
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type CreateTenantRequest struct {
	TenantID           string             `json:"tenantId"           validate:"required,min=1,max=63"`
	Name               string             `json:"name"               validate:"required,min=1,max=255"`
	Plan               string             `json:"plan"               validate:"max=64"`
	SubscriptionStatus string             `json:"subscriptionStatus" validate:"omitempty,oneof=trial active past_due cancelled"`
	Limits             tenant.LimitSet    `json:"limits"`
	Features           []string           `json:"features"           validate:"max=50,dive,min=1,max=64"`
	Admin              *FirstAdminRequest `json:"admin"`
}

// FirstAdminRequest creates the tenant's first admin in the same
// transaction as the tenant.
type FirstAdminRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name"     validate:"required,min=1,max=100"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended pending cancelled"`
}

type ChangePlanRequest struct {
	Plan               string `json:"plan"               validate:"required,max=64"`
	SubscriptionStatus string `json:"subscriptionStatus" validate:"omitempty,oneof=trial active past_due cancelled"`
}

type TenantDetailResponse struct {
	Tenant tenant.TenantResponse `json:"tenant"`
	Usage  []UsageLine           `json:"usage"`
	Admin  *user.UserResponse    `json:"admin,omitempty"`
}

// UsageLine is one resource as shown to the client, with Display in the
// "82/100 users" form.
type UsageLine struct {
	quota.Usage
	Display string `json:"display"`
}

type PlanResponse struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	MaxUsers     int      `json:"maxUsers"`
	MaxOrders    int      `json:"maxOrders"`
	MaxCustomers int      `json:"maxCustomers"`
	MaxCarriers  int      `json:"maxCarriers"`
	Features     []string `json:"features"`
	IsActive     bool     `json:"isActive"`
}

func ToUsageLines(usage []quota.Usage) []UsageLine {
	out := make([]UsageLine, 0, len(usage))
	for _, u := range usage {
		out = append(out, UsageLine{Usage: u, Display: u.String()})
	}
	return out
}

func ToPlanResponse(p tenant.Plan) PlanResponse {
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}
	return PlanResponse{
		ID:           p.ID,
		Slug:         p.Slug,
		Name:         p.Name,
		MaxUsers:     p.MaxUsers,
		MaxOrders:    p.MaxOrders,
		MaxCustomers: p.MaxCustomers,
		MaxCarriers:  p.MaxCarriers,
		Features:     features,
		IsActive:     p.IsActive,
	}
}
