// AngelaMos | 2026
// entity.go

package tenant

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusPending, StatusCancelled:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Usable reports whether the subscription permits requests at all.
func (s SubscriptionStatus) Usable() bool {
	return s == SubscriptionActive || s == SubscriptionTrial
}

// Tenant is one customer organization. TenantID is immutable and doubles as
// the subdomain.
type Tenant struct {
	TenantID           string             `db:"tenant_id"`
	Name               string             `db:"name"`
	Status             Status             `db:"status"`
	PlanRef            string             `db:"plan_ref"`
	SubscriptionStatus SubscriptionStatus `db:"subscription_status"`
	PeriodStart        *time.Time         `db:"current_period_start"`
	PeriodEnd          *time.Time         `db:"current_period_end"`
	PlanLimits         LimitSet           `db:"plan_limits"`
	Settings           Settings           `db:"settings"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// Resource names shared by limit sets, plans and quota checks.
const (
	ResourceUsers     = "users"
	ResourceOrders    = "orders"
	ResourceCustomers = "customers"
	ResourceCarriers  = "carriers"
)

// LimitSet holds optional per-resource ceilings. A nil field means "not set
// here"; zero means unlimited.
type LimitSet struct {
	MaxUsers     *int `json:"maxUsers,omitempty"`
	MaxOrders    *int `json:"maxOrders,omitempty"`
	MaxCustomers *int `json:"maxCustomers,omitempty"`
	MaxCarriers  *int `json:"maxCarriers,omitempty"`
}

func (l LimitSet) Lookup(resource string) (int, bool) {
	var v *int
	switch resource {
	case ResourceUsers:
		v = l.MaxUsers
	case ResourceOrders:
		v = l.MaxOrders
	case ResourceCustomers:
		v = l.MaxCustomers
	case ResourceCarriers:
		v = l.MaxCarriers
	}
	if v == nil || *v < 0 {
		return 0, false
	}
	return *v, true
}

func (l LimitSet) IsEmpty() bool {
	return l.MaxUsers == nil && l.MaxOrders == nil && l.MaxCustomers == nil && l.MaxCarriers == nil
}

func (l LimitSet) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LimitSet) Scan(src any) error {
	return scanJSON(src, l)
}

// Settings is the tenant-local fallback used only when no plan resolves.
type Settings struct {
	LimitSet
	Features []string `json:"features,omitempty"`
}

func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Settings) Scan(src any) error {
	return scanJSON(src, s)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("scan json: unsupported type %T", src)
	}
}

func IntPtr(v int) *int {
	return &v
}
