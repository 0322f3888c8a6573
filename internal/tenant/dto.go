// AngelaMos | 2026
// dto.go

package tenant

import (
	"time"
)

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
	Search   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type CreateInput struct {
	TenantID           string
	Name               string
	PlanRef            string
	SubscriptionStatus SubscriptionStatus
	Settings           Settings
}

type TenantResponse struct {
	TenantID           string             `json:"tenantId"`
	Name               string             `json:"name"`
	Status             Status             `json:"status"`
	PlanRef            string             `json:"plan,omitempty"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	PeriodStart        *time.Time         `json:"currentPeriodStart,omitempty"`
	PeriodEnd          *time.Time         `json:"currentPeriodEnd,omitempty"`
	Features           []string           `json:"features,omitempty"`
	URL                string             `json:"url,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

func ToResponse(t *Tenant, urls URLBuilder) TenantResponse {
	return TenantResponse{
		TenantID:           t.TenantID,
		Name:               t.Name,
		Status:             t.Status,
		PlanRef:            t.PlanRef,
		SubscriptionStatus: t.SubscriptionStatus,
		PeriodStart:        t.PeriodStart,
		PeriodEnd:          t.PeriodEnd,
		Features:           t.Settings.Features,
		URL:                urls.TenantURL(t.TenantID),
		CreatedAt:          t.CreatedAt,
	}
}
