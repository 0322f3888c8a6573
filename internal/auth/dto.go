// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=128"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

type TokenResponse struct {
	Token        string    `json:"token"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int       `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TenantID     string    `json:"tenantId"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	RedirectURL  string    `json:"redirectUrl,omitempty"`
}

type PrincipalResponse struct {
	ID            string         `json:"id"`
	Kind          principal.Kind `json:"kind"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	TenantID      string         `json:"tenantId,omitempty"`
	Role          user.Role      `json:"role"`
	RoleName      string         `json:"roleName"`
	IsTenantAdmin bool           `json:"isTenantAdmin"`
}

type MeResponse struct {
	Principal      PrincipalResponse      `json:"principal"`
	TenantID       string                 `json:"tenantId,omitempty"`
	TenantSource   tenant.Source          `json:"tenantSource,omitempty"`
	Tenant         *tenant.TenantResponse `json:"tenant,omitempty"`
	IsSuperAdmin   bool                   `json:"isSuperAdmin"`
	IsEmulating    bool                   `json:"isEmulating"`
	OriginalUserID string                 `json:"originalUserId,omitempty"`
}

func ToTokenResponse(s Session, redirect string) TokenResponse {
	return TokenResponse{
		Token:        s.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.TTL.Seconds()),
		ExpiresAt:    s.ExpiresAt,
		TenantID:     s.TenantID,
		IsSuperAdmin: s.SuperAdmin,
		RedirectURL:  redirect,
	}
}

func ToPrincipalResponse(p *principal.Principal) PrincipalResponse {
	out := PrincipalResponse{
		ID:            p.ID(),
		Kind:          p.Kind,
		TenantID:      p.TenantID(),
		Role:          p.Role(),
		RoleName:      p.Role().String(),
		IsTenantAdmin: p.IsTenantAdmin(),
	}

	switch {
	case p.SuperAdmin != nil:
		out.Email = p.SuperAdmin.Email
		out.Name = p.SuperAdmin.Name
	case p.User != nil:
		out.Email = p.User.Email
		out.Name = p.User.Name
	}

	return out
}

func ToMeResponse(sc *gate.SecurityContext, urls tenant.URLBuilder) MeResponse {
	out := MeResponse{
		Principal:      ToPrincipalResponse(sc.Principal),
		TenantID:       sc.TenantID,
		TenantSource:   sc.TenantSource,
		IsSuperAdmin:   sc.IsSuperAdmin,
		IsEmulating:    sc.IsEmulating,
		OriginalUserID: sc.OriginalUserID,
	}
	if sc.Tenant != nil {
		t := tenant.ToResponse(sc.Tenant, urls)
		out.Tenant = &t
	}
	return out
}
