// AngelaMos | 2026
// context.go

package gate

import (
	"context"

	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

// SecurityContext is the single per-request answer to who is calling, for
// which tenant, with which privileges. Downstream code reads these fields
// and never re-derives them from the token.
type SecurityContext struct {
	RawToken  string
	Claims    token.Claims
	Principal *principal.Principal

	TenantID     string
	Tenant       *tenant.Tenant
	TenantSource tenant.Source

	IsSuperAdmin   bool
	IsEmulating    bool
	OriginalUserID string

	Signals tenant.Signals
}

// User is the tenant user acting, including the record linked to a super
// admin. It is nil for anonymous contexts and unlinked super admins.
func (sc *SecurityContext) User() *user.User {
	if sc == nil || sc.Principal == nil {
		return nil
	}
	return sc.Principal.User
}

// ActorID is the id written into created_by style fields: the tenant user
// when one exists, else the principal id.
func (sc *SecurityContext) ActorID() string {
	if u := sc.User(); u != nil {
		return u.ID
	}
	if sc == nil {
		return ""
	}
	return sc.Principal.ID()
}

func (sc *SecurityContext) Authenticated() bool {
	return sc != nil && sc.Principal != nil
}

func (sc *SecurityContext) clone() *SecurityContext {
	if sc == nil {
		return &SecurityContext{}
	}
	cp := *sc
	return &cp
}

type contextKey string

const securityContextKey contextKey = "security_context"

func WithContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey, sc)
}

func FromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey).(*SecurityContext)
	return sc, ok && sc != nil
}
