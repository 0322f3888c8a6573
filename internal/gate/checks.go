// AngelaMos | 2026
// checks.go

package gate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type TokenVerifier interface {
	Verify(raw string) (token.Claims, error)
}

type PrincipalLoader interface {
	LoadTenantUser(ctx context.Context, id string, issuedAt time.Time) (*principal.Principal, error)
	LoadPlatform(ctx context.Context, id string, issuedAt time.Time) (*principal.Principal, error)
}

type TenantResolver interface {
	Candidate(s tenant.Signals) (string, tenant.Source)
	Resolve(ctx context.Context, id string, access tenant.Access) (*tenant.Tenant, error)
	PlatformTenantID() string
}

// TenantMode says whether a route needs a tenant.
type TenantMode int

const (
	TenantOptional TenantMode = iota
	TenantRequired
)

// Gate builds checks bound to the token, principal and tenant services.
type Gate struct {
	tokens     TokenVerifier
	principals PrincipalLoader
	tenants    TenantResolver
}

func New(tokens TokenVerifier, principals PrincipalLoader, tenants TenantResolver) *Gate {
	return &Gate{tokens: tokens, principals: principals, tenants: tenants}
}

// Authenticated is the standard pipeline: token, principal, tenant, then the
// given capability checks. Tenant-required routes always end with the
// tenant match.
func (g *Gate) Authenticated(mode TenantMode, capabilities ...Check) *Pipeline {
	checks := []Check{g.VerifyToken(), g.LoadPrincipal(), g.ResolveTenant(mode)}
	checks = append(checks, capabilities...)
	if mode == TenantRequired {
		checks = append(checks, RequireTenantMatch())
	}
	return NewPipeline(checks...)
}

// Platform guards super admin routes. It never resolves a tenant, so an
// emulation token for a tenant that has since left the active set still
// reaches the platform endpoints.
func (g *Gate) Platform(capabilities ...Check) *Pipeline {
	checks := []Check{g.VerifyToken(), g.LoadPrincipal(), RequireSuperAdmin()}
	return NewPipeline(append(checks, capabilities...)...)
}

// Public resolves only the tenant, for unauthenticated endpoints such as
// tenant login.
func (g *Gate) Public(mode TenantMode) *Pipeline {
	return NewPipeline(g.ResolveTenant(mode))
}

func (g *Gate) VerifyToken() Check {
	return NewCheck("verify_token", func(_ context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.RawToken == "" {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenMissing)
		}

		claims, err := g.tokens.Verify(sc.RawToken)
		if err != nil {
			return nil, err
		}

		next := sc.clone()
		next.Claims = claims
		if c, ok := claims.(token.EmulationClaims); ok {
			next.IsEmulating = true
			next.OriginalUserID = c.OriginalUserID
			next.Signals.EmulatedTenantID = c.EmulatedTenantID
		}
		return next, nil
	})
}

// LoadPrincipal turns verified claims into a principal. Emulation and
// platform claims are honored only after the super admin row is loaded and
// found active, unlocked and not stale.
func (g *Gate) LoadPrincipal() Check {
	return NewCheck("load_principal", func(ctx context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.Claims == nil {
			return nil, fmt.Errorf("load principal: %w", core.ErrTokenMissing)
		}

		next := sc.clone()

		switch c := sc.Claims.(type) {
		case token.EmulationClaims:
			p, err := g.principals.LoadPlatform(ctx, c.OperatorID, c.IssuedAt)
			if err != nil {
				return nil, err
			}
			next.Principal = p
			next.IsSuperAdmin = true
			next.IsEmulating = true
			next.OriginalUserID = c.OriginalUserID
			next.Signals.EmulatedTenantID = c.EmulatedTenantID

		case token.SessionClaims:
			if c.IsSuperAdmin || c.TenantID == g.tenants.PlatformTenantID() {
				p, err := g.principals.LoadPlatform(ctx, c.UserID, c.IssuedAt)
				if err != nil {
					return nil, err
				}
				next.Principal = p
				next.IsSuperAdmin = true
				break
			}

			p, err := g.principals.LoadTenantUser(ctx, c.UserID, c.IssuedAt)
			if err != nil {
				return nil, err
			}
			next.Principal = p
			next.Signals.PrincipalTenantID = p.TenantID()

		default:
			return nil, fmt.Errorf("load principal: %w", core.ErrTokenInvalid)
		}

		return next, nil
	})
}

func (g *Gate) ResolveTenant(mode TenantMode) Check {
	name := "resolve_tenant_optional"
	if mode == TenantRequired {
		name = "resolve_tenant"
	}

	return NewCheck(name, func(ctx context.Context, sc *SecurityContext) (*SecurityContext, error) {
		id, source := g.tenants.Candidate(sc.Signals)
		if id == "" {
			if mode == TenantRequired {
				return nil, fmt.Errorf("resolve tenant: %w", core.ErrTenantRequired)
			}
			return sc, nil
		}

		access := tenant.AccessStrict
		if sc.IsSuperAdmin {
			access = tenant.AccessPrivileged
		}

		t, err := g.tenants.Resolve(ctx, id, access)
		if err != nil {
			return nil, err
		}

		next := sc.clone()
		next.TenantID = t.TenantID
		next.Tenant = t
		next.TenantSource = source
		return next, nil
	})
}

// RequireRoles passes tenant users whose role is in roles. Super admins and
// tenant admins always pass.
func RequireRoles(roles ...user.Role) Check {
	return NewCheck("require_roles", func(_ context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.IsSuperAdmin {
			return sc, nil
		}
		if !sc.Authenticated() {
			return nil, fmt.Errorf("require roles: %w", core.ErrTokenMissing)
		}
		if sc.Principal.IsTenantAdmin() || slices.Contains(roles, sc.Principal.Role()) {
			return sc, nil
		}
		return nil, fmt.Errorf("require roles %v: %w", roles, core.ErrForbidden)
	})
}

func RequireTenantAdmin() Check {
	return NewCheck("require_tenant_admin", func(_ context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.IsSuperAdmin {
			return sc, nil
		}
		if !sc.Authenticated() {
			return nil, fmt.Errorf("require tenant admin: %w", core.ErrTokenMissing)
		}
		if sc.Principal.IsTenantAdmin() {
			return sc, nil
		}
		return nil, fmt.Errorf("require tenant admin: %w", core.ErrForbidden)
	})
}

func RequireSuperAdmin() Check {
	return NewCheck("require_super_admin", func(_ context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.IsSuperAdmin {
			return sc, nil
		}
		return nil, fmt.Errorf("require super admin: %w", core.ErrForbidden)
	})
}

// RequireTenantMatch keeps tenant users inside their own tenant. Super
// admins may cross tenants and an emulating context matches its emulated
// tenant.
func RequireTenantMatch() Check {
	return NewCheck("require_tenant_match", func(_ context.Context, sc *SecurityContext) (*SecurityContext, error) {
		if sc.TenantID == "" || sc.IsSuperAdmin {
			return sc, nil
		}
		if sc.IsEmulating && sc.Signals.EmulatedTenantID == sc.TenantID {
			return sc, nil
		}
		if !sc.Authenticated() {
			return nil, fmt.Errorf("require tenant match: %w", core.ErrTokenMissing)
		}
		if sc.Principal.TenantID() == sc.TenantID {
			return sc, nil
		}
		return nil, fmt.Errorf(
			"tenant %q requested by principal of %q: %w",
			sc.TenantID,
			sc.Principal.TenantID(),
			core.ErrTenantAccessDenied,
		)
	})
}
