// AngelaMos | 2026
// env.go

package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

const (
	Secret   = "0123456789abcdef0123456789abcdef"
	Password = "correct horse battery"
	Domain   = "example.com"
)

// Env wires the real token, principal, tenant and gate services over the
// in-memory stores with a controllable clock.
type Env struct {
	Config *config.Config

	Users   *UserStore
	Tenants *TenantStore
	Plans   *PlanStore
	Admins  *SuperAdminStore
	Counter *Counter

	Tokens     *token.Service
	Principals *principal.Store
	Resolver   *tenant.Resolver
	Limits     *quota.Resolver
	Enforcer   *quota.Enforcer
	Gate       *gate.Gate

	mu  sync.Mutex
	now time.Time

	hashOnce sync.Once
	hash     string
}

func TestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "tenantgate", Environment: "test"},
		JWT: config.JWTConfig{
			Secret:       Secret,
			Issuer:       "tenantgate-test",
			TokenTTL:     24 * time.Hour,
			EmulationTTL: time.Hour,
			CookieTTL:    24 * time.Hour,
			CookieName:   token.DefaultCookieName,
		},
		Tenancy: config.TenancyConfig{
			Domain:             Domain,
			TenantHeader:       "X-Tenant-ID",
			ReservedSubdomains: []string{"www", "admin"},
			PlatformTenantID:   "platform",
		},
		Security: config.SecurityConfig{MaxLoginAttempts: 5, LockDuration: 2 * time.Hour},
		Quota:    config.QuotaConfig{MaxUsers: 5, MaxOrders: 500, MaxCustomers: 100, MaxCarriers: 50},
	}
}

func NewEnv(t testing.TB) *Env {
	t.Helper()
	return NewEnvWithConfig(t, TestConfig())
}

func NewEnvWithConfig(t testing.TB, cfg *config.Config) *Env {
	t.Helper()

	e := &Env{
		Config: cfg,
		Users:  NewUserStore(),
		Plans:  NewPlanStore(),
		Admins: NewSuperAdminStore(),
		now:    time.Now().Truncate(time.Second),
	}
	e.Tenants = NewTenantStore(e.Users)
	e.Counter = NewCounter(e.Users)

	tokens, err := token.NewService(cfg.JWT, token.WithClock(e.Now))
	require.NoError(t, err)
	e.Tokens = tokens

	e.Principals = principal.NewStore(e.Users, e.Admins, cfg.Security).WithClock(e.Now)
	e.Resolver = tenant.NewResolver(e.Tenants, cfg.Tenancy)
	e.Limits = quota.NewResolver(e.Plans, cfg.Quota)
	e.Enforcer = quota.NewEnforcer(e.Limits, e.Counter)
	e.Gate = gate.New(e.Tokens, e.Principals, e.Resolver)

	return e
}

func (e *Env) TenantService() *tenant.Service {
	return tenant.NewService(e.Tenants, e.Plans, TxRunner{}, e.Tenants.Bind)
}

// UserService builds a user service over the Env stores. strict selects the
// lock-and-recount creation path.
func (e *Env) UserService(strict bool) *user.Service {
	return user.NewService(e.Users, e.Enforcer, TxRunner{}, user.TxBinder{
		Users:   e.Users.Bind,
		Tenants: func(core.DBTX) user.TenantLocker { return e.Tenants },
		Counter: func(core.DBTX) quota.Counter { return e.Counter },
	}, strict)
}

func (e *Env) Now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *Env) Advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// PasswordHash is the argon2 hash of Password, computed once per Env.
func (e *Env) PasswordHash() string {
	e.hashOnce.Do(func() {
		h, err := core.HashPassword(Password)
		if err != nil {
			panic(err)
		}
		e.hash = h
	})
	return e.hash
}

// SeedTenant stores an active tenant on an active subscription.
func (e *Env) SeedTenant(id string, mutate ...func(*tenant.Tenant)) *tenant.Tenant {
	t := &tenant.Tenant{
		TenantID:           id,
		Name:               id,
		Status:             tenant.StatusActive,
		SubscriptionStatus: tenant.SubscriptionActive,
	}
	for _, fn := range mutate {
		fn(t)
	}
	e.Tenants.Put(t)
	return t
}

func (e *Env) SeedUser(tenantID, email string, role user.Role, tenantAdmin bool) *user.User {
	return e.Users.Put(&user.User{
		TenantID:      tenantID,
		Email:         email,
		PasswordHash:  e.PasswordHash(),
		Name:          email,
		Role:          role,
		IsTenantAdmin: tenantAdmin,
	})
}

// SeedSuperAdmin stores an active super admin with a linked platform user.
func (e *Env) SeedSuperAdmin(email string) (*principal.SuperAdmin, *user.User) {
	linked := e.SeedUser(e.Config.Tenancy.PlatformTenantID, email, user.RoleAdmin, true)
	a := e.Admins.Put(&principal.SuperAdmin{
		Email:        email,
		PasswordHash: e.PasswordHash(),
		Name:         email,
		UserID:       &linked.ID,
		IsActive:     true,
	})
	return a, linked
}

func (e *Env) SessionToken(t testing.TB, u *user.User) string {
	t.Helper()
	raw, err := e.Tokens.Issue(token.SessionClaims{
		UserID:        u.ID,
		TenantID:      u.TenantID,
		Role:          int(u.Role),
		IsAdmin:       u.IsAdmin(),
		IsTenantAdmin: u.IsTenantAdmin,
	}, e.Tokens.SessionTTL())
	require.NoError(t, err)
	return raw
}

func (e *Env) PlatformToken(t testing.TB, a *principal.SuperAdmin) string {
	t.Helper()
	raw, err := e.Tokens.Issue(token.SessionClaims{
		UserID:        a.ID,
		TenantID:      e.Config.Tenancy.PlatformTenantID,
		Role:          int(user.RoleAdmin),
		IsAdmin:       true,
		IsTenantAdmin: true,
		IsSuperAdmin:  true,
	}, e.Tokens.SessionTTL())
	require.NoError(t, err)
	return raw
}

func (e *Env) EmulationToken(t testing.TB, a *principal.SuperAdmin, tenantID string) string {
	t.Helper()
	raw, err := e.Tokens.Issue(token.EmulationClaims{
		OperatorID:       a.ID,
		EmulatedTenantID: tenantID,
		OriginalUserID:   a.ID,
	}, e.Tokens.EmulationTTL())
	require.NoError(t, err)
	return raw
}
