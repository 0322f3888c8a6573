// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserRepository interface {
	GetByEmail(ctx context.Context, tenantID, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	RehashPassword(ctx context.Context, id, passwordHash string) error
}

type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*principal.SuperAdmin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	RehashPassword(ctx context.Context, id, passwordHash string) error
}

type LoginGuard interface {
	CheckLoginAllowed(a *principal.SuperAdmin) error
	RecordLoginFailure(ctx context.Context, id string) (bool, error)
	ResetLoginAttempts(ctx context.Context, id string) error
}

type TokenIssuer interface {
	IssueAt(claims token.Claims, ttl time.Duration, at time.Time) (string, error)
	SessionTTL() time.Duration
}

// Session is a freshly issued credential. TenantID is the platform tenant for
// super admin sessions.
type Session struct {
	Token      string
	TenantID   string
	TTL        time.Duration
	ExpiresAt  time.Time
	Principal  *principal.Principal
	SuperAdmin bool
}

type Service struct {
	users      UserRepository
	admins     AdminRepository
	guard      LoginGuard
	tokens     TokenIssuer
	platformID string
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(
	users UserRepository,
	admins AdminRepository,
	guard LoginGuard,
	tokens TokenIssuer,
	platformID string,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		admins:     admins,
		guard:      guard,
		tokens:     tokens,
		platformID: platformID,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock must share its clock with the token issuer so password change
// stamps and iat compare on the same timeline.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// Login authenticates a tenant user against the tenant the gate resolved.
// Unknown emails cost one argon2 derivation like a wrong password.
func (s *Service) Login(ctx context.Context, t *tenant.Tenant, email, password string) (Session, error) {
	if t == nil {
		return Session{}, fmt.Errorf("login: %w", core.ErrTenantRequired)
	}

	u, err := s.users.GetByEmail(ctx, t.TenantID, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.VerifyPasswordTimingSafe(password, "")
			s.loginFailed(ctx, principal.KindTenantUser, "tenant_id", t.TenantID)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("login: %w", err)
	}

	check := core.VerifyPasswordTimingSafe(password, u.PasswordHash)
	if !check.Match {
		s.loginFailed(ctx, principal.KindTenantUser, "tenant_id", t.TenantID, "user_id", u.ID)
		return Session{}, ErrInvalidCredentials
	}

	if u.IsDeleted() || !u.IsActive() {
		return Session{}, fmt.Errorf("login %s: %w", u.ID, core.ErrAccountSuspended)
	}

	if check.Rehash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.RehashPassword(ctx, u.ID, check.Rehash)
	}

	return s.userSession(u, s.issueTime(u.PasswordChangedAt))
}

// PlatformLogin authenticates a super admin. Failures feed the per-account
// lockout counter; the attempt that reaches the threshold already answers
// AccountLocked.
func (s *Service) PlatformLogin(ctx context.Context, email, password string) (Session, error) {
	a, err := s.admins.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.VerifyPasswordTimingSafe(password, "")
			s.loginFailed(ctx, principal.KindSuperAdmin)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("platform login: %w", err)
	}

	if err := s.guard.CheckLoginAllowed(a); err != nil {
		return Session{}, fmt.Errorf("platform login %s: %w", a.ID, err)
	}

	check := core.VerifyPasswordTimingSafe(password, a.PasswordHash)
	if !check.Match {
		s.loginFailed(ctx, principal.KindSuperAdmin, "super_admin_id", a.ID)

		locked, err := s.guard.RecordLoginFailure(ctx, a.ID)
		if err != nil {
			return Session{}, fmt.Errorf("platform login %s: %w", a.ID, err)
		}
		if locked {
			s.logger.WarnContext(ctx, "super admin locked out", "super_admin_id", a.ID)
			return Session{}, fmt.Errorf("platform login %s: %w", a.ID, core.ErrAccountLocked)
		}
		return Session{}, ErrInvalidCredentials
	}

	if a.LoginAttempts > 0 || a.LockUntil != nil {
		if err := s.guard.ResetLoginAttempts(ctx, a.ID); err != nil {
			return Session{}, fmt.Errorf("platform login %s: %w", a.ID, err)
		}
	}

	if check.Rehash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.admins.RehashPassword(ctx, a.ID, check.Rehash)
	}

	return s.platformSession(&principal.Principal{Kind: principal.KindSuperAdmin, SuperAdmin: a}, s.issueTime(a.PasswordChangedAt))
}

// ChangePassword verifies the current password, stamps the change time and
// returns a token issued at that instant. Every earlier token goes stale.
func (s *Service) ChangePassword(ctx context.Context, sc *gate.SecurityContext, current, next string) (Session, error) {
	if !sc.Authenticated() {
		return Session{}, fmt.Errorf("change password: %w", core.ErrUnauthorized)
	}
	if sc.IsEmulating {
		return Session{}, fmt.Errorf("change password while emulating: %w", core.ErrForbidden)
	}

	p := sc.Principal
	stored := ""
	switch {
	case p.Kind == principal.KindSuperAdmin && p.SuperAdmin != nil:
		stored = p.SuperAdmin.PasswordHash
	case p.User != nil:
		stored = p.User.PasswordHash
	}

	if !core.VerifyPasswordTimingSafe(current, stored).Match {
		return Session{}, ErrInvalidCredentials
	}

	hash, err := core.HashPassword(next)
	if err != nil {
		return Session{}, fmt.Errorf("change password: %w", err)
	}

	// iat has second precision. Stamping the next second stales every token
	// already issued, including ones from the current second.
	changedAt := s.now().Truncate(time.Second).Add(time.Second)

	if p.Kind == principal.KindSuperAdmin {
		a := *p.SuperAdmin
		if err := s.admins.UpdatePassword(ctx, a.ID, hash, changedAt); err != nil {
			return Session{}, fmt.Errorf("change password: %w", err)
		}
		a.PasswordHash = hash
		a.PasswordChangedAt = &changedAt
		s.logger.InfoContext(ctx, "super admin password changed", "super_admin_id", a.ID)
		return s.platformSession(&principal.Principal{Kind: p.Kind, User: p.User, SuperAdmin: &a}, changedAt)
	}

	u := *p.User
	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		return Session{}, fmt.Errorf("change password: %w", err)
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	s.logger.InfoContext(ctx, "password changed", "user_id", u.ID, "tenant_id", u.TenantID)

	return s.userSession(&u, changedAt)
}

func (s *Service) userSession(u *user.User, at time.Time) (Session, error) {
	ttl := s.tokens.SessionTTL()

	raw, err := s.tokens.IssueAt(token.SessionClaims{
		UserID:        u.ID,
		TenantID:      u.TenantID,
		Role:          int(u.Role),
		IsAdmin:       u.IsAdmin(),
		IsTenantAdmin: u.IsTenantAdmin,
	}, ttl, at)
	if err != nil {
		return Session{}, fmt.Errorf("issue session: %w", err)
	}

	return Session{
		Token:     raw,
		TenantID:  u.TenantID,
		TTL:       ttl,
		ExpiresAt: at.Add(ttl),
		Principal: &principal.Principal{Kind: principal.KindTenantUser, User: u},
	}, nil
}

func (s *Service) platformSession(p *principal.Principal, at time.Time) (Session, error) {
	ttl := s.tokens.SessionTTL()

	raw, err := s.tokens.IssueAt(token.SessionClaims{
		UserID:        p.SuperAdmin.ID,
		TenantID:      s.platformID,
		Role:          int(user.RoleAdmin),
		IsAdmin:       true,
		IsTenantAdmin: true,
		IsSuperAdmin:  true,
	}, ttl, at)
	if err != nil {
		return Session{}, fmt.Errorf("issue platform session: %w", err)
	}

	return Session{
		Token:      raw,
		TenantID:   s.platformID,
		TTL:        ttl,
		ExpiresAt:  at.Add(ttl),
		Principal:  p,
		SuperAdmin: true,
	}, nil
}

// issueTime keeps a login that lands in the same second as a password change
// from minting a token that is already stale.
func (s *Service) issueTime(changedAt *time.Time) time.Time {
	now := s.now()
	if changedAt != nil && now.Before(*changedAt) {
		return *changedAt
	}
	return now
}

func (s *Service) loginFailed(ctx context.Context, kind principal.Kind, attrs ...any) {
	core.LoginFailures.WithLabelValues(string(kind)).Inc()
	s.logger.InfoContext(ctx, "login failed", append([]any{"principal", kind}, attrs...)...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
