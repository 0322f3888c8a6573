// AngelaMos | 2026
// manager.go

package emulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/gate"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/token"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type TokenIssuer interface {
	Issue(claims token.Claims, ttl time.Duration) (string, error)
	SessionTTL() time.Duration
	EmulationTTL() time.Duration
}

// Session is a freshly minted token and what it is scoped to. TenantID is
// empty for the platform session returned by Stop.
type Session struct {
	Token     string
	TenantID  string
	TTL       time.Duration
	ExpiresAt time.Time
}

// Manager mints emulation tokens. Nothing is stored: an emulation ends when
// its token expires or is replaced by the one Stop returns.
type Manager struct {
	tokens     TokenIssuer
	tenants    tenant.Reader
	platformID string
	now        func() time.Time
	logger     *slog.Logger
}

func NewManager(tokens TokenIssuer, tenants tenant.Reader, platformID string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tokens:     tokens,
		tenants:    tenants,
		platformID: platformID,
		now:        time.Now,
		logger:     logger,
	}
}

// Start scopes the calling super admin to target. The tenant must exist but
// may be in any status, so operators can inspect suspended tenants.
func (m *Manager) Start(ctx context.Context, sc *gate.SecurityContext, target string) (Session, error) {
	operator, err := operatorID(sc)
	if err != nil {
		return Session{}, err
	}

	if target == "" {
		return Session{}, fmt.Errorf("start emulation: %w", core.ErrTenantRequired)
	}

	t, err := m.tenants.GetByID(ctx, target)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Session{}, fmt.Errorf("start emulation of %q: %w", target, core.ErrTenantNotFound)
		}
		return Session{}, fmt.Errorf("start emulation of %q: %w", target, err)
	}

	ttl := m.tokens.EmulationTTL()
	now := m.now()
	raw, err := m.tokens.Issue(token.EmulationClaims{
		OperatorID:       operator,
		EmulatedTenantID: t.TenantID,
		OriginalUserID:   operator,
	}, ttl)
	if err != nil {
		return Session{}, fmt.Errorf("start emulation: %w", err)
	}

	core.EmulationSessions.WithLabelValues("start").Inc()
	m.logger.InfoContext(ctx, "emulation started",
		"operator_id", operator,
		"tenant_id", t.TenantID,
		"tenant_status", t.Status,
		"switched_from", sc.Signals.EmulatedTenantID,
	)

	return Session{Token: raw, TenantID: t.TenantID, TTL: ttl, ExpiresAt: now.Add(ttl)}, nil
}

// Stop returns a platform session for the original operator. It fails with
// ErrNotEmulating unless the context came from an emulation token.
func (m *Manager) Stop(ctx context.Context, sc *gate.SecurityContext) (Session, error) {
	if sc == nil || !sc.IsEmulating || sc.OriginalUserID == "" {
		return Session{}, fmt.Errorf("stop emulation: %w", core.ErrNotEmulating)
	}

	ttl := m.tokens.SessionTTL()
	now := m.now()
	raw, err := m.tokens.Issue(token.SessionClaims{
		UserID:        sc.OriginalUserID,
		TenantID:      m.platformID,
		Role:          int(user.RoleAdmin),
		IsAdmin:       true,
		IsTenantAdmin: true,
		IsSuperAdmin:  true,
	}, ttl)
	if err != nil {
		return Session{}, fmt.Errorf("stop emulation: %w", err)
	}

	core.EmulationSessions.WithLabelValues("stop").Inc()
	m.logger.InfoContext(ctx, "emulation stopped",
		"operator_id", sc.OriginalUserID,
		"tenant_id", sc.Signals.EmulatedTenantID,
	)

	return Session{Token: raw, TTL: ttl, ExpiresAt: now.Add(ttl)}, nil
}

func operatorID(sc *gate.SecurityContext) (string, error) {
	if sc == nil || !sc.IsSuperAdmin || sc.Principal == nil || sc.Principal.SuperAdmin == nil {
		return "", fmt.Errorf("start emulation: %w", core.ErrForbidden)
	}
	return sc.Principal.SuperAdmin.ID, nil
}
