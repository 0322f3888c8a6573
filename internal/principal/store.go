// AngelaMos | 2026
// store.go

package principal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Store loads principals and judges their current standing. Every load goes
// to the database; there is no cache.
type Store struct {
	users  UserReader
	admins Repository
	policy LockPolicy
	now    func() time.Time
}

func NewStore(users UserReader, admins Repository, cfg config.SecurityConfig) *Store {
	return &Store{
		users:  users,
		admins: admins,
		policy: LockPolicy{MaxAttempts: cfg.MaxLoginAttempts, Duration: cfg.LockDuration},
		now:    time.Now,
	}
}

// WithClock is used by tests that need a fixed notion of now.
func (s *Store) WithClock(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// LoadUser returns the tenant user behind a token issued at issuedAt. A zero
// issuedAt skips the staleness check (fresh credential logins).
func (s *Store) LoadUser(ctx context.Context, id string, issuedAt time.Time) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("load user %s: %w", id, core.ErrPrincipalNotFound)
		}
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}

	if u.IsDeleted() {
		return nil, fmt.Errorf("load user %s: %w", id, core.ErrPrincipalNotFound)
	}

	if !u.IsActive() {
		return nil, fmt.Errorf("load user %s: %w", id, core.ErrAccountSuspended)
	}

	if IsStale(issuedAt, u.PasswordChangedAt) {
		return nil, fmt.Errorf("load user %s: %w", id, core.ErrTokenStale)
	}

	return u, nil
}

func (s *Store) LoadSuperAdmin(ctx context.Context, id string, issuedAt time.Time) (*SuperAdmin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("load super admin %s: %w", id, core.ErrPrincipalNotFound)
		}
		return nil, fmt.Errorf("load super admin %s: %w", id, err)
	}

	if err := s.checkSuperAdmin(a, issuedAt); err != nil {
		return nil, fmt.Errorf("load super admin %s: %w", id, err)
	}

	return a, nil
}

func (s *Store) checkSuperAdmin(a *SuperAdmin, issuedAt time.Time) error {
	if !a.IsActive {
		return core.ErrAccountSuspended
	}
	if a.IsLocked(s.now()) {
		return core.ErrAccountLocked
	}
	if IsStale(issuedAt, a.PasswordChangedAt) {
		return core.ErrTokenStale
	}
	return nil
}

// LoadPlatform loads a super admin and, when linked, the tenant user that
// stands in for them in tenant-scoped records. The linked user is not
// required to be active: platform authority comes from the super admin row.
func (s *Store) LoadPlatform(ctx context.Context, id string, issuedAt time.Time) (*Principal, error) {
	a, err := s.LoadSuperAdmin(ctx, id, issuedAt)
	if err != nil {
		return nil, err
	}

	p := &Principal{Kind: KindSuperAdmin, SuperAdmin: a}
	if a.UserID == nil || *a.UserID == "" {
		return p, nil
	}

	u, err := s.users.GetByID(ctx, *a.UserID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("load linked user for %s: %w", id, err)
	}
	p.User = u

	return p, nil
}

func (s *Store) LoadTenantUser(ctx context.Context, id string, issuedAt time.Time) (*Principal, error) {
	u, err := s.LoadUser(ctx, id, issuedAt)
	if err != nil {
		return nil, err
	}
	return &Principal{Kind: KindTenantUser, User: u}, nil
}

// RecordLoginFailure bumps the attempt counter and reports whether the
// account is now locked. Nothing is written once ctx is done.
func (s *Store) RecordLoginFailure(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := s.now()
	state, err := s.admins.IncLoginAttempts(ctx, id, s.policy, now)
	if err != nil {
		return false, err
	}

	return state.LockUntil != nil && state.LockUntil.After(now), nil
}

func (s *Store) ResetLoginAttempts(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.admins.ResetLoginAttempts(ctx, id)
}

// CheckLoginAllowed is consulted before verifying a super admin password.
func (s *Store) CheckLoginAllowed(a *SuperAdmin) error {
	if !a.IsActive {
		return core.ErrAccountSuspended
	}
	if a.IsLocked(s.now()) {
		return core.ErrAccountLocked
	}
	return nil
}
