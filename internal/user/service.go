// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
)

// Caller is what the handlers need to know about the gated request.
type Caller struct {
	Tenant  *tenant.Tenant
	ActorID string
	// Bypass skips plan limits (super admin and emulation contexts).
	Bypass bool
}

type CallerFunc func(ctx context.Context) (Caller, bool)

type TenantLocker interface {
	LockForUpdate(ctx context.Context, id string) (*tenant.Tenant, error)
}

// TxBinder builds repositories bound to one transaction for the strict
// creation path.
type TxBinder struct {
	Users   func(core.DBTX) Repository
	Tenants func(core.DBTX) TenantLocker
	Counter func(core.DBTX) quota.Counter
}

type Service struct {
	repo   Repository
	quota  *quota.Enforcer
	tx     core.TxRunner
	bind   TxBinder
	strict bool
}

func NewService(
	repo Repository,
	enforcer *quota.Enforcer,
	tx core.TxRunner,
	bind TxBinder,
	strict bool,
) *Service {
	return &Service{
		repo:   repo,
		quota:  enforcer,
		tx:     tx,
		bind:   bind,
		strict: strict,
	}
}

type CreateInput struct {
	Email         string
	Password      string
	Name          string
	Role          Role
	IsTenantAdmin bool
}

// Create adds a tenant user after the users quota check. In strict mode the
// tenant row is locked and the count repeated inside the insert transaction,
// so concurrent creations cannot overshoot the limit.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*User, quota.Usage, error) {
	if caller.Tenant == nil {
		return nil, quota.Usage{}, fmt.Errorf("create user: %w", core.ErrTenantRequired)
	}

	u, err := s.newUser(caller.Tenant.TenantID, in)
	if err != nil {
		return nil, quota.Usage{}, err
	}

	req := quota.Request{Tenant: caller.Tenant, Resource: quota.Users, Additional: 1, Bypass: caller.Bypass}

	if !s.strict || caller.Bypass {
		usage, checked := quota.UsageFromContext(ctx)
		if !checked || usage.Resource != quota.Users {
			usage, err = s.quota.CheckLimit(ctx, req)
			if err != nil {
				return nil, usage, err
			}
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, usage, err
		}
		usage.Current++
		return u, usage, nil
	}

	var usage quota.Usage
	err = s.tx.InTx(ctx, func(tx core.DBTX) error {
		locked, err := s.bind.Tenants(tx).LockForUpdate(ctx, caller.Tenant.TenantID)
		if err != nil {
			return err
		}

		req.Tenant = locked
		usage, err = s.quota.WithCounter(s.bind.Counter(tx)).CheckLimit(ctx, req)
		if err != nil {
			return err
		}

		return s.bind.Users(tx).Create(ctx, u)
	})
	if err != nil {
		return nil, usage, err
	}

	usage.Current++
	return u, usage, nil
}

// CreateIn inserts a user through db without a quota check. Used for the
// first tenant admin during onboarding.
func (s *Service) CreateIn(ctx context.Context, db core.DBTX, tenantID string, in CreateInput) (*User, error) {
	u, err := s.newUser(tenantID, in)
	if err != nil {
		return nil, err
	}

	repo := s.repo
	if db != nil && s.bind.Users != nil {
		repo = s.bind.Users(db)
	}

	if err := repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) newUser(tenantID string, in CreateInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("create user: role %d: %w", in.Role, core.ErrInvalidInput)
	}

	hash, err := core.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &User{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:  hash,
		Name:          in.Name,
		Role:          in.Role,
		IsTenantAdmin: in.IsTenantAdmin,
		Status:        StatusActive,
	}, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*User, error) {
	return s.repo.GetInTenant(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID string, params ListUsersParams) ([]User, int, error) {
	return s.repo.List(ctx, tenantID, params)
}

func (s *Service) UpdateRole(
	ctx context.Context,
	tenantID, id string,
	role Role,
	isTenantAdmin bool,
) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("update role: role %d: %w", role, core.ErrInvalidInput)
	}

	if err := s.repo.UpdateRole(ctx, tenantID, id, role, isTenantAdmin); err != nil {
		return nil, err
	}

	return s.repo.GetInTenant(ctx, tenantID, id)
}

// Deactivate blocks the user on their next request; existing tokens fail
// with AccountSuspended.
func (s *Service) Deactivate(ctx context.Context, tenantID, id string) (*User, error) {
	if err := s.repo.SetStatus(ctx, tenantID, id, StatusInactive); err != nil {
		return nil, err
	}
	return s.repo.GetInTenant(ctx, tenantID, id)
}

func (s *Service) Activate(ctx context.Context, tenantID, id string) (*User, error) {
	if err := s.repo.SetStatus(ctx, tenantID, id, StatusActive); err != nil {
		return nil, err
	}
	return s.repo.GetInTenant(ctx, tenantID, id)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	return s.repo.SoftDelete(ctx, tenantID, id)
}
