// AngelaMos | 2026
// service.go

package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/carterperez-dev/tenantgate/internal/core"
)

var idPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

var reservedIDs = map[string]struct{}{
	"platform": {},
	"www":      {},
	"admin":    {},
	"api":      {},
}

// ValidID reports whether id can serve as both a tenant key and a DNS label.
func ValidID(id string) bool {
	if _, reserved := reservedIDs[id]; reserved {
		return false
	}
	return idPattern.MatchString(id)
}

// OnboardFunc runs inside the tenant creation transaction, after the tenant
// row exists.
type OnboardFunc func(ctx context.Context, tx core.DBTX, t *Tenant) error

type Service struct {
	repo  Repository
	plans PlanRepository
	tx    core.TxRunner
	bind  func(core.DBTX) Repository
	now   func() time.Time
}

func NewService(
	repo Repository,
	plans PlanRepository,
	tx core.TxRunner,
	bind func(core.DBTX) Repository,
) *Service {
	return &Service{
		repo:  repo,
		plans: plans,
		tx:    tx,
		bind:  bind,
		now:   time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Tenant, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	return s.plans.List(ctx)
}

// Create inserts a tenant and, when onboard is non-nil, runs it in the same
// transaction so a failed first-admin insert leaves no orphan tenant.
func (s *Service) Create(ctx context.Context, in CreateInput, onboard OnboardFunc) (*Tenant, error) {
	if !ValidID(in.TenantID) {
		return nil, fmt.Errorf("create tenant %q: invalid id: %w", in.TenantID, core.ErrInvalidInput)
	}

	now := s.now().UTC()
	end := now.AddDate(0, 1, 0)

	t := &Tenant{
		TenantID:           in.TenantID,
		Name:               in.Name,
		Status:             StatusActive,
		PlanRef:            in.PlanRef,
		SubscriptionStatus: in.SubscriptionStatus,
		PeriodStart:        &now,
		PeriodEnd:          &end,
		Settings:           in.Settings,
	}
	if t.SubscriptionStatus == "" {
		t.SubscriptionStatus = SubscriptionTrial
	}

	if in.PlanRef != "" {
		plan, err := s.plans.GetByRef(ctx, in.PlanRef)
		if err != nil {
			return nil, fmt.Errorf("create tenant: %w", err)
		}
		t.PlanLimits = plan.Limits()
	}

	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		if err := s.bind(tx).Create(ctx, t); err != nil {
			return err
		}
		if onboard != nil {
			return onboard(ctx, tx, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	return t, nil
}

func (s *Service) ChangeStatus(ctx context.Context, id string, status Status) (*Tenant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("change tenant status: %q: %w", status, core.ErrInvalidInput)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("change tenant status: %w", err)
	}

	return s.repo.GetByID(ctx, id)
}

// ChangePlan links a new plan and snapshots its limits onto the tenant.
func (s *Service) ChangePlan(
	ctx context.Context,
	id, planRef string,
	status SubscriptionStatus,
) (*Tenant, error) {
	plan, err := s.plans.GetByRef(ctx, planRef)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("plan")
		}
		return nil, fmt.Errorf("change plan: %w", err)
	}

	if status == "" {
		status = SubscriptionActive
	}

	err = s.repo.UpdateSubscription(ctx, id, SubscriptionChange{
		PlanRef:    planRef,
		Status:     status,
		PlanLimits: plan.Limits(),
	})
	if err != nil {
		return nil, fmt.Errorf("change plan: %w", err)
	}

	return s.repo.GetByID(ctx, id)
}

func (s *Service) Purge(ctx context.Context, id string) error {
	err := s.tx.InTx(ctx, func(tx core.DBTX) error {
		return s.bind(tx).Purge(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return nil
}
