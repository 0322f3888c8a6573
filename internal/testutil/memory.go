// AngelaMos | 2026
// memory.go

// Package testutil holds in-memory stand-ins for the Postgres repositories.
// They are only imported from _test packages.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/tenantgate/internal/core"
	"github.com/carterperez-dev/tenantgate/internal/principal"
	"github.com/carterperez-dev/tenantgate/internal/quota"
	"github.com/carterperez-dev/tenantgate/internal/tenant"
	"github.com/carterperez-dev/tenantgate/internal/user"
)

// TxRunner runs fn without a real transaction.
type TxRunner struct{}

func (TxRunner) InTx(_ context.Context, fn func(tx core.DBTX) error) error {
	return fn(nil)
}

// TenantStore implements tenant.Repository.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
	users   *UserStore
}

func NewTenantStore(users *UserStore) *TenantStore {
	return &TenantStore{tenants: make(map[string]*tenant.Tenant), users: users}
}

// Bind ignores the transaction handle and returns the store itself.
func (m *TenantStore) Bind(core.DBTX) tenant.Repository {
	return m
}

func (m *TenantStore) Put(t *tenant.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tenants[t.TenantID] = &cp
}

func (m *TenantStore) Create(_ context.Context, t *tenant.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[t.TenantID]; exists {
		return core.ErrDuplicateKey
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tenants[t.TenantID] = &cp
	return nil
}

func (m *TenantStore) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *TenantStore) LockForUpdate(ctx context.Context, id string) (*tenant.Tenant, error) {
	return m.GetByID(ctx, id)
}

func (m *TenantStore) List(_ context.Context, params tenant.ListParams) ([]tenant.Tenant, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params.Normalize()

	var out []tenant.Tenant
	for _, t := range m.tenants {
		if params.Status != "" && t.Status != params.Status {
			continue
		}
		if params.Search != "" && !strings.Contains(t.TenantID+" "+t.Name, params.Search) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })

	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (m *TenantStore) UpdateStatus(_ context.Context, id string, status tenant.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return core.ErrNotFound
	}
	t.Status = status
	return nil
}

func (m *TenantStore) UpdateSubscription(_ context.Context, id string, sub tenant.SubscriptionChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return core.ErrNotFound
	}
	t.PlanRef = sub.PlanRef
	t.SubscriptionStatus = sub.Status
	t.PlanLimits = sub.PlanLimits
	return nil
}

func (m *TenantStore) Purge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.tenants, id)
	if m.users != nil {
		m.users.dropTenant(id)
	}
	return nil
}

// PlanStore implements tenant.PlanRepository.
type PlanStore struct {
	mu    sync.RWMutex
	plans map[string]*tenant.Plan
}

func NewPlanStore(plans ...tenant.Plan) *PlanStore {
	m := &PlanStore{plans: make(map[string]*tenant.Plan)}
	for i := range plans {
		m.Put(plans[i])
	}
	return m
}

func (m *PlanStore) Put(p tenant.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.plans[p.ID] = &p
}

func (m *PlanStore) GetByRef(_ context.Context, ref string) (*tenant.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plans {
		if p.ID == ref || p.Slug == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *PlanStore) List(_ context.Context) ([]tenant.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]tenant.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// UserStore implements user.Repository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*user.User)}
}

func (m *UserStore) Bind(core.DBTX) user.Repository {
	return m
}

// Put stores u as-is, assigning an id and active status when missing.
func (m *UserStore) Put(u *user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = user.StatusActive
	}
	cp := *u
	m.users[u.ID] = &cp
	return u
}

func (m *UserStore) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.DeletedAt == nil && existing.TenantID == u.TenantID &&
			strings.EqualFold(existing.Email, u.Email) {
			return core.ErrDuplicateKey
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *UserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *UserStore) GetInTenant(ctx context.Context, tenantID, id string) (*user.User, error) {
	u, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.TenantID != tenantID {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func (m *UserStore) GetByEmail(_ context.Context, tenantID, email string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.DeletedAt == nil && u.TenantID == tenantID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *UserStore) mutate(tenantID, id string, fn func(u *user.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil || (tenantID != "" && u.TenantID != tenantID) {
		return core.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (m *UserStore) UpdateRole(_ context.Context, tenantID, id string, role user.Role, isTenantAdmin bool) error {
	return m.mutate(tenantID, id, func(u *user.User) {
		u.Role = role
		u.IsTenantAdmin = isTenantAdmin
	})
}

func (m *UserStore) SetStatus(_ context.Context, tenantID, id string, status user.Status) error {
	return m.mutate(tenantID, id, func(u *user.User) { u.Status = status })
}

func (m *UserStore) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	return m.mutate("", id, func(u *user.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = &changedAt
	})
}

func (m *UserStore) RehashPassword(_ context.Context, id, hash string) error {
	return m.mutate("", id, func(u *user.User) { u.PasswordHash = hash })
}

func (m *UserStore) SoftDelete(_ context.Context, tenantID, id string) error {
	return m.mutate(tenantID, id, func(u *user.User) {
		now := time.Now()
		u.DeletedAt = &now
	})
}

func (m *UserStore) List(_ context.Context, tenantID string, params user.ListUsersParams) ([]user.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params.Normalize()

	var out []user.User
	for _, u := range m.users {
		if u.DeletedAt != nil || u.TenantID != tenantID {
			continue
		}
		if params.Role != nil && u.Role != *params.Role {
			continue
		}
		if params.Status != "" && u.Status != params.Status {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (m *UserStore) countLive(tenantID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, u := range m.users {
		if u.TenantID == tenantID && u.DeletedAt == nil {
			n++
		}
	}
	return n
}

func (m *UserStore) dropTenant(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.TenantID == tenantID {
			delete(m.users, id)
		}
	}
}

// SuperAdminStore implements principal.Repository.
type SuperAdminStore struct {
	mu     sync.Mutex
	admins map[string]*principal.SuperAdmin
}

func NewSuperAdminStore() *SuperAdminStore {
	return &SuperAdminStore{admins: make(map[string]*principal.SuperAdmin)}
}

func (m *SuperAdminStore) Put(a *principal.SuperAdmin) *principal.SuperAdmin {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	m.admins[a.ID] = &cp
	return a
}

func (m *SuperAdminStore) Create(_ context.Context, a *principal.SuperAdmin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return core.ErrDuplicateKey
		}
	}
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *SuperAdminStore) GetByID(_ context.Context, id string) (*principal.SuperAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *SuperAdminStore) GetByEmail(_ context.Context, email string) (*principal.SuperAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *SuperAdminStore) List(_ context.Context) ([]principal.SuperAdmin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]principal.SuperAdmin, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (m *SuperAdminStore) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return core.ErrNotFound
	}
	a.PasswordHash = hash
	a.PasswordChangedAt = &changedAt
	return nil
}

func (m *SuperAdminStore) RehashPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admins[id]; ok {
		a.PasswordHash = hash
	}
	return nil
}

// IncLoginAttempts mirrors the single-statement UPDATE of the SQL store.
func (m *SuperAdminStore) IncLoginAttempts(
	_ context.Context,
	id string,
	policy principal.LockPolicy,
	now time.Time,
) (principal.LoginState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.admins[id]
	if !ok {
		return principal.LoginState{}, core.ErrNotFound
	}

	switch {
	case a.LockUntil != nil && !a.LockUntil.After(now):
		a.LoginAttempts = 1
		a.LockUntil = nil
	case a.LockUntil == nil && a.LoginAttempts+1 >= policy.MaxAttempts:
		a.LoginAttempts++
		until := now.Add(policy.Duration)
		a.LockUntil = &until
	default:
		a.LoginAttempts++
	}

	return principal.LoginState{Attempts: a.LoginAttempts, LockUntil: a.LockUntil}, nil
}

func (m *SuperAdminStore) ResetLoginAttempts(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admins[id]; ok {
		a.LoginAttempts = 0
		a.LockUntil = nil
	}
	return nil
}

// Counter implements quota.Counter. Users are counted from the UserStore;
// other resources come from Set.
type Counter struct {
	mu     sync.RWMutex
	users  *UserStore
	counts map[string]map[quota.Resource]int
}

func NewCounter(users *UserStore) *Counter {
	return &Counter{users: users, counts: make(map[string]map[quota.Resource]int)}
}

func (c *Counter) Set(tenantID string, res quota.Resource, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[tenantID] == nil {
		c.counts[tenantID] = make(map[quota.Resource]int)
	}
	c.counts[tenantID][res] = n
}

func (c *Counter) Count(_ context.Context, tenantID string, res quota.Resource) (int, error) {
	if res == quota.Users && c.users != nil {
		return c.users.countLive(tenantID), nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[tenantID][res], nil
}
