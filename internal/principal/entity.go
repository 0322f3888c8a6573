// AngelaMos | 2026
// entity.go

package principal

import (
	"time"

	"github.com/carterperez-dev/tenantgate/internal/user"
)

// SuperAdmin is a platform operator. UserID optionally links the tenant user
// record that object-level fields such as created_by point at.
type SuperAdmin struct {
	ID                string     `db:"id"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"`
	Name              string     `db:"name"`
	UserID            *string    `db:"user_id"`
	IsActive          bool       `db:"is_active"`
	LoginAttempts     int        `db:"login_attempts"`
	LockUntil         *time.Time `db:"lock_until"`
	PasswordChangedAt *time.Time `db:"password_changed_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (a *SuperAdmin) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

type Kind string

const (
	KindTenantUser Kind = "tenant_user"
	KindSuperAdmin Kind = "super_admin"
)

// Principal is the authenticated actor. For KindSuperAdmin, User is the
// linked tenant user and may be nil.
type Principal struct {
	Kind       Kind
	User       *user.User
	SuperAdmin *SuperAdmin
}

func (p *Principal) ID() string {
	if p == nil {
		return ""
	}
	if p.Kind == KindSuperAdmin && p.SuperAdmin != nil {
		return p.SuperAdmin.ID
	}
	if p.User != nil {
		return p.User.ID
	}
	return ""
}

// TenantID is the principal's home tenant, empty for an unlinked super admin.
func (p *Principal) TenantID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.TenantID
}

func (p *Principal) Role() user.Role {
	if p == nil || p.User == nil {
		return user.RoleDriver
	}
	return p.User.Role
}

func (p *Principal) IsTenantAdmin() bool {
	return p != nil && p.User != nil && p.User.IsTenantAdmin
}

// IsStale reports whether a token issued at iat predates the last password
// change. Comparison is at second precision because iat is.
func IsStale(iat time.Time, changedAt *time.Time) bool {
	if iat.IsZero() || changedAt == nil {
		return false
	}
	return iat.Unix() < changedAt.Unix()
}
