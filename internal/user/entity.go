// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// Role is the tenant-scoped role ordinal carried in tokens.
type Role int

const (
	RoleDriver     Role = 0
	RoleStaff      Role = 1
	RoleAccountant Role = 2
	RoleAdmin      Role = 3
)

func (r Role) Valid() bool {
	return r >= RoleDriver && r <= RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleDriver:
		return "driver"
	case RoleStaff:
		return "staff"
	case RoleAccountant:
		return "accountant"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is a tenant user. TenantID never changes after creation.
type User struct {
	ID                string     `db:"id"`
	TenantID          string     `db:"tenant_id"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"`
	Name              string     `db:"name"`
	Role              Role       `db:"role"`
	IsTenantAdmin     bool       `db:"is_tenant_admin"`
	Status            Status     `db:"status"`
	PasswordChangedAt *time.Time `db:"password_changed_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive && !u.IsDeleted()
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsTenantAdmin
}
