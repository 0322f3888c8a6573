// AngelaMos | 2026
// claims.go

package token

import (
	"time"
)

// Version is written into every token as "ver". Tokens carrying any other
// value are rejected as invalid.
const Version = 1

type Kind string

const (
	KindSession   Kind = "session"
	KindEmulation Kind = "emulation"
)

// Claims is a closed set: SessionClaims or EmulationClaims. Callers switch on
// the concrete type instead of probing optional fields.
type Claims interface {
	Kind() Kind
	Subject() string
	Issued() time.Time
	Expiry() time.Time
	sealed()
}

// SessionClaims is the plain login token for a tenant user or, with
// IsSuperAdmin and the platform tenant id, a super admin.
type SessionClaims struct {
	UserID        string
	TenantID      string
	Role          int
	IsAdmin       bool
	IsTenantAdmin bool
	IsSuperAdmin  bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

func (c SessionClaims) Kind() Kind        { return KindSession }
func (c SessionClaims) Subject() string   { return c.UserID }
func (c SessionClaims) Issued() time.Time { return c.IssuedAt }
func (c SessionClaims) Expiry() time.Time { return c.ExpiresAt }
func (SessionClaims) sealed()             {}

// EmulationClaims scope a super admin to one tenant. OperatorID and
// OriginalUserID are both the super admin id; stopping emulation reissues a
// platform session for OriginalUserID.
type EmulationClaims struct {
	OperatorID       string
	EmulatedTenantID string
	OriginalUserID   string
	IssuedAt         time.Time
	ExpiresAt        time.Time
}

func (c EmulationClaims) Kind() Kind        { return KindEmulation }
func (c EmulationClaims) Subject() string   { return c.OperatorID }
func (c EmulationClaims) Issued() time.Time { return c.IssuedAt }
func (c EmulationClaims) Expiry() time.Time { return c.ExpiresAt }
func (EmulationClaims) sealed()             {}

// wire claim names
const (
	claimID               = "id"
	claimKind             = "kind"
	claimVersion          = "ver"
	claimTenantID         = "tenantId"
	claimRole             = "role"
	claimIsAdmin          = "is_admin"
	claimIsTenantAdmin    = "isTenantAdmin"
	claimIsSuperAdmin     = "isSuperAdmin"
	claimIsEmulating      = "isEmulating"
	claimEmulatedTenantID = "emulatedTenantId"
	claimOriginalUserID   = "originalUserId"
)
