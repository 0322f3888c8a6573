// AngelaMos | 2026
// resolver.go

package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
)

// Source names the signal a tenant candidate came from.
type Source string

const (
	SourceNone      Source = ""
	SourceEmulation Source = "emulation"
	SourceHeader    Source = "header"
	SourcePrincipal Source = "principal"
	SourceSubdomain Source = "subdomain"
	SourceQuery     Source = "query"
)

// Signals are the raw tenant hints gathered from one request.
type Signals struct {
	EmulatedTenantID  string
	HeaderTenantID    string
	PrincipalTenantID string
	Host              string
	QueryTenantID     string
}

// Access selects which tenant statuses Resolve accepts.
type Access int

const (
	// AccessStrict accepts only active tenants.
	AccessStrict Access = iota
	// AccessPrivileged also accepts suspended tenants. Only a verified super
	// admin context may ask for it.
	AccessPrivileged
)

type Reader interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

type Resolver struct {
	tenants    Reader
	allowQuery bool
	reserved   []string
	platformID string
}

func NewResolver(tenants Reader, cfg config.TenancyConfig) *Resolver {
	reserved := make([]string, 0, len(cfg.ReservedSubdomains))
	for _, s := range cfg.ReservedSubdomains {
		reserved = append(reserved, strings.ToLower(s))
	}

	return &Resolver{
		tenants:    tenants,
		allowQuery: cfg.AllowQueryFallback,
		reserved:   reserved,
		platformID: cfg.PlatformTenantID,
	}
}

func (r *Resolver) PlatformTenantID() string {
	return r.platformID
}

// Candidate picks the tenant id by fixed priority: emulation claim, explicit
// header, principal's own tenant, subdomain, then the query parameter when
// that fallback is enabled.
func (r *Resolver) Candidate(s Signals) (string, Source) {
	if id := strings.TrimSpace(s.EmulatedTenantID); id != "" {
		return id, SourceEmulation
	}

	if id := strings.TrimSpace(s.HeaderTenantID); id != "" {
		return id, SourceHeader
	}

	if id := strings.TrimSpace(s.PrincipalTenantID); id != "" && id != r.platformID {
		return id, SourcePrincipal
	}

	if id := r.subdomain(s.Host); id != "" {
		return id, SourceSubdomain
	}

	if r.allowQuery {
		if id := strings.TrimSpace(s.QueryTenantID); id != "" {
			return id, SourceQuery
		}
	}

	return "", SourceNone
}

func (r *Resolver) subdomain(host string) string {
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) < 3 || labels[0] == "" {
		return ""
	}

	if slices.Contains(r.reserved, labels[0]) {
		return ""
	}

	return labels[0]
}

// Resolve loads the tenant and validates its standing. A missing tenant and
// a tenant whose status the access level does not admit are indistinguishable
// to the caller.
func (r *Resolver) Resolve(ctx context.Context, id string, access Access) (*Tenant, error) {
	if id == "" {
		return nil, fmt.Errorf("resolve tenant: %w", core.ErrTenantRequired)
	}

	t, err := r.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("resolve tenant %q: %w", id, core.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("resolve tenant %q: %w", id, err)
	}

	if !statusAllowed(t.Status, access) {
		return nil, fmt.Errorf("resolve tenant %q: status %s: %w", id, t.Status, core.ErrTenantNotFound)
	}

	if !t.SubscriptionStatus.Usable() {
		return nil, fmt.Errorf(
			"resolve tenant %q: subscription %s: %w",
			id,
			t.SubscriptionStatus,
			core.ErrSubscriptionInactive,
		)
	}

	return t, nil
}

func statusAllowed(s Status, access Access) bool {
	switch access {
	case AccessPrivileged:
		return s == StatusActive || s == StatusSuspended
	default:
		return s == StatusActive
	}
}
