// AngelaMos | 2026
// url.go

package tenant

import (
	"strings"

	"github.com/carterperez-dev/tenantgate/internal/config"
)

// URLBuilder derives the redirect targets handed back after login and
// emulation switches.
type URLBuilder struct {
	scheme string
	domain string
}

func NewURLBuilder(cfg config.TenancyConfig, secure bool) URLBuilder {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return URLBuilder{scheme: scheme, domain: strings.TrimPrefix(cfg.Domain, ".")}
}

func (b URLBuilder) TenantURL(tenantID string) string {
	if b.domain == "" || tenantID == "" {
		return ""
	}
	return b.scheme + "://" + tenantID + "." + b.domain
}

func (b URLBuilder) AdminURL() string {
	if b.domain == "" {
		return ""
	}
	return b.scheme + "://admin." + b.domain
}
