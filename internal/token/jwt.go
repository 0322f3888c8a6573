// AngelaMos | 2026
// jwt.go

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/tenantgate/internal/config"
	"github.com/carterperez-dev/tenantgate/internal/core"
)

var errShortSecret = errors.New("token secret too short")

const minSecretLen = 32

// Service signs and verifies HS256 tokens. It performs no I/O.
type Service struct {
	key          jwk.Key
	issuer       string
	ttl          time.Duration
	emulationTTL time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg config.JWTConfig, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, errShortSecret
	}

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import secret: %w", err)
	}

	s := &Service{
		key:          key,
		issuer:       cfg.Issuer,
		ttl:          cfg.TokenTTL,
		emulationTTL: cfg.EmulationTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL and EmulationTTL are the configured lifetimes for the two token
// kinds.
func (s *Service) SessionTTL() time.Duration   { return s.ttl }
func (s *Service) EmulationTTL() time.Duration { return s.emulationTTL }

// Issue signs claims with iat = now and exp = now + ttl. IssuedAt and
// ExpiresAt on the input are ignored.
func (s *Service) Issue(claims Claims, ttl time.Duration) (string, error) {
	return s.IssueAt(claims, ttl, s.now())
}

// IssueAt signs claims as if issued at the given instant, truncated to the
// second. The password change flow uses it to place a fresh session after
// the change timestamp.
func (s *Service) IssueAt(claims Claims, ttl time.Duration, at time.Time) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: non-positive ttl: %w", core.ErrInvalidInput)
	}
	if claims == nil || claims.Subject() == "" {
		return "", fmt.Errorf("issue token: missing subject: %w", core.ErrInvalidInput)
	}

	now := at.Truncate(time.Second)

	b := jwt.NewBuilder().
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(claimID, claims.Subject()).
		Claim(claimKind, string(claims.Kind())).
		Claim(claimVersion, Version)
	if s.issuer != "" {
		b = b.Issuer(s.issuer)
	}

	switch c := claims.(type) {
	case SessionClaims:
		b = b.
			Claim(claimTenantID, c.TenantID).
			Claim(claimRole, c.Role).
			Claim(claimIsAdmin, c.IsAdmin).
			Claim(claimIsTenantAdmin, c.IsTenantAdmin).
			Claim(claimIsSuperAdmin, c.IsSuperAdmin)
	case EmulationClaims:
		if c.EmulatedTenantID == "" || c.OriginalUserID == "" {
			return "", fmt.Errorf("issue token: incomplete emulation claims: %w", core.ErrInvalidInput)
		}
		b = b.
			Claim(claimTenantID, c.EmulatedTenantID).
			Claim(claimIsSuperAdmin, true).
			Claim(claimIsEmulating, true).
			Claim(claimEmulatedTenantID, c.EmulatedTenantID).
			Claim(claimOriginalUserID, c.OriginalUserID)
	}

	tok, err := b.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), s.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks the signature and returns the typed claims. A correctly
// signed token past its exp always yields ErrTokenExpired; every other
// failure is ErrTokenInvalid.
func (s *Service) Verify(raw string) (Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenMissing)
	}

	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.HS256(), s.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	exp, ok := tok.Expiration()
	if !ok {
		return nil, fmt.Errorf("verify token: missing exp: %w", core.ErrTokenInvalid)
	}
	if !s.now().Before(exp) {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
	}

	iat, ok := tok.IssuedAt()
	if !ok {
		return nil, fmt.Errorf("verify token: missing iat: %w", core.ErrTokenInvalid)
	}

	if s.issuer != "" {
		if iss, _ := tok.Issuer(); iss != s.issuer {
			return nil, fmt.Errorf("verify token: issuer %q: %w", iss, core.ErrTokenInvalid)
		}
	}

	if ver, _ := numberClaim(tok, claimVersion); ver != Version {
		return nil, fmt.Errorf("verify token: version %d: %w", ver, core.ErrTokenInvalid)
	}

	id := stringClaim(tok, claimID)
	if id == "" {
		return nil, fmt.Errorf("verify token: missing id: %w", core.ErrTokenInvalid)
	}

	switch Kind(stringClaim(tok, claimKind)) {
	case KindSession:
		role, _ := numberClaim(tok, claimRole)
		return SessionClaims{
			UserID:        id,
			TenantID:      stringClaim(tok, claimTenantID),
			Role:          role,
			IsAdmin:       boolClaim(tok, claimIsAdmin),
			IsTenantAdmin: boolClaim(tok, claimIsTenantAdmin),
			IsSuperAdmin:  boolClaim(tok, claimIsSuperAdmin),
			IssuedAt:      iat,
			ExpiresAt:     exp,
		}, nil

	case KindEmulation:
		c := EmulationClaims{
			OperatorID:       id,
			EmulatedTenantID: stringClaim(tok, claimEmulatedTenantID),
			OriginalUserID:   stringClaim(tok, claimOriginalUserID),
			IssuedAt:         iat,
			ExpiresAt:        exp,
		}
		if !boolClaim(tok, claimIsEmulating) || c.EmulatedTenantID == "" || c.OriginalUserID == "" {
			return nil, fmt.Errorf("verify token: incomplete emulation claims: %w", core.ErrTokenInvalid)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("verify token: unknown kind: %w", core.ErrTokenInvalid)
	}
}

func stringClaim(tok jwt.Token, name string) string {
	var v string
	if err := tok.Get(name, &v); err != nil {
		return ""
	}
	return v
}

func boolClaim(tok jwt.Token, name string) bool {
	var v bool
	if err := tok.Get(name, &v); err != nil {
		return false
	}
	return v
}

// numberClaim reads a JSON number, which the parser decodes as float64.
func numberClaim(tok jwt.Token, name string) (int, bool) {
	var v float64
	if err := tok.Get(name, &v); err != nil {
		return 0, false
	}
	return int(v), true
}
