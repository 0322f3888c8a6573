// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const minSecretLen = 32

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Tenancy   TenancyConfig   `koanf:"tenancy"`
	Security  SecurityConfig  `koanf:"security"`
	Quota     QuotaConfig     `koanf:"quota"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	Secret       string        `koanf:"secret"`
	Issuer       string        `koanf:"issuer"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
	EmulationTTL time.Duration `koanf:"emulation_ttl"`
	CookieTTL    time.Duration `koanf:"cookie_ttl"`
	CookieName   string        `koanf:"cookie_name"`
}

type TenancyConfig struct {
	Domain             string   `koanf:"domain"`
	TenantHeader       string   `koanf:"tenant_header"`
	AllowQueryFallback bool     `koanf:"allow_query_fallback"`
	ReservedSubdomains []string `koanf:"reserved_subdomains"`
	PlatformTenantID   string   `koanf:"platform_tenant_id"`
}

type SecurityConfig struct {
	MaxLoginAttempts int           `koanf:"max_login_attempts"`
	LockDuration     time.Duration `koanf:"lock_duration"`
}

type QuotaConfig struct {
	Strict       bool `koanf:"strict"`
	MaxUsers     int  `koanf:"max_users"`
	MaxOrders    int  `koanf:"max_orders"`
	MaxCustomers int  `koanf:"max_customers"`
	MaxCarriers  int  `koanf:"max_carriers"`
}

type RateLimitConfig struct {
	Requests      int           `koanf:"requests"`
	Window        time.Duration `koanf:"window"`
	Burst         int           `koanf:"burst"`
	LoginRequests int           `koanf:"login_requests"`
	LoginWindow   time.Duration `koanf:"login_window"`
	// Tiers budgets each tenant by plan slug; tenants on other plans get
	// Requests/Burst.
	Tiers map[string]RateTier `koanf:"tiers"`
}

type RateTier struct {
	Requests int `koanf:"requests"`
	Burst    int `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (later wins).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func Defaults() map[string]any {
	return map[string]any{
		"app.name":        "tenantgate",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.issuer":        "tenantgate",
		"jwt.token_ttl":     "24h",
		"jwt.emulation_ttl": "1h",
		"jwt.cookie_ttl":    "24h",
		"jwt.cookie_name":   "jwt",

		"tenancy.domain":               "localhost",
		"tenancy.tenant_header":        "X-Tenant-ID",
		"tenancy.allow_query_fallback": false,
		"tenancy.reserved_subdomains":  []string{"www", "admin"},
		"tenancy.platform_tenant_id":   "platform",

		"security.max_login_attempts": 5,
		"security.lock_duration":      "2h",

		"quota.strict":        false,
		"quota.max_users":     5,
		"quota.max_orders":    500,
		"quota.max_customers": 100,
		"quota.max_carriers":  50,

		"rate_limit.requests":       100,
		"rate_limit.window":         "1m",
		"rate_limit.burst":          20,
		"rate_limit.login_requests": 10,
		"rate_limit.login_window":   "1m",

		"rate_limit.tiers.starter.requests": 60,
		"rate_limit.tiers.starter.burst":    10,
		"rate_limit.tiers.pro.requests":     600,
		"rate_limit.tiers.pro.burst":        100,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Tenant-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "tenantgate",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}
}

func loadDefaults(k *koanf.Koanf) error {
	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_SECRET":                  "jwt.secret",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_TOKEN_TTL":               "jwt.token_ttl",
	"JWT_EMULATION_TTL":           "jwt.emulation_ttl",
	"JWT_COOKIE_TTL":              "jwt.cookie_ttl",
	"DOMAIN":                      "tenancy.domain",
	"TENANT_HEADER":               "tenancy.tenant_header",
	"TENANT_QUERY_FALLBACK":       "tenancy.allow_query_fallback",
	"MAX_LOGIN_ATTEMPTS":          "security.max_login_attempts",
	"LOGIN_LOCK_DURATION":         "security.lock_duration",
	"QUOTA_STRICT":                "quota.strict",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"METRICS_ENABLED":             "metrics.enabled",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if len(c.JWT.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen))
	}

	if c.JWT.TokenTTL <= 0 || c.JWT.EmulationTTL <= 0 || c.JWT.CookieTTL <= 0 {
		errs = append(errs, errors.New("jwt ttls must be positive"))
	}

	if c.Tenancy.PlatformTenantID == "" {
		errs = append(errs, errors.New("tenancy.platform_tenant_id is required"))
	}

	if c.Security.MaxLoginAttempts <= 0 || c.Security.LockDuration <= 0 {
		errs = append(errs, errors.New("security lockout settings must be positive"))
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				errs = append(errs, errors.New("CORS wildcard '*' cannot be used with AllowCredentials"))
			}
		}
	}

	if c.IsProduction() {
		if c.Tenancy.AllowQueryFallback {
			errs = append(errs, errors.New("TENANT_QUERY_FALLBACK must be false in production"))
		}
		if c.Otel.Enabled && c.Otel.Insecure {
			errs = append(errs, errors.New("OTEL_INSECURE must be false in production"))
		}
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
