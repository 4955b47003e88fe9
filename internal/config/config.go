package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "MARKTRABIT_"

// Storage backends for bookmark records.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR, default=:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=5s"`
	PublicURL       string        `env:"PUBLIC_URL"` // optional, ex: https://marks.domain.ext (derived from request when empty)

	LogLevel  string `env:"LOG_LEVEL, default=info"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `env:"PRETTY_LOG, default=true"` // true => zap dev (color), false => zap prod (JSON)

	// Identity / data service
	SupabaseURL     string        `env:"SUPABASE_URL, required"`
	SupabaseAnonKey string        `env:"SUPABASE_ANON_KEY, required"`
	OAuthProvider   string        `env:"OAUTH_PROVIDER, default=google"`
	CallbackTimeout time.Duration `env:"CALLBACK_TIMEOUT, default=15s"` // max wait for the OAuth code exchange
	RemoteTimeout   time.Duration `env:"REMOTE_TIMEOUT, default=10s"`   // per list/insert/delete call
	FlowTTL         time.Duration `env:"FLOW_TTL, default=10m"`         // lifetime of a pending PKCE flow

	// Bookmark storage
	Backend     string `env:"BACKEND, default=supabase"` // supabase | postgres | memory
	DatabaseDSN string `env:"DATABASE_DSN"`              // required when Backend=postgres

	// Sessions
	SessionTTL           time.Duration `env:"SESSION_TTL, default=168h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=1m"`
	RefreshSkew          time.Duration `env:"REFRESH_SKEW, default=60s"` // refresh tokens this long before expiry
	CookieSecure         bool          `env:"COOKIE_SECURE, default=false"`

	// Redis (optional, empty address => in-memory stores, single instance only)
	RedisAddr             string        `env:"REDIS_ADDR"`
	RedisUser             string        `env:"REDIS_USERNAME, default=default"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	RedisPasswordRequired bool          `env:"REDIS_PASSWORD_REQUIRED, default=false"`
	RedisDB               int           `env:"REDIS_DB, default=0"`
	RedisDT               time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
	RedisRT               time.Duration `env:"REDIS_READ_TIMEOUT, default=3s"`
	RedisWT               time.Duration `env:"REDIS_WRITE_TIMEOUT, default=3s"`
	RedisMaxWait          time.Duration `env:"REDIS_MAX_WAIT, default=10s"`
	RedisPingTimeout      time.Duration `env:"REDIS_PING_TIMEOUT, default=5s"`
	RedisPoolSize         int           `env:"REDIS_POOL_SIZE, default=10"`
	RedisConnectTimeout   time.Duration `env:"REDIS_CONNECT_TIMEOUT, default=30s"`
	RedisRetryInterval    time.Duration `env:"REDIS_RETRY_INTERVAL, default=2s"`
	RedisWarnThreshold    int           `env:"REDIS_WARN_THRESHOLD, default=3"`

	// Access restrictions
	AllowedHosts   []string `env:"ALLOWED_HOSTS"`        // optional, restrict access to specific Host headers
	AllowedCIDRS   []string `env:"ALLOWED_CIDRS"`        // optional, restrict ops endpoints (/debug, /metrics, /healthz)
	TrustProxy     bool     `env:"TRUST_PROXY, default=false"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"` // CORS for /api, empty => same origin only
	RateLimit      int      `env:"RATE_LIMIT_PER_MIN, default=60"`

	// Tracing
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom populates a Config from l (unprefixed names are looked up with EnvPrefix)
// and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, l),
	}); err != nil {
		return nil, fmt.Errorf("❌ FATAL: invalid configuration (%s* variables): %w", EnvPrefix, err)
	}

	cfg.AllowedHosts = cleanList(cfg.AllowedHosts)
	cfg.AllowedCIDRS = cleanList(cfg.AllowedCIDRS)
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fatal("SUPABASE_URL must be an absolute URL, got %q", c.SupabaseURL))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fatal("PUBLIC_URL must be an absolute URL, got %q", c.PublicURL))
		}
	}

	switch c.Backend {
	case BackendSupabase, BackendMemory:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, fatal("DATABASE_DSN is required when BACKEND=%s", BackendPostgres))
		}
	default:
		errs = append(errs, fatal("BACKEND must be one of %s, %s, %s, got %q",
			BackendSupabase, BackendPostgres, BackendMemory, c.Backend))
	}

	if c.RedisPasswordRequired && c.RedisPassword == "" {
		errs = append(errs, fatal("REDIS_PASSWORD is required when REDIS_PASSWORD_REQUIRED=true"))
	}

	for name, d := range map[string]time.Duration{
		"CALLBACK_TIMEOUT":       c.CallbackTimeout,
		"REMOTE_TIMEOUT":         c.RemoteTimeout,
		"FLOW_TTL":               c.FlowTTL,
		"SESSION_TTL":            c.SessionTTL,
		"SESSION_SWEEP_INTERVAL": c.SessionSweepInterval,
	} {
		if d <= 0 {
			errs = append(errs, fatal("%s must be > 0, got %v", name, d))
		}
	}

	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fatal("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}

	if c.RateLimit < 1 {
		errs = append(errs, fatal("RATE_LIMIT_PER_MIN must be >= 1, got %d", c.RateLimit))
	}

	return errors.Join(errs...)
}

// UseRedis reports whether Redis-backed stores are configured.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	const mask = "***REDACTED***"
	c.SupabaseAnonKey = mask
	if c.RedisPassword != "" {
		c.RedisPassword = mask
	}
	if c.RedisUser != "" {
		c.RedisUser = mask
	}
	if c.DatabaseDSN != "" {
		c.DatabaseDSN = mask
	}
	return c
}

func fatal(format string, args ...any) error {
	return fmt.Errorf("❌ FATAL: %s%s", EnvPrefix, fmt.Sprintf(format, args...))
}

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, part := range in {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
