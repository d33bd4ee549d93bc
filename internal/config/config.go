package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. listen_port -> SMARTMARKS_LISTEN_PORT.
const EnvPrefix = "SMARTMARKS"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, websockets excluded

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Store
	DatabasePath     string        // sqlite file, ex: /data/smartmarks.db
	SnapshotCacheTTL time.Duration // TTL of the cached per-owner list (0 = cache disabled)

	// Sessions
	SessionSecret string        // HMAC key for session tokens
	SessionTTL    time.Duration // session lifetime (default: 7 days)
	CookieSecure  bool          // set the Secure flag on cookies
	SessionSweep  time.Duration // purge period of in-process sessions (standalone)

	// OpenID Connect
	OIDCIssuer       string // ex: https://accounts.google.com
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string // ex: https://marks.domain.ext/auth/callback

	// Live view
	LivePingInterval time.Duration // websocket ping period
	LiveWriteTimeout time.Duration // websocket write deadline

	// Redis (empty address => standalone mode, in-process feed and sessions)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict operational endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Rate limiting on mutation routes
	RateLimitBurst  int
	RateLimitPerMin int
}

// Load builds the configuration from defaults, an optional YAML file and
// SMARTMARKS_* environment variables (highest precedence).
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv(v, "listen_port", ":8080"),
		ShutdownTimeout: mustDuration(v, "shutdown_timeout", 5*time.Second),
		RequestTimeout:  mustDuration(v, "request_timeout", 10*time.Second),

		// Logging
		LogLevel:  getenv(v, "log_level", "info"),
		PrettyLog: mustBool(v, "pretty_log", true),

		// Store
		DatabasePath:     getenv(v, "database_path", "smartmarks.db"),
		SnapshotCacheTTL: mustDuration(v, "snapshot_cache_ttl", 5*time.Minute),

		// Sessions
		SessionSecret: getenv(v, "session_secret", ""),
		SessionTTL:    mustDuration(v, "session_ttl", 7*24*time.Hour),
		CookieSecure:  mustBool(v, "cookie_secure", true),
		SessionSweep:  mustDuration(v, "session_sweep_interval", 10*time.Minute),

		// OIDC
		OIDCIssuer:       getenv(v, "oidc_issuer", "https://accounts.google.com"),
		OIDCClientID:     getenv(v, "oidc_client_id", ""),
		OIDCClientSecret: getenv(v, "oidc_client_secret", ""),
		OIDCRedirectURL:  getenv(v, "oidc_redirect_url", ""),

		// Live view
		LivePingInterval: mustDuration(v, "live_ping_interval", 30*time.Second),
		LiveWriteTimeout: mustDuration(v, "live_write_timeout", 10*time.Second),

		// Redis settings
		RedisAddr:             getenv(v, "redis_addr", ""),
		RedisUser:             getenv(v, "redis_username", "default"),
		RedisPasswordRequired: mustBool(v, "redis_password_required", false),
		RedisPassword:         getenv(v, "redis_password", ""),
		RedisDB:               getenvInt(v, "redis_db", 0),
		RedisDT:               mustDuration(v, "redis_dial_timeout", 5*time.Second),
		RedisRT:               mustDuration(v, "redis_read_timeout", 3*time.Second),
		RedisWT:               mustDuration(v, "redis_write_timeout", 3*time.Second),
		RedisMaxWait:          mustDuration(v, "redis_max_wait", 10*time.Second),
		RedisPingTimeout:      mustDuration(v, "redis_ping_timeout", 5*time.Second),
		RedisPoolSize:         getenvInt(v, "redis_pool_size", 10),
		RedisConnectTimeout:   mustDuration(v, "redis_connect_timeout", 30*time.Second),
		RedisRetryInterval:    mustDuration(v, "redis_retry_interval", 2*time.Second),
		RedisWarnThreshold:    getenvInt(v, "redis_warn_threshold", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv(v, "allowed_hosts", "")),
		AllowedCIDRS: parseAllowedIPs(getenv(v, "allowed_cidrs", "")),
		TrustProxy:   mustBool(v, "trust_proxy", false),

		// Rate limiting
		RateLimitBurst:  getenvInt(v, "rate_limit_burst", 20),
		RateLimitPerMin: getenvInt(v, "rate_limit_per_min", 60),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg, nil
}

// Standalone reports whether the server runs without Redis.
func (c *Config) Standalone() bool {
	return c.RedisAddr == ""
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	required := []struct {
		key string
		val string
	}{
		{"SESSION_SECRET", c.SessionSecret},
		{"OIDC_CLIENT_ID", c.OIDCClientID},
		{"OIDC_CLIENT_SECRET", c.OIDCClientSecret},
		{"OIDC_REDIRECT_URL", c.OIDCRedirectURL},
		{"DATABASE_PATH", c.DatabasePath},
	}
	var missing []string
	for _, r := range required {
		if r.val == "" {
			missing = append(missing, EnvPrefix+"_"+r.key)
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required settings not set: %s", strings.Join(missing, ", ")))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		errs = append(errs, fmt.Errorf("%s_SESSION_SECRET must be at least 32 bytes", EnvPrefix))
	}
	if !c.Standalone() && c.RedisPasswordRequired && c.RedisPassword == "" {
		errs = append(errs, fmt.Errorf("%s_REDIS_PASSWORD is required when %s_REDIS_PASSWORD_REQUIRED=true", EnvPrefix, EnvPrefix))
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	const mask = "***REDACTED***"
	if cp.RedisPassword != "" {
		cp.RedisPassword = mask
	}
	if cp.RedisUser != "" {
		cp.RedisUser = mask
	}
	if cp.SessionSecret != "" {
		cp.SessionSecret = mask
	}
	if cp.OIDCClientSecret != "" {
		cp.OIDCClientSecret = mask
	}
	return cp
}

// helpers
func getenv(v *viper.Viper, key, def string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	return def
}

func getenvInt(v *viper.Viper, key string, def int) int {
	if s := v.GetString(key); s != "" {
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
	}
	return def
}

func mustBool(v *viper.Viper, key string, def bool) bool {
	if s := v.GetString(key); s != "" {
		b, err := strconv.ParseBool(s)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if s := v.GetString(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
