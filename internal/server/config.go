package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SESSIOND_STORE_KIND.
const EnvPrefix = "SESSIOND_"

var ErrInvalidConfig = errors.New("invalid sessiond config")

// Config is the sessiond configuration file.
type Config struct {
	Addr            string          `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Log             LogConfig       `yaml:"log" mapstructure:"log"`
	Session         SessionConfig   `yaml:"session" mapstructure:"session"`
	Store           StoreConfig     `yaml:"store" mapstructure:"store"`
	Metrics         MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	LoginThrottle   ThrottleConfig  `yaml:"login_throttle" mapstructure:"login_throttle"`
	Password        password.Config `yaml:"password" mapstructure:"password"`
	Users           []UserConfig    `yaml:"users" mapstructure:"users"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// SessionConfig maps onto goSession.Config.
type SessionConfig struct {
	Carrier  string        `yaml:"carrier" mapstructure:"carrier"`
	Name     string        `yaml:"name" mapstructure:"name"`
	Secure   bool          `yaml:"secure" mapstructure:"secure"`
	SameSite string        `yaml:"same_site" mapstructure:"same_site"`
	MaxAge   time.Duration `yaml:"max_age" mapstructure:"max_age"`
	Audit    bool          `yaml:"audit" mapstructure:"audit"`
}

// StoreConfig selects and configures the session backend.
type StoreConfig struct {
	Kind        string         `yaml:"kind" mapstructure:"kind"`
	TTL         time.Duration  `yaml:"ttl" mapstructure:"ttl"`
	MaxSessions int            `yaml:"max_sessions" mapstructure:"max_sessions"`
	Cleanup     time.Duration  `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	Redis       RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Token       TokenConfig    `yaml:"token" mapstructure:"token"`
	Postgres    PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// RedisConfig connects to Redis. An empty Addr starts an in-process miniredis.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// TokenConfig configures the signed-token store. Revocations go to Redis
// when RevokeInRedis is set, otherwise to process memory.
type TokenConfig struct {
	Secret        string `yaml:"secret" mapstructure:"secret"`
	Issuer        string `yaml:"issuer" mapstructure:"issuer"`
	RevokeInRedis bool   `yaml:"revoke_in_redis" mapstructure:"revoke_in_redis"`
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	Table   string `yaml:"table" mapstructure:"table"`
	Migrate bool   `yaml:"migrate" mapstructure:"migrate"`
}

type MetricsConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	Histograms bool `yaml:"histograms" mapstructure:"histograms"`
}

// ThrottleConfig bounds failed logins per user name and, with PerIP, per
// client address. Counters live in Redis when the store has a client.
//
// The client address is the socket peer. Forwarding headers are honoured
// only when the peer matches TrustedProxies (CIDRs or bare addresses).
type ThrottleConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Window         time.Duration `yaml:"window" mapstructure:"window"`
	PerIP          bool          `yaml:"per_ip" mapstructure:"per_ip"`
	TrustedProxies []string      `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
}

// UserConfig is one entry of the login table. Exactly one of Password and
// PasswordHash is set; plain passwords are hashed at startup.
type UserConfig struct {
	ID           int      `yaml:"id" mapstructure:"id"`
	Name         string   `yaml:"name" mapstructure:"name"`
	Password     string   `yaml:"password" mapstructure:"password"`
	PasswordHash string   `yaml:"password_hash" mapstructure:"password_hash"`
	Roles        []string `yaml:"roles" mapstructure:"roles"`
}

// DefaultConfig serves the memory store on 127.0.0.1:3000 with the "test-id"
// cookie and no users.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:3000",
		ShutdownTimeout: 5 * time.Second,
		Log:             LogConfig{Level: "info"},
		Session: SessionConfig{
			Carrier:  "cookie",
			Name:     "test-id",
			SameSite: "lax",
		},
		Store: StoreConfig{
			Kind:    "memory",
			TTL:     24 * time.Hour,
			Cleanup: time.Minute,
			Redis:   RedisConfig{Prefix: "gs:sess:"},
			Token:   TokenConfig{Issuer: "sessiond"},
			Postgres: PostgresConfig{
				Table:   "sessions",
				Migrate: true,
			},
		},
		Metrics: MetricsConfig{Enabled: true},
		LoginThrottle: ThrottleConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Password: password.DefaultConfig(),
	}
}

// LoadConfig reads path (if non-empty) over DefaultConfig and then applies
// SESSIOND_* overrides from the process environment.
func LoadConfig(path string) (Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		data = b
	}
	return ParseConfig(data, os.LookupEnv)
}

// ParseConfig decodes YAML data over DefaultConfig and applies overrides
// found through lookup.
func ParseConfig(data []byte, lookup func(string) (string, bool)) (Config, error) {
	raw := map[string]any{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	if lookup != nil {
		applyEnv(raw, lookup)
	}

	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envOverrides maps environment suffixes to dotted config keys.
var envOverrides = map[string]string{
	"ADDR":               "addr",
	"SHUTDOWN_TIMEOUT":   "shutdown_timeout",
	"LOG_LEVEL":          "log.level",
	"LOG_JSON":           "log.json",
	"SESSION_CARRIER":    "session.carrier",
	"SESSION_NAME":       "session.name",
	"SESSION_SECURE":     "session.secure",
	"STORE_KIND":         "store.kind",
	"STORE_TTL":          "store.ttl",
	"REDIS_ADDR":         "store.redis.addr",
	"REDIS_PASSWORD":     "store.redis.password",
	"REDIS_DB":           "store.redis.db",
	"TOKEN_SECRET":       "store.token.secret",
	"TOKEN_REVOKE_REDIS": "store.token.revoke_in_redis",
	"POSTGRES_DSN":       "store.postgres.dsn",
	"METRICS_ENABLED":    "metrics.enabled",
	"METRICS_HISTOGRAMS": "metrics.histograms",
}

func applyEnv(raw map[string]any, lookup func(string) (string, bool)) {
	for suffix, key := range envOverrides {
		value, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		setPath(raw, strings.Split(key, "."), value)
	}
}

func setPath(m map[string]any, path []string, value string) {
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// Validate checks the config, including the goSession settings it maps to.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be > 0", ErrInvalidConfig)
	}

	sessionCfg, err := c.EngineConfig()
	if err != nil {
		return err
	}
	if err := sessionCfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch strings.ToLower(c.Store.Kind) {
	case "memory", "redis":
	case "token":
		if len(c.Store.Token.Secret) < 32 {
			return fmt.Errorf("%w: store.token.secret must be at least 32 bytes", ErrInvalidConfig)
		}
		if c.Store.TTL <= 0 {
			return fmt.Errorf("%w: token store requires store.ttl", ErrInvalidConfig)
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("%w: store.postgres.dsn is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.kind %q", ErrInvalidConfig, c.Store.Kind)
	}
	if c.Store.TTL < 0 || c.Store.MaxSessions < 0 {
		return fmt.Errorf("%w: store.ttl and store.max_sessions must be >= 0", ErrInvalidConfig)
	}

	if c.LoginThrottle.Enabled && (c.LoginThrottle.MaxAttempts <= 0 || c.LoginThrottle.Window <= 0) {
		return fmt.Errorf("%w: login_throttle needs max_attempts and window > 0", ErrInvalidConfig)
	}
	if _, err := parseTrustedProxies(c.LoginThrottle.TrustedProxies); err != nil {
		return fmt.Errorf("%w: login_throttle.trusted_proxies: %w", ErrInvalidConfig, err)
	}

	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Users))
	for i, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("%w: users[%d].name is required", ErrInvalidConfig, i)
		}
		if (u.Password == "") == (u.PasswordHash == "") {
			return fmt.Errorf("%w: users[%d] needs exactly one of password and password_hash", ErrInvalidConfig, i)
		}
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("%w: duplicate user %q", ErrInvalidConfig, u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	return nil
}

// EngineConfig converts the session section into a goSession.Config.
func (c Config) EngineConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()

	kind, err := goSession.ParseCarrierKind(c.Session.Carrier)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Carrier.Kind = kind
	cfg.Carrier.Name = c.Session.Name

	switch strings.ToLower(c.Session.SameSite) {
	case "", "lax":
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	case "strict":
		cfg.Cookie.SameSite = http.SameSiteStrictMode
	case "none":
		cfg.Cookie.SameSite = http.SameSiteNoneMode
	default:
		return cfg, fmt.Errorf("%w: unknown session.same_site %q", ErrInvalidConfig, c.Session.SameSite)
	}
	cfg.Cookie.Secure = c.Session.Secure
	cfg.Cookie.MaxAge = c.Session.MaxAge

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Histograms
	cfg.Audit.Enabled = c.Session.Audit
	return cfg, nil
}
