package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfigYAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
addr: ":8080"
session:
  name: sid
  secure: true
  max_age: 2h
store:
  kind: redis
  ttl: 30m
  redis:
    addr: localhost:6379
users:
  - id: 7
    name: bob
    password_hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
    roles: [reader]
`)
	cfg, err := ParseConfig(data, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sid", cfg.Session.Name)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "redis", cfg.Store.Kind)
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "localhost:6379", cfg.Store.Redis.Addr)
	// Untouched nested defaults survive.
	assert.Equal(t, "gs:sess:", cfg.Store.Redis.Prefix)
	assert.Equal(t, "cookie", cfg.Session.Carrier)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, UserConfig{
		ID:           7,
		Name:         "bob",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Roles:        []string{"reader"},
	}, cfg.Users[0])
	assert.NoError(t, cfg.Validate())
}

func TestParseConfigEnvOverrides(t *testing.T) {
	data := []byte("store:\n  kind: memory\n")
	cfg, err := ParseConfig(data, envFrom(map[string]string{
		"SESSIOND_STORE_KIND":      "token",
		"SESSIOND_STORE_TTL":       "15m",
		"SESSIOND_TOKEN_SECRET":    "0123456789abcdef0123456789abcdef",
		"SESSIOND_METRICS_ENABLED": "false",
		"SESSIOND_REDIS_DB":        "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Store.Kind)
	assert.Equal(t, 15*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Store.Token.Secret)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 3, cfg.Store.Redis.DB)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("stroe:\n  kind: memory\n"), nil)
	assert.Error(t, err)
}

func TestParseConfigRejectsBadYAML(t *testing.T) {
	_, err := ParseConfig([]byte("addr: [unterminated"), nil)
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessiond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9999\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"zero shutdown", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"bad carrier", func(c *Config) { c.Session.Carrier = "query" }},
		{"bad same site", func(c *Config) { c.Session.SameSite = "sometimes" }},
		{"same site none insecure", func(c *Config) { c.Session.SameSite = "none" }},
		{"unknown store", func(c *Config) { c.Store.Kind = "etcd" }},
		{"short token secret", func(c *Config) { c.Store.Kind = "token"; c.Store.Token.Secret = "short" }},
		{"postgres without dsn", func(c *Config) { c.Store.Kind = "postgres" }},
		{"negative max sessions", func(c *Config) { c.Store.MaxSessions = -1 }},
		{"weak password config", func(c *Config) { c.Password.Memory = 1 }},
		{"user without name", func(c *Config) { c.Users = []UserConfig{{Password: "x"}} }},
		{"user with both secrets", func(c *Config) {
			c.Users = []UserConfig{{Name: "a", Password: "x", PasswordHash: "y"}}
		}},
		{"duplicate users", func(c *Config) {
			c.Users = []UserConfig{{Name: "a", Password: "x"}, {Name: "a", Password: "y"}}
		}},
		{"bad trusted proxy", func(c *Config) { c.LoginThrottle.TrustedProxies = []string{"10.0.0.0/33"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEngineConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Carrier = "header"
	cfg.Session.Name = "X-Session"
	cfg.Session.SameSite = "strict"
	cfg.Metrics.Histograms = true

	ec, err := cfg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, "header", ec.Carrier.Kind.String())
	assert.Equal(t, "X-Session", ec.Carrier.Name)
	assert.True(t, ec.Metrics.Enabled)
	assert.True(t, ec.Metrics.EnableLatencyHistograms)
}
