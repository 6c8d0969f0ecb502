package goSession

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the carrier name used when none is configured.
const DefaultCookieName = "session_id"

// Config holds everything an Engine needs besides the store itself. It is
// fixed at Build time; there is no runtime reconfiguration.
type Config struct {
	Carrier CarrierConfig
	Cookie  CookieConfig
	Metrics MetricsConfig
	Audit   AuditConfig
}

/*
====================================
CARRIER CONFIG
====================================
*/

// CarrierKind selects where the session token is read from.
type CarrierKind uint8

const (
	// CarrierCookie reads the token from the cookie named by CarrierConfig.Name.
	CarrierCookie CarrierKind = iota
	// CarrierHeader reads the token from the header named by CarrierConfig.Name.
	// A "Bearer " prefix is stripped.
	CarrierHeader
)

func (k CarrierKind) String() string {
	switch k {
	case CarrierCookie:
		return "cookie"
	case CarrierHeader:
		return "header"
	default:
		return "unknown"
	}
}

// ParseCarrierKind maps "cookie" and "header" (case-insensitive) to a
// CarrierKind. An empty string selects CarrierCookie.
func ParseCarrierKind(s string) (CarrierKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cookie":
		return CarrierCookie, nil
	case "header":
		return CarrierHeader, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidCarrier, s)
	}
}

// CarrierConfig names the request field that carries the session token.
type CarrierConfig struct {
	Kind CarrierKind
	Name string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the attributes of cookies produced by
// Engine.SessionCookie and Engine.ExpiredCookie. It has no effect on how the
// interceptor reads tokens.
type CookieConfig struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the configuration used by New when WithConfig is not
// called: cookie carrier named DefaultCookieName, HttpOnly Lax cookies on "/".
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Carrier: CarrierConfig{
			Kind: CarrierCookie,
			Name: DefaultCookieName,
		},
		Cookie: CookieConfig{
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration without performing any I/O.
func (c *Config) Validate() error {
	switch c.Carrier.Kind {
	case CarrierCookie, CarrierHeader:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidCarrier, c.Carrier.Kind)
	}
	if c.Carrier.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidCarrier)
	}
	if !isToken(c.Carrier.Name) {
		return fmt.Errorf("%w: name %q contains invalid characters", ErrInvalidCarrier, c.Carrier.Name)
	}

	if c.Cookie.MaxAge < 0 {
		return fmt.Errorf("%w: MaxAge must be >= 0", ErrInvalidCookieConfig)
	}
	if c.Cookie.SameSite < 0 || c.Cookie.SameSite > http.SameSiteNoneMode {
		return fmt.Errorf("%w: unknown SameSite value %d", ErrInvalidCookieConfig, c.Cookie.SameSite)
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return fmt.Errorf("%w: SameSite=None requires Secure", ErrInvalidCookieConfig)
	}
	if c.Carrier.Kind == CarrierCookie {
		name := c.Carrier.Name
		if strings.HasPrefix(name, "__Secure-") && !c.Cookie.Secure {
			return fmt.Errorf("%w: __Secure- cookies require Secure", ErrInvalidCookieConfig)
		}
		if strings.HasPrefix(name, "__Host-") {
			if !c.Cookie.Secure || c.Cookie.Domain != "" || c.Cookie.Path != "/" {
				return fmt.Errorf("%w: __Host- cookies require Secure, Path=/ and no Domain", ErrInvalidCookieConfig)
			}
		}
	}

	if c.Audit.BufferSize < 0 {
		return fmt.Errorf("%w: BufferSize must be >= 0", ErrInvalidAuditConfig)
	}

	return nil
}

// isToken reports whether s is an RFC 7230 token, the grammar shared by
// cookie names and header field names.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
