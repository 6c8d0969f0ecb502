package goSession

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity uint8

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding from Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

const lintLongMaxAge = 30 * 24 * time.Hour

// Lint reports settings that are valid but risky. It never fails; use
// Validate for hard errors.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Carrier.Kind == CarrierCookie {
		if !c.Cookie.HttpOnly {
			add("cookie_not_httponly", LintHigh, "session cookie is readable from JavaScript")
		}
		if !c.Cookie.Secure {
			add("cookie_not_secure", LintWarn, "session cookie is sent over plain HTTP")
		}
		if c.Cookie.SameSite == http.SameSiteNoneMode {
			add("cookie_samesite_none", LintWarn, "session cookie is sent on cross-site requests")
		}
		if c.Cookie.Domain != "" {
			add("cookie_domain_set", LintInfo, "session cookie is shared with subdomains of "+c.Cookie.Domain)
		}
		if c.Cookie.MaxAge > lintLongMaxAge {
			add("cookie_max_age_long", LintInfo, "session cookie outlives 30 days")
		}
	}
	if c.Carrier.Kind == CarrierHeader && strings.EqualFold(c.Carrier.Name, "Cookie") {
		add("header_carrier_cookie", LintWarn, "header carrier reads the raw Cookie header; use the cookie carrier")
	}
	if c.Audit.Enabled && c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped under backpressure")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "store failures are only logged, not audited")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "outcome counters are not recorded")
	}
	return ws
}
