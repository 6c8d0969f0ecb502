package goSession

import (
	"net/http"
	"testing"
	"time"
)

func hardenedConfig() Config {
	cfg := defaultConfig()
	cfg.Cookie.Secure = true
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	return cfg
}

func TestLint_DefaultConfigHasNoHighWarnings(t *testing.T) {
	cfg := defaultConfig()
	ws := cfg.Lint()

	if err := ws.AsError(LintHigh); err != nil {
		t.Fatalf("default config should not fail AsError(LintHigh): %v", err)
	}
	// Defaults serve plain HTTP in development.
	if !containsCode(ws.Codes(), "cookie_not_secure") {
		t.Error("expected cookie_not_secure for the default config")
	}
}

func TestLint_HardenedConfigIsClean(t *testing.T) {
	cfg := hardenedConfig()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLint_Findings(t *testing.T) {
	cases := []struct {
		code   string
		sev    LintSeverity
		mutate func(*Config)
	}{
		{"cookie_not_httponly", LintHigh, func(c *Config) { c.Cookie.HttpOnly = false }},
		{"cookie_samesite_none", LintWarn, func(c *Config) { c.Cookie.SameSite = http.SameSiteNoneMode }},
		{"cookie_domain_set", LintInfo, func(c *Config) { c.Cookie.Domain = "example.com" }},
		{"cookie_max_age_long", LintInfo, func(c *Config) { c.Cookie.MaxAge = 90 * 24 * time.Hour }},
		{"header_carrier_cookie", LintWarn, func(c *Config) {
			c.Carrier = CarrierConfig{Kind: CarrierHeader, Name: "cookie"}
		}},
		{"audit_drop_if_full", LintInfo, func(c *Config) { c.Audit.DropIfFull = true }},
		{"audit_disabled", LintInfo, func(c *Config) { c.Audit.Enabled = false }},
		{"metrics_disabled", LintInfo, func(c *Config) { c.Metrics.Enabled = false }},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			cfg := hardenedConfig()
			tc.mutate(&cfg)
			ws := cfg.Lint()

			found := false
			for _, w := range ws {
				if w.Code == tc.code {
					found = true
					if w.Severity != tc.sev {
						t.Errorf("%s: severity %s, want %s", tc.code, w.Severity, tc.sev)
					}
					if w.Message == "" {
						t.Errorf("%s: empty message", tc.code)
					}
				}
			}
			if !found {
				t.Fatalf("expected %s, got %v", tc.code, ws.Codes())
			}
		})
	}
}

func TestLint_CookieFindingsIgnoredForHeaderCarrier(t *testing.T) {
	cfg := hardenedConfig()
	cfg.Carrier = CarrierConfig{Kind: CarrierHeader, Name: "Authorization"}
	cfg.Cookie.Secure = false
	cfg.Cookie.HttpOnly = false

	if codes := cfg.Lint().Codes(); len(codes) != 0 {
		t.Fatalf("cookie attributes are irrelevant to the header carrier, got %v", codes)
	}
}

func TestLint_BySeverityAndAsError(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cookie.HttpOnly = false
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "cookie_not_httponly" {
		t.Fatalf("expected exactly cookie_not_httponly at HIGH, got %v", high.Codes())
	}
	for _, w := range ws.BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Errorf("BySeverity(LintWarn) returned %s", w.Severity)
		}
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
