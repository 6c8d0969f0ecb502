package goSession

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults valid",
			mutate: func(c *Config) {},
		},
		{
			name: "header carrier valid",
			mutate: func(c *Config) {
				c.Carrier = CarrierConfig{Kind: CarrierHeader, Name: "Authorization"}
			},
		},
		{
			name: "empty carrier name",
			mutate: func(c *Config) {
				c.Carrier.Name = ""
			},
			wantErr: ErrInvalidCarrier,
		},
		{
			name: "carrier name with separator",
			mutate: func(c *Config) {
				c.Carrier.Name = "sid;x"
			},
			wantErr: ErrInvalidCarrier,
		},
		{
			name: "unknown carrier kind",
			mutate: func(c *Config) {
				c.Carrier.Kind = CarrierKind(9)
			},
			wantErr: ErrInvalidCarrier,
		},
		{
			name: "negative max age",
			mutate: func(c *Config) {
				c.Cookie.MaxAge = -time.Second
			},
			wantErr: ErrInvalidCookieConfig,
		},
		{
			name: "samesite none without secure",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
			},
			wantErr: ErrInvalidCookieConfig,
		},
		{
			name: "samesite none with secure",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = true
			},
		},
		{
			name: "secure prefix without secure",
			mutate: func(c *Config) {
				c.Carrier.Name = "__Secure-sid"
			},
			wantErr: ErrInvalidCookieConfig,
		},
		{
			name: "host prefix with domain",
			mutate: func(c *Config) {
				c.Carrier.Name = "__Host-sid"
				c.Cookie.Secure = true
				c.Cookie.Domain = "example.com"
			},
			wantErr: ErrInvalidCookieConfig,
		},
		{
			name: "host prefix ignored for header carrier",
			mutate: func(c *Config) {
				c.Carrier = CarrierConfig{Kind: CarrierHeader, Name: "__Host-sid"}
			},
		},
		{
			name: "negative audit buffer",
			mutate: func(c *Config) {
				c.Audit.BufferSize = -1
			},
			wantErr: ErrInvalidAuditConfig,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseCarrierKind(t *testing.T) {
	cases := map[string]CarrierKind{
		"":        CarrierCookie,
		"cookie":  CarrierCookie,
		" Header": CarrierHeader,
	}
	for in, want := range cases {
		got, err := ParseCarrierKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseCarrierKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCarrierKind("query"); !errors.Is(err, ErrInvalidCarrier) {
		t.Fatalf("expected ErrInvalidCarrier, got %v", err)
	}
	if CarrierHeader.String() != "header" || CarrierKind(7).String() != "unknown" {
		t.Fatalf("unexpected CarrierKind strings")
	}
}
