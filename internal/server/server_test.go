package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password = password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Users = []UserConfig{
		{ID: 1, Name: "alice", Password: "alice-password", Roles: []string{"admin"}},
	}
	return cfg
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, name, pass string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/login", `{"name":"`+name+`","password":"`+pass+`"}`)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-id" {
			return c
		}
	}
	t.Fatalf("no test-id cookie in response")
	return nil
}

func TestRootSaysHello(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello", rec.Body.String())
}

func TestSessionDataWithoutCookie(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/session/data", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no cookie", strings.TrimSpace(rec.Body.String()))
}

func TestSessionDataWithUnknownCookie(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/session/data", "", &http.Cookie{Name: "test-id", Value: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "you need login", strings.TrimSpace(rec.Body.String()))
}

func TestLoginSessionDataLogout(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	rec := login(t, h, "alice", "alice-password")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Name)
	assert.Empty(t, resp.Token, "cookie carrier must not leak the token in the body")

	rec = do(t, h, http.MethodGet, "/session/data", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var user User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, User{ID: 1, Name: "alice", Roles: []string{"admin"}}, user)

	rec = do(t, h, http.MethodPost, "/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Equal(t, "", cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	rec = do(t, h, http.MethodGet, "/session/data", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "you need login", strings.TrimSpace(rec.Body.String()))
}

func TestLogoutWithoutSessionIsNoContent(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoginRejections(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	cases := []struct {
		name string
		body string
		code int
	}{
		{name: "wrong password", body: `{"name":"alice","password":"nope"}`, code: http.StatusUnauthorized},
		{name: "unknown user", body: `{"name":"bob","password":"alice-password"}`, code: http.StatusUnauthorized},
		{name: "malformed json", body: `{"name":`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"alice","password":"alice-password","admin":true}`, code: http.StatusBadRequest},
		{name: "missing name", body: `{"password":"alice-password"}`, code: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/login", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestHeaderCarrierReturnsToken(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.Session.Carrier = "header"
		c.Session.Name = "Authorization"
	})
	h := srv.Handler()

	rec := login(t, h, "alice", "alice-password")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	req := httptest.NewRequest(http.MethodGet, "/session/data", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	assert.Equal(t, http.StatusOK, out.Code)
}

func TestRedisBackendWithEmbeddedMiniredis(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.Store.Kind = "redis" })
	h := srv.Handler()

	rec := login(t, h, "alice", "alice-password")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/session/data", "", sessionCookie(t, rec))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_latency_ms")
}

func TestTokenBackendRevokesOnLogout(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.Store.Kind = "token"
		c.Store.Token.Secret = strings.Repeat("s", 32)
	})
	h := srv.Handler()

	rec := login(t, h, "alice", "alice-password")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	rec = do(t, h, http.MethodGet, "/session/data", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/session/data", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	do(t, h, http.MethodGet, "/session/data", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gosession_outcome_no_cookie_total 1")
}

func TestMetricsDisabledHasNoRoute(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.Metrics.Enabled = false })
	rec := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzMemory(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Kind = "cassandra"
	_, err := New(context.Background(), cfg, logging.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestLoginThrottle(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.LoginThrottle = ThrottleConfig{Enabled: true, MaxAttempts: 2, Window: time.Minute}
	})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := login(t, h, "alice", "wrong-password")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// The budget is spent, so even the right password is refused.
	rec := login(t, h, "alice", "alice-password")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.Store.Kind = "redis"
		c.LoginThrottle = ThrottleConfig{Enabled: true, MaxAttempts: 2, Window: time.Minute}
	})
	h := srv.Handler()

	require.Equal(t, http.StatusUnauthorized, login(t, h, "alice", "wrong-password").Code)
	require.Equal(t, http.StatusOK, login(t, h, "alice", "alice-password").Code)
	require.Equal(t, http.StatusUnauthorized, login(t, h, "alice", "wrong-password").Code)
	assert.Equal(t, http.StatusOK, login(t, h, "alice", "alice-password").Code)
}

func loginFrom(t *testing.T, h http.Handler, remoteAddr, forwardedFor, name, pass string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"name":"`+name+`","password":"`+pass+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestLoginThrottlePerIPIgnoresForwardedHeaders(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.LoginThrottle = ThrottleConfig{Enabled: true, MaxAttempts: 3, Window: time.Minute, PerIP: true}
	})
	h := srv.Handler()
	const peer = "203.0.113.7:41000"

	var codes []int
	for i := 0; i < 10; i++ {
		// Distinct names keep every per-user budget below its limit.
		name := fmt.Sprintf("ghost-%d", i)
		codes = append(codes, loginFrom(t, h, peer, fmt.Sprintf("198.51.100.%d", i+1), name, "wrong"))
	}
	want := []int{401, 401, 401, 429, 429, 429, 429, 429, 429, 429}
	assert.Equal(t, want, codes)

	// The address budget also blocks a valid login from the same peer.
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, h, peer, "192.0.2.50", "alice", "alice-password"))
	// alice's own budget is untouched, so another peer gets in.
	assert.Equal(t, http.StatusOK, loginFrom(t, h, "203.0.113.8:41000", "", "alice", "alice-password"))
}

func TestLoginThrottlePerUserIndependentOfIP(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.LoginThrottle = ThrottleConfig{Enabled: true, MaxAttempts: 2, Window: time.Minute, PerIP: true}
	})
	h := srv.Handler()

	require.Equal(t, http.StatusUnauthorized, loginFrom(t, h, "203.0.113.1:1", "", "alice", "wrong"))
	require.Equal(t, http.StatusUnauthorized, loginFrom(t, h, "203.0.113.2:1", "", "alice", "wrong"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, h, "203.0.113.3:1", "", "alice", "alice-password"))
	// Each peer spent one attempt, below the address limit.
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, h, "203.0.113.1:1", "", "bob", "wrong"))
}

func TestLoginThrottleTrustedProxy(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.LoginThrottle = ThrottleConfig{
			Enabled: true, MaxAttempts: 3, Window: time.Minute, PerIP: true,
			TrustedProxies: []string{"10.0.0.0/8"},
		}
	})
	h := srv.Handler()
	const proxy = "10.1.2.3:5000"

	// Behind a trusted proxy each forwarded client has its own budget.
	for i := 0; i < 6; i++ {
		code := loginFrom(t, h, proxy, fmt.Sprintf("198.51.100.%d", i+1), fmt.Sprintf("ghost-%d", i), "wrong")
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d", i)
	}

	// A single client is still limited, even when it prepends spoofed hops.
	var codes []int
	for i := 0; i < 4; i++ {
		xff := fmt.Sprintf("192.0.2.%d, 198.51.100.200", i+1)
		codes = append(codes, loginFrom(t, h, proxy, xff, fmt.Sprintf("spoof-%d", i), "wrong"))
	}
	assert.Equal(t, []int{401, 401, 401, 429}, codes)
}
