package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/rate"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/password"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the sessiond HTTP application.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	engine  *goSession.Engine[User, User]
	users   *UserTable
	backend *backend
	metrics *promexport.Exporter
	limiter *rate.Limiter
	proxies []netip.Prefix
	router  chi.Router
	cancel  context.CancelFunc
}

// New opens the configured store and wires the router. Call Close to release
// the store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	users, err := NewUserTable(hasher, cfg.Users)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	builder := goSession.New[User, User](b.store).
		WithConfig(engineCfg).
		WithLogger(logger)
	if cfg.Session.Audit {
		builder = builder.WithAuditSink(goSession.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		cancel()
		_ = b.close()
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		users:   users,
		backend: b,
		cancel:  cancel,
	}
	if cfg.LoginThrottle.Enabled {
		if s.proxies, err = parseTrustedProxies(cfg.LoginThrottle.TrustedProxies); err != nil {
			_ = s.Close()
			return nil, err
		}
		var counter rate.Counter = rate.NewMemoryCounter(nil)
		if b.redis != nil {
			counter = rate.NewRedisCounter(b.redis)
		}
		if s.limiter, err = rate.New(counter, rate.Config{
			MaxAttempts: cfg.LoginThrottle.MaxAttempts,
			Window:      cfg.LoginThrottle.Window,
			PerIP:       cfg.LoginThrottle.PerIP,
		}); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	if cfg.Metrics.Enabled {
		if s.metrics, err = promexport.NewExporter(engine); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	s.router = s.routes()
	return s, nil
}

// Engine exposes the session engine, mainly for tests.
func (s *Server) Engine() *goSession.Engine[User, User] {
	return s.engine
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.engine.Middleware())
		r.Get("/", s.handleRoot)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/session/data", s.handleSessionData)
	})
	return r
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("sessiond listening", "addr", ln.Addr().String(), "store", s.cfg.Store.Kind)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown did not complete", "err", err)
		return srv.Close()
	}
	return nil
}

// Close stops background work, flushes audit events and releases the store.
func (s *Server) Close() error {
	s.cancel()
	s.engine.Close()
	return s.backend.close()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
