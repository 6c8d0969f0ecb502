package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/rate"
)

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginResponse struct {
	User User `json:"user"`
	// Token is set only for the header carrier; cookie clients get Set-Cookie.
	Token string `json:"token,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Hello"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.backend.ping != nil {
		latency, err := s.backend.ping(r.Context())
		if err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "store_latency_ms": latency.Milliseconds()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ip := clientIP(r, s.proxies)
	if s.limiter != nil {
		if err := s.limiter.CheckLogin(r.Context(), req.Name, ip); err != nil {
			s.throttleError(w, err)
			return
		}
	}

	user, err := s.users.Authenticate(req.Name, req.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.logger.Error("password verification failed", "user", req.Name, "err", err)
		}
		if s.limiter != nil {
			if err := s.limiter.FailLogin(r.Context(), req.Name, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				s.logger.Warn("login throttle unavailable", "err", err)
			}
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(r.Context(), req.Name); err != nil {
			s.logger.Warn("login throttle reset failed", "err", err)
		}
	}

	id, err := s.engine.CreateSession(r.Context(), user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not create session"})
		return
	}

	resp := loginResponse{User: user}
	if s.engine.Config().Carrier.Kind == goSession.CarrierHeader {
		resp.Token = id
	} else {
		http.SetCookie(w, s.engine.SessionCookie(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

// throttleError answers 429 when the budget is spent and 503 when the
// counter backend is down; logins are not accepted unthrottled.
func (s *Server) throttleError(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.LoginThrottle.Window.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many failed logins"})
		return
	}
	s.logger.Warn("login throttle unavailable", "err", err)
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "login temporarily unavailable"})
}

// handleLogout deletes the presented session whether or not it still
// resolves, and always clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := s.engine.RequestToken(r); ok {
		if err := s.engine.DeleteSession(r.Context(), token); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not delete session"})
			return
		}
	}
	if s.engine.Config().Carrier.Kind == goSession.CarrierCookie {
		http.SetCookie(w, s.engine.ExpiredCookie())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionData(w http.ResponseWriter, r *http.Request) {
	outcome, _ := goSession.OutcomeFromContext[User](r.Context())
	switch outcome.State() {
	case goSession.HaveSession:
		user, _ := outcome.User()
		writeJSON(w, http.StatusOK, user)
	case goSession.NoCookie:
		http.Error(w, "no cookie", http.StatusUnauthorized)
	default:
		http.Error(w, "you need login", http.StatusUnauthorized)
	}
}
