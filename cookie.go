package goSession

import (
	"net/http"
	"time"
)

// SessionCookie builds the cookie that delivers sessionID to the client,
// using the carrier name and the attributes from CookieConfig. A zero MaxAge
// produces a browser-session cookie.
//
// Whether and when to set the cookie is the handler's decision; the
// interceptor never writes it.
func (e *Engine[In, U]) SessionCookie(sessionID string) *http.Cookie {
	if e == nil {
		return nil
	}
	c := e.baseCookie()
	c.Value = sessionID
	if maxAge := e.config.Cookie.MaxAge; maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge).UTC()
	}
	return c
}

// ExpiredCookie builds a cookie that clears the session cookie on the client.
func (e *Engine[In, U]) ExpiredCookie() *http.Cookie {
	if e == nil {
		return nil
	}
	c := e.baseCookie()
	c.Value = ""
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0).UTC()
	return c
}

func (e *Engine[In, U]) baseCookie() *http.Cookie {
	cfg := e.config.Cookie
	return &http.Cookie{
		Name:     e.config.Carrier.Name,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: cfg.HttpOnly,
		SameSite: cfg.SameSite,
	}
}
