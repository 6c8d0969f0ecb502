package goSession

import (
	"net/http"
	"strings"
)

type tokenExtractor func(r *http.Request) (string, bool)

func newExtractor(c CarrierConfig) tokenExtractor {
	name := c.Name
	if c.Kind == CarrierHeader {
		return func(r *http.Request) (string, bool) {
			return headerToken(r.Header.Get(name))
		}
	}
	return func(r *http.Request) (string, bool) {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			return "", false
		}
		return cookie.Value, true
	}
}

func headerToken(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if token, ok := bearerToken(value); ok {
		return token, token != ""
	}
	return value, true
}

// bearerToken reports whether value uses the Bearer scheme, matched
// case-insensitively, and returns the trimmed credential.
func bearerToken(value string) (string, bool) {
	scheme, rest, _ := strings.Cut(value, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
