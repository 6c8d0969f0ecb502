package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidConfig = errors.New("jwt: invalid config")
	ErrNoSigningKey  = errors.New("jwt: manager has no signing key")
	ErrUnknownKeyID  = errors.New("jwt: unknown or missing kid")
	ErrMissingJTI    = errors.New("jwt: token has no jti")
	ErrMissingIAT    = errors.New("jwt: token has no iat")
)

const (
	maxLeeway     = 2 * time.Minute
	minHMACSecret = 32
)

// SigningMethod selects the JWS algorithm used for session tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// ParseSigningMethod maps a configuration string to a SigningMethod.
func ParseSigningMethod(s string) (SigningMethod, error) {
	switch SigningMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodHS256:
		return MethodHS256, nil
	case MethodEd25519, "eddsa":
		return MethodEd25519, nil
	default:
		return "", fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, s)
	}
}

func (m SigningMethod) jws() jwt.SigningMethod {
	if m == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

// Config describes how tokens are signed and which tokens are accepted.
//
// For MethodHS256 PrivateKey is the shared secret and verifies as well.
// For MethodEd25519 keys are raw or PEM encoded; PrivateKey may be omitted
// for a verify-only manager. VerifyKeys, when set, selects the verification
// key by the token's kid header and supports rotation; a manager that signs
// must then name its own entry with KeyID.
//
// Leeway applies to exp and to iat in the future.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte

	// Now overrides the clock used for issuing and validating. Nil means time.Now.
	Now func() time.Time
}

// SessionClaims carries the encoded user data of a session. The jti claim
// identifies the session for revocation.
type SessionClaims struct {
	Data []byte `json:"dat"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens. It is immutable after
// NewManager and safe for concurrent use.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	signKey any
	// verifyKey is used when no kid map is configured.
	verifyKey  any
	verifyKeys map[string]any
	parser     *jwt.Parser
}

// NewManager validates cfg and resolves its keys once.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("%w: leeway must be within [0, %s]", ErrInvalidConfig, maxLeeway)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, method: cfg.SigningMethod.jws()}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACSecret {
			return nil, fmt.Errorf("%w: hs256 secret must be at least %d bytes", ErrInvalidConfig, minHMACSecret)
		}
		m.signKey = cfg.PrivateKey
		m.verifyKey = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if m.signKey != nil && m.verifyKey != nil && !m.verifies(m.verifyKey) {
			return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidConfig)
		}
		if m.verifyKey == nil && len(cfg.VerifyKeys) == 0 {
			return nil, fmt.Errorf("%w: ed25519 needs a public key or verify keys", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}

	if len(cfg.VerifyKeys) > 0 {
		m.verifyKeys = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, fmt.Errorf("%w: empty kid in verify keys", ErrInvalidConfig)
			}
			key, err := m.verifyKeyFromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("verify key %q: %w", kid, err)
			}
			m.verifyKeys[kid] = key
		}
		if m.signKey != nil && cfg.KeyID == "" {
			return nil, fmt.Errorf("%w: key id is required to sign when verify keys are set", ErrInvalidConfig)
		}
		if cfg.KeyID != "" {
			key, ok := m.verifyKeys[cfg.KeyID]
			if !ok {
				return nil, fmt.Errorf("%w: kid %q missing from verify keys", ErrInvalidConfig, cfg.KeyID)
			}
			if m.signKey != nil && !m.verifies(key) {
				return nil, fmt.Errorf("%w: verify key %q does not match the signing key", ErrInvalidConfig, cfg.KeyID)
			}
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	m.parser = jwt.NewParser(opts...)

	return m, nil
}

// TTL returns the lifetime given to issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// CanSign reports whether the manager holds a signing key.
func (m *Manager) CanSign() bool {
	return m.signKey != nil
}

// Issue signs a token carrying data under a fresh random jti.
func (m *Manager) Issue(data []byte) (string, *SessionClaims, error) {
	if !m.CanSign() {
		return "", nil, ErrNoSigningKey
	}

	jti, err := uuid.NewRandom()
	if err != nil {
		return "", nil, err
	}

	now := m.config.Now()
	claims := &SessionClaims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies raw and returns its claims. Tokens with a foreign
// algorithm, a bad signature, an unknown kid, no jti, no iat, an iat ahead of
// the clock by more than Leeway or an expired lifetime are rejected.
func (m *Manager) Parse(raw string) (*SessionClaims, error) {
	token, err := m.parser.ParseWithClaims(raw, &SessionClaims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.ID == "" {
		return nil, ErrMissingJTI
	}
	// WithIssuedAt only checks iat when present.
	if claims.IssuedAt == nil {
		return nil, ErrMissingIAT
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)

	if m.verifyKeys != nil {
		key, ok := m.verifyKeys[kid]
		if !ok {
			return nil, ErrUnknownKeyID
		}
		return key, nil
	}
	if m.config.KeyID != "" && kid != m.config.KeyID {
		return nil, ErrUnknownKeyID
	}
	return m.verifyKey, nil
}

// verifies reports whether key checks signatures made with the signing key.
func (m *Manager) verifies(key any) bool {
	switch sk := m.signKey.(type) {
	case []byte:
		vk, ok := key.([]byte)
		return ok && bytes.Equal(sk, vk)
	case ed25519.PrivateKey:
		vk, ok := key.(ed25519.PublicKey)
		return ok && vk.Equal(sk.Public())
	default:
		return false
	}
}

func (m *Manager) verifyKeyFromBytes(raw []byte) (any, error) {
	if m.config.SigningMethod == MethodHS256 {
		return raw, nil
	}
	return parseEdPublicKey(raw)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 private key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: pem block is not an ed25519 private key", ErrInvalidConfig)
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 public key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: pem block is not an ed25519 public key", ErrInvalidConfig)
	}
	return edKey, nil
}
