package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	algorithmID          = "argon2id"
)

var (
	ErrInvalidConfig   = errors.New("password: invalid argon2 config")
	ErrEmptyPassword   = errors.New("password: empty password")
	ErrMalformedHash   = errors.New("password: malformed PHC hash")
	ErrUnsupportedHash = errors.New("password: unsupported hash algorithm or version")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32 `yaml:"memory" mapstructure:"memory"`
	Time        uint32 `yaml:"time" mapstructure:"time"`
	Parallelism uint8  `yaml:"parallelism" mapstructure:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length" mapstructure:"salt_length"`
	KeyLength   uint32 `yaml:"key_length" mapstructure:"key_length"`
}

// DefaultConfig returns the RFC 9106 second recommended parameter set.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameter sets too weak to be useful.
func (c Config) Validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case c.Time < 1:
		return fmt.Errorf("%w: time must be >= 1", ErrInvalidConfig)
	case c.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrInvalidConfig)
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	}
	return nil
}

// Hasher hashes and verifies passwords with Argon2id. It is safe for
// concurrent use.
type Hasher struct {
	config Config
	rand   io.Reader
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg, rand: rand.Reader}, nil
}

// Hash returns a PHC-encoded Argon2id hash of plain. Bytes are used as given,
// without Unicode normalization.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)
	return phc{
		memory:      h.config.Memory,
		time:        h.config.Time,
		parallelism: h.config.Parallelism,
		salt:        salt,
		key:         key,
	}.String(), nil
}

// Verify reports whether plain matches encoded. A malformed hash is an error;
// a mismatch is (false, nil).
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(plain), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the hasher's current config.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return p.memory < h.config.Memory ||
		p.time < h.config.Time ||
		p.parallelism < h.config.Parallelism ||
		uint32(len(p.key)) != h.config.KeyLength, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// String renders $argon2id$v=19$m=<m>,t=<t>,p=<p>$<salt>$<key> with unpadded
// standard base64, matching the reference implementation.
func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phc{}, ErrMalformedHash
	}
	if parts[1] != algorithmID {
		return phc{}, ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return phc{}, ErrMalformedHash
	}
	if version != argon2.Version {
		return phc{}, ErrUnsupportedHash
	}

	var p phc
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil || n != 3 {
		return phc{}, ErrMalformedHash
	}
	if p.memory < minMemoryKB || p.time < 1 || p.parallelism < 1 {
		return phc{}, ErrMalformedHash
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || uint32(len(p.salt)) < minSaltLength {
		return phc{}, ErrMalformedHash
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || uint32(len(p.key)) < minKeyLength {
		return phc{}, ErrMalformedHash
	}
	return p, nil
}
