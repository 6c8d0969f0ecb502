package session

import "time"

const (
	// DefaultRedisPrefix namespaces session keys in Redis.
	DefaultRedisPrefix = "gs:sess:"
	// DefaultSQLTable is the table used by SQLStore.
	DefaultSQLTable = "sessions"

	createAttempts = 3
)

type options struct {
	ttl         time.Duration
	maxSessions int
	prefix      string
	table       string
	newID       IDGenerator
	codec       Codec
	now         func() time.Time
}

// Option configures a store. Options a backend has no use for are ignored.
type Option func(*options)

func defaultOptions() options {
	return options{
		prefix: DefaultRedisPrefix,
		table:  DefaultSQLTable,
		newID:  UUIDGenerator,
		codec:  JSONCodec{},
		now:    time.Now,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTTL sets the session lifetime. Zero keeps sessions until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxSessions bounds the memory store. When the bound is reached the
// oldest session is evicted. Zero means unbounded.
func WithMaxSessions(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSessions = n
		}
	}
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTable sets the SQL table name. The name is interpolated into queries and
// must come from trusted configuration.
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithIDGenerator replaces the session identifier generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithCodec replaces the user data codec.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o *options) expiry(now time.Time) time.Time {
	if o.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(o.ttl)
}
