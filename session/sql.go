package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore keeps sessions in a relational table using the Postgres dialect
// ($n placeholders, ON CONFLICT). Register a driver such as github.com/lib/pq
// in the binary that opens the *sql.DB.
type SQLStore[In, U any] struct {
	db      *sql.DB
	project func(In) U
	opts    options

	insertQuery  string
	selectQuery  string
	deleteQuery  string
	cleanupQuery string
}

// NewSQLStore wraps db. The pool is owned by the caller.
func NewSQLStore[In, U any](db *sql.DB, project func(In) U, opts ...Option) *SQLStore[In, U] {
	o := applyOptions(opts)
	t := o.table
	return &SQLStore[In, U]{
		db:      db,
		project: project,
		opts:    o,

		insertQuery: `INSERT INTO ` + t + ` (id, data, created_at, expires_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
		selectQuery: `SELECT data FROM ` + t + `
			WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		deleteQuery:  `DELETE FROM ` + t + ` WHERE id = $1`,
		cleanupQuery: `DELETE FROM ` + t + ` WHERE expires_at IS NOT NULL AND expires_at <= $1`,
	}
}

// Migrate creates the session table and its expiry index if missing.
func (s *SQLStore[In, U]) Migrate(ctx context.Context) error {
	t := s.opts.table
	migration := `
CREATE TABLE IF NOT EXISTS ` + t + ` (
    id text PRIMARY KEY,
    data bytea NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    expires_at timestamptz
);

CREATE INDEX IF NOT EXISTS ` + t + `_expires_at_idx
ON ` + t + ` (expires_at);
`
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SQLStore[In, U]) Create(ctx context.Context, in In) (string, error) {
	if s.project == nil {
		return "", ErrNoProjection
	}

	payload, err := s.opts.codec.Marshal(s.project(in))
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	now := s.opts.now().UTC()
	var expires sql.NullTime
	if exp := s.opts.expiry(now); !exp.IsZero() {
		expires = sql.NullTime{Time: exp, Valid: true}
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := s.opts.newID()
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}

		res, err := s.db.ExecContext(ctx, s.insertQuery, id, payload, now, expires)
		if err != nil {
			return "", unavailable(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", unavailable(err)
		}
		if n == 1 {
			return id, nil
		}
	}

	return "", ErrIDCollision
}

func (s *SQLStore[In, U]) Verify(ctx context.Context, sessionID string) (U, bool, error) {
	var zero U

	var payload []byte
	err := s.db.QueryRowContext(ctx, s.selectQuery, sessionID, s.opts.now().UTC()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, unavailable(err)
	}

	u, err := decodeUser[U](s.opts.codec, payload)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return u, true, nil
}

func (s *SQLStore[In, U]) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, sessionID); err != nil {
		return unavailable(err)
	}
	return nil
}

// Cleanup deletes expired rows and reports how many were removed.
func (s *SQLStore[In, U]) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.cleanupQuery, s.opts.now().UTC())
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Ping measures one round trip to the database.
func (s *SQLStore[In, U]) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
