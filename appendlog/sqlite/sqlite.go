// Package sqlite is an AppendLog on a SQLite database via database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/halvden/eventledger/core"
)

// SQLite append log. The host owns the *sql.DB and passes it in opened;
// the log only issues queries against the ledger table.
type SQLite struct {
	db *sql.DB
}

// Open the append log on an existing database handle
func Open(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Close the database handle. Idempotent via database/sql.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Append inserts the payload as the next record of the stream inside one
// transaction. The unique index on (stream_name, version) backstops true
// races: if two appends pass the version check concurrently, the second
// insert fails and is reported as a concurrency conflict with the
// re-read actual version.
func (s *SQLite) Append(ctx context.Context, streamID string, payload []byte, expected core.Expected) (core.Version, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not start transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := currentVersion(ctx, tx, streamID)
	if err != nil {
		return 0, err
	}

	if !expected.IsAny() && expected.Version() != current {
		return 0, &core.ConcurrencyError{StreamID: streamID, Expected: expected, Actual: current}
	}

	next := current + 1
	_, err = tx.ExecContext(ctx, `insert into ledger (stream_name, version, payload) values (?, ?, ?)`, streamID, next, payload)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, s.conflict(ctx, streamID, expected)
		}
		return 0, fmt.Errorf("could not insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return 0, s.conflict(ctx, streamID, expected)
		}
		return 0, fmt.Errorf("could not commit record: %w", err)
	}
	return next, nil
}

// conflict re-reads the authoritative version after a lost insert race.
func (s *SQLite) conflict(ctx context.Context, streamID string, expected core.Expected) error {
	actual, err := currentVersion(ctx, s.db, streamID)
	if err != nil {
		return err
	}
	return &core.ConcurrencyError{StreamID: streamID, Expected: expected, Actual: actual}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func currentVersion(ctx context.Context, q querier, streamID string) (core.Version, error) {
	var current sql.NullInt64
	err := q.QueryRowContext(ctx, `select max(version) from ledger where stream_name = ?`, streamID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("could not read current version: %w", err)
	}
	return core.Version(current.Int64), nil
}

// ReadStream returns the records of the stream after the given version.
func (s *SQLite) ReadStream(ctx context.Context, streamID string, afterVersion core.Version, limit uint64) (core.Iterator, error) {
	rows, err := s.db.QueryContext(ctx, `select seq, stream_name, version, payload from ledger where stream_name = ? and version > ? order by version asc limit ?`, streamID, afterVersion, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("could not query stream %s: %w", streamID, err)
	}
	return &iterator{rows: rows}, nil
}

// ReadAll returns records across all streams in global append order.
func (s *SQLite) ReadAll(ctx context.Context, afterSequence uint64, limit uint64) (core.Iterator, error) {
	rows, err := s.db.QueryContext(ctx, `select seq, stream_name, version, payload from ledger where seq > ? order by seq asc limit ?`, afterSequence, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("could not query records: %w", err)
	}
	return &iterator{rows: rows}, nil
}

// sqlLimit maps the unbounded limit to SQLite's "no limit" value.
func sqlLimit(limit uint64) int64 {
	if limit == 0 {
		return -1
	}
	return int64(limit)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
