package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrConcurrency when the current version of the stream differs from the
// expected one. Matched by ConcurrencyError via errors.Is.
var ErrConcurrency = errors.New("concurrency error")

// ConcurrencyError carries the details of a failed version check so the
// caller can decide to reload and retry. The append never mutated the log.
type ConcurrencyError struct {
	StreamID string
	Expected Expected
	Actual   Version
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("stream %s: expected version %s but stream is at %d: %v", e.StreamID, e.Expected, e.Actual, ErrConcurrency)
}

func (e *ConcurrencyError) Unwrap() error {
	return ErrConcurrency
}

// Iterator is the lazy record sequence returned by ReadStream and ReadAll.
type Iterator interface {
	Next() bool
	Value() (Record, error)
	Close()
}

// AppendLog is the lowest layer: an append-only record log with a
// strictly increasing version per stream. Append must be atomic against
// the backing store; of two racing appends with the same expected
// version at most one can win, and the loser observes the up to date
// actual version in the returned ConcurrencyError. This is the sole
// concurrency-correctness requirement of the whole system.
type AppendLog interface {
	// Append stores payload as the next record of the stream and returns
	// the version it was assigned. The expected guard is checked against
	// the stream's current version inside the same atomic unit as the
	// insert.
	Append(ctx context.Context, streamID string, payload []byte, expected Expected) (Version, error)

	// ReadStream returns the records of one stream with version greater
	// than afterVersion, in ascending version order, capped at limit
	// records (0 = unbounded).
	ReadStream(ctx context.Context, streamID string, afterVersion Version, limit uint64) (Iterator, error)

	// ReadAll returns records across all streams ordered by global
	// append order, with global sequence greater than afterSequence,
	// capped at limit (0 = unbounded).
	ReadAll(ctx context.Context, afterSequence uint64, limit uint64) (Iterator, error)

	// Close releases the backing resource. Idempotent.
	Close() error
}
