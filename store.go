package eventledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/halvden/eventledger/core"
)

var (
	// ErrCorruptPayload when a stored payload can not be decoded. Fatal:
	// the stream is corrupt and must not be replayed further.
	ErrCorruptPayload = errors.New("corrupt payload")

	// ErrUnknownEventKind when a stored event kind has no registered
	// type. Fatal: data corruption or a missing migration.
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// ConflictError when a save lost the optimistic concurrency race. It
// carries the authoritative reloaded stream so the caller can merge,
// retry or abort without a second round trip.
type ConflictError struct {
	StreamID string
	Expected core.Expected
	Actual   core.Version
	Current  []Event
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stream %s: expected version %s but stream is at %d: %v", e.StreamID, e.Expected, e.Actual, core.ErrConcurrency)
}

func (e *ConflictError) Unwrap() error {
	return core.ErrConcurrency
}

// Stream is the decoded, ordered history of one stream. Version is the
// version of the last record read, 0 for an empty stream.
type Stream struct {
	ID      string
	Version core.Version
	Events  []Event
}

// Store is the event store: it translates ordered event batches to and
// from append log records and enriches version conflicts with the
// current history.
type Store struct {
	log      core.AppendLog
	register *register
	// serializer / deserializer for event data and payload envelopes
	Serializer   SerializeFunc
	Deserializer DeserializeFunc
}

// NewStore factory function
func NewStore(log core.AppendLog) *Store {
	return &Store{
		log:          log,
		register:     newRegister(),
		Serializer:   json.Marshal,
		Deserializer: json.Unmarshal,
	}
}

// Register records the event kinds of the aggregate so its stored
// payloads can be decoded.
func (s *Store) Register(a aggregate) {
	s.register.Register(a)
}

// Save appends the ordered event batch as one record at the next
// version of the stream. The whole batch is stored or nothing is. On a
// version conflict the current stream is reloaded and returned inside a
// ConflictError. Returns the version the batch was stored at.
func (s *Store) Save(ctx context.Context, streamID string, events []Event, expected core.Expected) (core.Version, error) {
	if len(events) == 0 {
		return 0, nil
	}

	payload, err := s.encodePayload(events)
	if err != nil {
		return 0, err
	}

	version, err := s.log.Append(ctx, streamID, payload, expected)
	if err != nil {
		var conflict *core.ConcurrencyError
		if errors.As(err, &conflict) {
			stream, loadErr := s.Load(ctx, streamID)
			if loadErr != nil {
				return 0, loadErr
			}
			return 0, &ConflictError{
				StreamID: streamID,
				Expected: expected,
				Actual:   stream.Version,
				Current:  stream.Events,
			}
		}
		return 0, fmt.Errorf("error from append log: %w", err)
	}
	return version, nil
}

// Load returns the full stream
func (s *Store) Load(ctx context.Context, streamID string) (Stream, error) {
	return s.LoadFrom(ctx, streamID, 0, 0)
}

// LoadFrom returns the stream from records with version greater than
// afterVersion, capped at limit records (0 = unbounded). Batches are
// concatenated in version order.
func (s *Store) LoadFrom(ctx context.Context, streamID string, afterVersion core.Version, limit uint64) (Stream, error) {
	iter, err := s.log.ReadStream(ctx, streamID, afterVersion, limit)
	if err != nil {
		return Stream{}, err
	}
	defer iter.Close()

	stream := Stream{ID: streamID}
	for iter.Next() {
		record, err := iter.Value()
		if err != nil {
			return Stream{}, err
		}
		events, err := s.decodePayload(record)
		if err != nil {
			return Stream{}, err
		}
		stream.Events = append(stream.Events, events...)
		stream.Version = record.Version
	}
	return stream, nil
}

// LoadAll returns decoded events across all streams in global append
// order, for building cross-stream projections. The returned sequence
// is where to resume the next page.
func (s *Store) LoadAll(ctx context.Context, afterSequence uint64, limit uint64) ([]Event, uint64, error) {
	iter, err := s.log.ReadAll(ctx, afterSequence, limit)
	if err != nil {
		return nil, afterSequence, err
	}
	defer iter.Close()

	var events []Event
	sequence := afterSequence
	for iter.Next() {
		record, err := iter.Value()
		if err != nil {
			return nil, afterSequence, err
		}
		decoded, err := s.decodePayload(record)
		if err != nil {
			return nil, afterSequence, err
		}
		events = append(events, decoded...)
		sequence = record.GlobalSequence
	}
	return events, sequence, nil
}
