package memory

import (
	"context"
	"sync"

	"github.com/halvden/eventledger/core"
)

// Memory is an in-memory append log. It is the reference implementation
// of the AppendLog semantics and is used in tests.
type Memory struct {
	lock    sync.Mutex
	streams map[string][]core.Record // records per stream in version order
	global  []core.Record            // all records in append order
	closed  bool
}

// Create an in-memory append log
func Create() *Memory {
	return &Memory{
		streams: make(map[string][]core.Record),
	}
}

// Append stores the payload as the next record of the stream. The whole
// read-max / check / insert step runs under the lock.
func (m *Memory) Append(ctx context.Context, streamID string, payload []byte, expected core.Expected) (core.Version, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	stream := m.streams[streamID]
	current := core.Version(0)
	if len(stream) > 0 {
		current = stream[len(stream)-1].Version
	}

	if !expected.IsAny() && expected.Version() != current {
		return 0, &core.ConcurrencyError{StreamID: streamID, Expected: expected, Actual: current}
	}

	record := core.Record{
		GlobalSequence: uint64(len(m.global)) + 1,
		StreamID:       streamID,
		Version:        current + 1,
		Payload:        payload,
	}
	m.streams[streamID] = append(stream, record)
	m.global = append(m.global, record)
	return record.Version, nil
}

// ReadStream returns the records of the stream after the given version.
func (m *Memory) ReadStream(ctx context.Context, streamID string, afterVersion core.Version, limit uint64) (core.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	records := make([]core.Record, 0)
	for _, record := range m.streams[streamID] {
		if record.Version <= afterVersion {
			continue
		}
		records = append(records, record)
		if limit > 0 && uint64(len(records)) >= limit {
			break
		}
	}
	return &iterator{records: records}, nil
}

// ReadAll returns records across all streams in global append order.
func (m *Memory) ReadAll(ctx context.Context, afterSequence uint64, limit uint64) (core.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	records := make([]core.Record, 0)
	for _, record := range m.global {
		if record.GlobalSequence <= afterSequence {
			continue
		}
		records = append(records, record)
		if limit > 0 && uint64(len(records)) >= limit {
			break
		}
	}
	return &iterator{records: records}, nil
}

// Close drops the stored records.
func (m *Memory) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.streams = make(map[string][]core.Record)
	m.global = nil
	return nil
}

type iterator struct {
	records []core.Record
	pos     int
}

func (i *iterator) Next() bool {
	if i.pos >= len(i.records) {
		return false
	}
	i.pos++
	return true
}

func (i *iterator) Value() (core.Record, error) {
	return i.records[i.pos-1], nil
}

func (i *iterator) Close() {}
