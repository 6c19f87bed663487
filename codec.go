package eventledger

import (
	"fmt"
	"time"

	"github.com/halvden/eventledger/core"
)

// SerializeFunc marshals event data into bytes
type SerializeFunc func(v interface{}) ([]byte, error)

// DeserializeFunc unmarshals bytes into event data
type DeserializeFunc func(data []byte, v interface{}) error

// payloadFormat is the version of the stored payload layout. Bump it
// when the envelope shape changes so old records stay decodable.
const payloadFormat = 1

// payloadEnvelope is the stored representation of one saved batch. The
// batch occupies a single record and a single version increment.
type payloadEnvelope struct {
	Format int             `json:"format"`
	Events []eventEnvelope `json:"events"`
}

// eventEnvelope carries one event of the batch. Kind names the
// registered data type and Ver its encoding version, decoupling stored
// data from the in-memory representation.
type eventEnvelope struct {
	Kind      string    `json:"kind"`
	Ver       int       `json:"ver"`
	Timestamp time.Time `json:"time"`
	Data      []byte    `json:"data"`
}

// encodePayload turns an ordered event batch into one opaque payload.
func (s *Store) encodePayload(events []Event) ([]byte, error) {
	envelope := payloadEnvelope{Format: payloadFormat}
	for _, event := range events {
		data, err := s.Serializer(event.Data())
		if err != nil {
			return nil, fmt.Errorf("could not serialize %s event: %w", event.Kind(), err)
		}
		envelope.Events = append(envelope.Events, eventEnvelope{
			Kind:      event.Kind(),
			Ver:       1,
			Timestamp: event.Timestamp(),
			Data:      data,
		})
	}
	return s.Serializer(envelope)
}

// decodePayload turns a stored record back into its ordered event batch.
// Failures here are fatal to the caller: they signal storage corruption
// or a missing migration, never a normal control path.
func (s *Store) decodePayload(record core.Record) ([]Event, error) {
	var envelope payloadEnvelope
	if err := s.Deserializer(record.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("stream %s version %d: %w: %v", record.StreamID, record.Version, ErrCorruptPayload, err)
	}
	if envelope.Format != payloadFormat {
		return nil, fmt.Errorf("stream %s version %d: %w: unknown payload format %d", record.StreamID, record.Version, ErrCorruptPayload, envelope.Format)
	}

	events := make([]Event, 0, len(envelope.Events))
	for _, stored := range envelope.Events {
		f, ok := s.register.Kind(stored.Kind)
		if !ok {
			return nil, fmt.Errorf("stream %s version %d: %w: %s", record.StreamID, record.Version, ErrUnknownEventKind, stored.Kind)
		}
		data := f()
		if err := s.Deserializer(stored.Data, data); err != nil {
			return nil, fmt.Errorf("stream %s version %d: %w: %v", record.StreamID, record.Version, ErrCorruptPayload, err)
		}
		events = append(events, Event{
			streamID:  record.StreamID,
			version:   record.Version,
			kind:      stored.Kind,
			timestamp: stored.Timestamp,
			data:      data,
		})
	}
	return events, nil
}
