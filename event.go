package eventledger

import (
	"time"

	"github.com/halvden/eventledger/core"
)

// Event is the envelope around one application specific event. The data
// is immutable once the event is constructed; events are created by
// aggregate behaviours via TrackChange or by decoding stored records.
type Event struct {
	streamID  string
	version   core.Version // version of the record the event was stored in, 0 while pending
	kind      string
	timestamp time.Time
	data      interface{}
}

// StreamID returns the identity of the stream the event belongs to
func (e Event) StreamID() string {
	return e.streamID
}

// Version returns the version of the record the event was stored in.
// Pending events that are not yet saved have version 0.
func (e Event) Version() core.Version {
	return e.version
}

// Kind returns the name of the event data type
func (e Event) Kind() string {
	return e.kind
}

// Timestamp returns the time the event was created
func (e Event) Timestamp() time.Time {
	return e.timestamp
}

// Data returns the application specific event
func (e Event) Data() interface{} {
	return e.data
}
