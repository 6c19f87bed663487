package eventledger

import (
	"errors"
	"reflect"
	"time"

	"github.com/halvden/eventledger/core"
)

// aggregate is the interface behaviours and stores use to reach the
// embedded root, the state transitions and the event kind registration.
type aggregate interface {
	root() *Root
	Transition(event Event)
	Register(RegisterFunc)
}

const emptyStreamID = ""

// ErrStreamIDAlreadySet returned if the stream ID is set more than one time
var ErrStreamIDAlreadySet = errors.New("its not possible to set id on already existing stream")

// ErrNeedsToBeAPointer returned if the aggregate is sent in as a value object
var ErrNeedsToBeAPointer = errors.New("aggregate needs to be a pointer")

// Root is embedded into aggregates. It owns the replay mechanism and
// the pending changes buffer: state is always the replayed history plus
// the buffered, not yet persisted events.
type Root struct {
	streamID string
	version  core.Version // version of the last persisted record replayed in
	pending  []Event
}

// TrackChange applies a state change to the aggregate and tracks it so
// it can be persisted later. The event goes through the same Transition
// dispatch as replayed history, keeping the in-memory state consistent
// with history plus pending buffer.
func (r *Root) TrackChange(a aggregate, data interface{}) {
	// an id set in the aggregate constructor wins over the generated one
	if r.streamID == emptyStreamID {
		r.streamID = idFunc()
	}

	event := Event{
		streamID:  r.streamID,
		kind:      reflect.TypeOf(data).Elem().Name(),
		timestamp: time.Now().UTC(),
		data:      data,
	}
	r.pending = append(r.pending, event)
	a.Transition(event)
}

// BuildFromHistory rebuilds the aggregate state by replaying the events
// in order. Replay is deterministic: the same history always produces
// the same state.
func (r *Root) BuildFromHistory(a aggregate, events []Event) {
	for _, event := range events {
		a.Transition(event)
		r.streamID = event.StreamID()
		// keep the root at the version of the last replayed record
		r.version = event.Version()
	}
}

// commit moves the baseline to the saved version and drops the pending
// buffer. Called by the repository after a successful save.
func (r *Root) commit(version core.Version) {
	r.version = version
	r.pending = []Event{}
}

// SetID opens up the possibility to set a manual stream id from the outside
func (r *Root) SetID(id string) error {
	if r.streamID != emptyStreamID {
		return ErrStreamIDAlreadySet
	}
	r.streamID = id
	return nil
}

// ID returns the stream id of the aggregate
func (r *Root) ID() string {
	return r.streamID
}

// root returns the embedded root and is used from the aggregate interface
func (r *Root) root() *Root {
	return r
}

// Version returns the version of the last persisted record the
// aggregate was built from. Pending events do not advance it; only a
// successful save does.
func (r *Root) Version() core.Version {
	return r.version
}

// Changes returns a copy of the pending events, preventing outsiders
// from modifying the buffer.
func (r *Root) Changes() []Event {
	e := make([]Event, len(r.pending))
	copy(e, r.pending)
	return e
}

// UnsavedEvents returns true if there are pending events on the aggregate
func (r *Root) UnsavedEvents() bool {
	return len(r.pending) > 0
}
