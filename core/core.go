package core

// Version is the per-stream version of a record. An empty stream has
// version 0; the first appended record gets version 1.
type Version uint64

// Record is one appended unit in the log: a single batch of serialized
// events stored under a stream at one version. Records are immutable
// once written.
type Record struct {
	// GlobalSequence orders records across all streams in append order.
	GlobalSequence uint64
	StreamID       string
	Version        Version
	// Payload is opaque to the log; the event store owns its format.
	Payload []byte
}
