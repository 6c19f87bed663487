package eventledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/halvden/eventledger"
	"github.com/halvden/eventledger/appendlog/memory"
	"github.com/halvden/eventledger/core"
)

var ctx = context.Background()

func newStore(t *testing.T) *eventledger.Store {
	t.Helper()
	store := eventledger.NewStore(memory.Create())
	store.Register(&Trip{})
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newStore(t)

	trip := StartTrip("gothenburg")
	trip.AddLeg(100)

	version, err := store.Save(ctx, trip.ID(), trip.Changes(), core.Exact(0))
	if err != nil {
		t.Fatalf("could not save events: %v", err)
	}
	// the whole batch occupies exactly one version increment
	if version != 1 {
		t.Fatalf("expected version 1 got %d", version)
	}

	stream, err := store.Load(ctx, trip.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stream.Version != 1 {
		t.Fatalf("stream version should be 1 got %d", stream.Version)
	}
	if len(stream.Events) != 2 {
		t.Fatalf("expected 2 events got %d", len(stream.Events))
	}
	if stream.Events[0].Kind() != "Departed" || stream.Events[1].Kind() != "LegAdded" {
		t.Fatal("events came back in the wrong order")
	}

	departed, ok := stream.Events[0].Data().(*Departed)
	if !ok {
		t.Fatalf("wrong data type %T", stream.Events[0].Data())
	}
	if departed.Destination != "gothenburg" {
		t.Fatalf("wrong destination %q", departed.Destination)
	}
}

func TestSaveEmptyBatch(t *testing.T) {
	store := newStore(t)

	version, err := store.Save(ctx, "123", nil, core.Exact(0))
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Fatalf("empty batch should not advance the version, got %d", version)
	}
}

func TestLoadEmptyStream(t *testing.T) {
	store := newStore(t)

	stream, err := store.Load(ctx, "does_not_exist")
	if err != nil {
		t.Fatal(err)
	}
	if stream.Version != 0 {
		t.Fatalf("empty stream should have version 0 got %d", stream.Version)
	}
	if len(stream.Events) != 0 {
		t.Fatal("empty stream should have no events")
	}
}

func TestSaveConflictCarriesCurrentStream(t *testing.T) {
	store := newStore(t)

	trip := StartTrip("gothenburg")
	if _, err := store.Save(ctx, trip.ID(), trip.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}

	// a stale writer still believes the stream is empty
	stale := StartTrip("malmo")
	_, err := store.Save(ctx, trip.ID(), stale.Changes(), core.Exact(0))
	if err == nil {
		t.Fatal("stale save should conflict")
	}
	if !errors.Is(err, core.ErrConcurrency) {
		t.Fatalf("conflict should match core.ErrConcurrency, got %v", err)
	}

	var conflict *eventledger.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected a ConflictError got %v", err)
	}
	if conflict.Actual != 1 {
		t.Fatalf("conflict reports actual version %d expected 1", conflict.Actual)
	}
	if conflict.StreamID != trip.ID() {
		t.Fatalf("conflict reports stream %q", conflict.StreamID)
	}
	// the authoritative history rides along so the caller can merge or retry
	if len(conflict.Current) != 1 || conflict.Current[0].Kind() != "Departed" {
		t.Fatalf("conflict should carry the current stream, got %v", conflict.Current)
	}
}

func TestEachBatchGetsOwnVersion(t *testing.T) {
	store := newStore(t)

	trip := StartTrip("gothenburg")
	if _, err := store.Save(ctx, trip.ID(), trip.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}

	trip.AddLeg(100)
	trip.AddLeg(50)
	// only the two new legs go into the second batch
	batch := trip.Changes()[1:]
	version, err := store.Save(ctx, trip.ID(), batch, core.Exact(1))
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Fatalf("expected version 2 got %d", version)
	}

	stream, err := store.Load(ctx, trip.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stream.Version != 2 {
		t.Fatalf("stream version should be 2 got %d", stream.Version)
	}
	if len(stream.Events) != 3 {
		t.Fatalf("expected 3 events got %d", len(stream.Events))
	}
}

func TestLoadFromSkipsRecords(t *testing.T) {
	store := newStore(t)

	trip := StartTrip("gothenburg")
	if _, err := store.Save(ctx, trip.ID(), trip.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}
	trip.AddLeg(100)
	if _, err := store.Save(ctx, trip.ID(), trip.Changes()[1:], core.Exact(1)); err != nil {
		t.Fatal(err)
	}

	stream, err := store.LoadFrom(ctx, trip.ID(), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(stream.Events) != 1 {
		t.Fatalf("expected 1 event after version 1 got %d", len(stream.Events))
	}
	if stream.Events[0].Kind() != "LegAdded" {
		t.Fatalf("wrong event %q", stream.Events[0].Kind())
	}
	if stream.Version != 2 {
		t.Fatalf("stream version should be 2 got %d", stream.Version)
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	log := memory.Create()
	store := eventledger.NewStore(log)
	store.Register(&Trip{})

	if _, err := log.Append(ctx, "123", []byte("not a payload"), core.Exact(0)); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load(ctx, "123")
	if !errors.Is(err, eventledger.ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload got %v", err)
	}
}

func TestLoadUnknownEventKind(t *testing.T) {
	log := memory.Create()

	writer := eventledger.NewStore(log)
	writer.Register(&Trip{})

	trip := StartTrip("gothenburg")
	if _, err := writer.Save(ctx, trip.ID(), trip.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}

	// a reader without the registered kinds must fail hard, not skip
	reader := eventledger.NewStore(log)
	_, err := reader.Load(ctx, trip.ID())
	if !errors.Is(err, eventledger.ErrUnknownEventKind) {
		t.Fatalf("expected ErrUnknownEventKind got %v", err)
	}
}

func TestLoadAllGlobalOrder(t *testing.T) {
	store := newStore(t)

	first := StartTrip("gothenburg")
	if _, err := store.Save(ctx, first.ID(), first.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}
	second := StartTrip("malmo")
	if _, err := store.Save(ctx, second.ID(), second.Changes(), core.Exact(0)); err != nil {
		t.Fatal(err)
	}
	first.AddLeg(100)
	if _, err := store.Save(ctx, first.ID(), first.Changes()[1:], core.Exact(1)); err != nil {
		t.Fatal(err)
	}

	events, sequence, err := store.LoadAll(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events got %d", len(events))
	}

	streams := []string{first.ID(), second.ID(), first.ID()}
	for i, event := range events {
		if event.StreamID() != streams[i] {
			t.Fatalf("event %d from stream %q expected %q", i, event.StreamID(), streams[i])
		}
	}
	if sequence != 3 {
		t.Fatalf("expected resume sequence 3 got %d", sequence)
	}

	// resume from the reported sequence gives nothing new
	events, _, err = store.LoadAll(ctx, sequence, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events after sequence, got %d", len(events))
	}
}
