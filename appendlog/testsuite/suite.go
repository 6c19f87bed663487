// Package testsuite verifies the AppendLog contract. Every adapter runs
// the same suite against a fresh log instance.
package testsuite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/halvden/eventledger/core"
)

type logFunc = func() (core.AppendLog, func(), error)

// Test runs the acceptance suite against the log returned by f.
func Test(t *testing.T, f logFunc) {
	tests := []struct {
		title string
		run   func(t *testing.T, log core.AppendLog)
	}{
		{"append assigns contiguous versions from one", appendVersions},
		{"append with wrong expected version fails and keeps the log untouched", appendConflict},
		{"append to an empty stream requires exact zero", appendEmptyStream},
		{"append without version check always succeeds", appendAny},
		{"streams do not conflict with each other", independentStreams},
		{"read stream returns records after the given version", readStreamWindow},
		{"read stream honours the limit", readStreamLimit},
		{"read all returns records in global append order", readAllOrder},
		{"close is idempotent", closeIdempotent},
		{"concurrent appends have exactly one winner", concurrentAppends},
	}
	for _, test := range tests {
		t.Run(test.title, func(t *testing.T) {
			log, closeFunc, err := f()
			if err != nil {
				t.Fatal(err)
			}
			defer closeFunc()
			test.run(t, log)
		})
	}
}

var ctx = context.Background()

func mustAppend(t *testing.T, log core.AppendLog, streamID string, payload []byte, expected core.Expected) core.Version {
	t.Helper()
	version, err := log.Append(ctx, streamID, payload, expected)
	if err != nil {
		t.Fatalf("append to %s failed: %v", streamID, err)
	}
	return version
}

func collect(t *testing.T, iter core.Iterator) []core.Record {
	t.Helper()
	defer iter.Close()

	records := make([]core.Record, 0)
	for iter.Next() {
		record, err := iter.Value()
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, record)
	}
	return records
}

func appendVersions(t *testing.T, log core.AppendLog) {
	if v := mustAppend(t, log, "a", []byte("one"), core.Exact(0)); v != 1 {
		t.Fatalf("first append got version %d expected 1", v)
	}
	if v := mustAppend(t, log, "a", []byte("two"), core.Exact(1)); v != 2 {
		t.Fatalf("second append got version %d expected 2", v)
	}
	if v := mustAppend(t, log, "a", []byte("three"), core.Exact(2)); v != 3 {
		t.Fatalf("third append got version %d expected 3", v)
	}

	records := collect(t, mustReadStream(t, log, "a", 0, 0))
	if len(records) != 3 {
		t.Fatalf("expected 3 records got %d", len(records))
	}
	for i, record := range records {
		if record.Version != core.Version(i+1) {
			t.Fatalf("record %d has version %d", i, record.Version)
		}
		if record.StreamID != "a" {
			t.Fatalf("record %d has stream id %q", i, record.StreamID)
		}
	}
}

func mustReadStream(t *testing.T, log core.AppendLog, streamID string, after core.Version, limit uint64) core.Iterator {
	t.Helper()
	iter, err := log.ReadStream(ctx, streamID, after, limit)
	if err != nil {
		t.Fatal(err)
	}
	return iter
}

func appendConflict(t *testing.T, log core.AppendLog) {
	mustAppend(t, log, "a", []byte("one"), core.Exact(0))

	_, err := log.Append(ctx, "a", []byte("stale"), core.Exact(0))
	if !errors.Is(err, core.ErrConcurrency) {
		t.Fatalf("expected concurrency error got %v", err)
	}

	var conflict *core.ConcurrencyError
	if !errors.As(err, &conflict) {
		t.Fatal("expected a typed concurrency error")
	}
	if conflict.Actual != 1 {
		t.Fatalf("conflict reports actual version %d expected 1", conflict.Actual)
	}
	if conflict.StreamID != "a" {
		t.Fatalf("conflict reports stream %q", conflict.StreamID)
	}

	// the failed append must not have touched the log
	records := collect(t, mustReadStream(t, log, "a", 0, 0))
	if len(records) != 1 {
		t.Fatalf("log mutated by failed append, has %d records", len(records))
	}
	if string(records[0].Payload) != "one" {
		t.Fatalf("unexpected payload %q", records[0].Payload)
	}
}

func appendEmptyStream(t *testing.T, log core.AppendLog) {
	_, err := log.Append(ctx, "a", []byte("one"), core.Exact(3))
	var conflict *core.ConcurrencyError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected concurrency error got %v", err)
	}
	if conflict.Actual != 0 {
		t.Fatalf("empty stream should report actual version 0 got %d", conflict.Actual)
	}
}

func appendAny(t *testing.T, log core.AppendLog) {
	mustAppend(t, log, "a", []byte("one"), core.Any())
	mustAppend(t, log, "a", []byte("two"), core.Any())

	// versions still advance even when the check is skipped
	records := collect(t, mustReadStream(t, log, "a", 0, 0))
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d", len(records))
	}
	if records[1].Version != 2 {
		t.Fatalf("expected version 2 got %d", records[1].Version)
	}
}

func independentStreams(t *testing.T, log core.AppendLog) {
	mustAppend(t, log, "a", []byte("a1"), core.Exact(0))
	mustAppend(t, log, "b", []byte("b1"), core.Exact(0))
	mustAppend(t, log, "a", []byte("a2"), core.Exact(1))

	if records := collect(t, mustReadStream(t, log, "a", 0, 0)); len(records) != 2 {
		t.Fatalf("stream a has %d records expected 2", len(records))
	}
	if records := collect(t, mustReadStream(t, log, "b", 0, 0)); len(records) != 1 {
		t.Fatalf("stream b has %d records expected 1", len(records))
	}
}

func readStreamWindow(t *testing.T, log core.AppendLog) {
	for i := 0; i < 5; i++ {
		mustAppend(t, log, "a", []byte{byte(i)}, core.Exact(core.Version(i)))
	}

	records := collect(t, mustReadStream(t, log, "a", 2, 0))
	if len(records) != 3 {
		t.Fatalf("expected 3 records after version 2 got %d", len(records))
	}
	if records[0].Version != 3 {
		t.Fatalf("first record should have version 3 got %d", records[0].Version)
	}
}

func readStreamLimit(t *testing.T, log core.AppendLog) {
	for i := 0; i < 5; i++ {
		mustAppend(t, log, "a", []byte{byte(i)}, core.Exact(core.Version(i)))
	}

	records := collect(t, mustReadStream(t, log, "a", 0, 2))
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d", len(records))
	}
	if records[1].Version != 2 {
		t.Fatalf("expected version 2 got %d", records[1].Version)
	}
}

func readAllOrder(t *testing.T, log core.AppendLog) {
	mustAppend(t, log, "a", []byte("a1"), core.Exact(0))
	mustAppend(t, log, "b", []byte("b1"), core.Exact(0))
	mustAppend(t, log, "a", []byte("a2"), core.Exact(1))

	iter, err := log.ReadAll(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	records := collect(t, iter)
	if len(records) != 3 {
		t.Fatalf("expected 3 records got %d", len(records))
	}

	order := []string{"a", "b", "a"}
	var lastSequence uint64
	for i, record := range records {
		if record.StreamID != order[i] {
			t.Fatalf("record %d from stream %q expected %q", i, record.StreamID, order[i])
		}
		if record.GlobalSequence <= lastSequence {
			t.Fatalf("global sequence not increasing at record %d", i)
		}
		lastSequence = record.GlobalSequence
	}

	// windowed read starts after the given sequence
	iter, err = log.ReadAll(ctx, records[0].GlobalSequence, 1)
	if err != nil {
		t.Fatal(err)
	}
	tail := collect(t, iter)
	if len(tail) != 1 {
		t.Fatalf("expected 1 record got %d", len(tail))
	}
	if tail[0].StreamID != "b" {
		t.Fatalf("expected record from stream b got %q", tail[0].StreamID)
	}
}

func closeIdempotent(t *testing.T, log core.AppendLog) {
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}
}

func concurrentAppends(t *testing.T, log core.AppendLog) {
	mustAppend(t, log, "a", []byte("base"), core.Exact(0))

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = log.Append(ctx, "a", []byte("racer"), core.Exact(1))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		if !errors.Is(err, core.ErrConcurrency) {
			t.Fatalf("unexpected error from racing append: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning append got %d", winners)
	}

	records := collect(t, mustReadStream(t, log, "a", 0, 0))
	if len(records) != 2 {
		t.Fatalf("expected 2 records got %d", len(records))
	}
}
