package eventledger_test

import (
	"errors"
	"testing"

	"github.com/halvden/eventledger"
	"github.com/halvden/eventledger/appendlog/memory"
	"github.com/halvden/eventledger/core"
)

func newRepository() *eventledger.Repository {
	repo := eventledger.NewRepository(eventledger.NewStore(memory.Create()))
	repo.Register(&Trip{})
	return repo
}

func TestSaveAndGetAggregate(t *testing.T) {
	repo := newRepository()

	trip := StartTrip("gothenburg")
	trip.AddLeg(100)
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatalf("could not save aggregate, err: %v", err)
	}

	// the batch was stored as one record
	if trip.Version() != 1 {
		t.Fatalf("version is: %d expected: 1", trip.Version())
	}
	if trip.UnsavedEvents() {
		t.Fatal("pending buffer should be cleared after save")
	}

	twin := Trip{}
	if err := repo.Get(ctx, trip.ID(), &twin); err != nil {
		t.Fatal("could not get aggregate")
	}

	if trip.Version() != twin.Version() {
		t.Fatalf("wrong version org %d copy %d", trip.Version(), twin.Version())
	}
	if trip.Destination != twin.Destination {
		t.Fatalf("wrong destination org %q copy %q", trip.Destination, twin.Destination)
	}
	if trip.Distance != twin.Distance {
		t.Fatalf("wrong distance org %d copy %d", trip.Distance, twin.Distance)
	}
}

func TestGetNoneExistingAggregate(t *testing.T) {
	repo := newRepository()

	trip := Trip{}
	if err := repo.Get(ctx, "none_existing", &trip); err != eventledger.ErrAggregateNotFound {
		t.Fatal("expected ErrAggregateNotFound")
	}
}

func TestSaveWithoutChanges(t *testing.T) {
	repo := newRepository()

	trip := StartTrip("gothenburg")
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatal(err)
	}
	// a second save with nothing pending is a no-op
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatal(err)
	}
	if trip.Version() != 1 {
		t.Fatalf("version is: %d expected: 1", trip.Version())
	}
}

func TestSaveConsecutiveBatches(t *testing.T) {
	repo := newRepository()

	trip := StartTrip("gothenburg")
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatal(err)
	}
	trip.AddLeg(100)
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatal(err)
	}
	if trip.Version() != 2 {
		t.Fatalf("version is: %d expected: 2", trip.Version())
	}

	twin := Trip{}
	if err := repo.Get(ctx, trip.ID(), &twin); err != nil {
		t.Fatal(err)
	}
	if twin.Distance != 100 {
		t.Fatalf("wrong distance %d", twin.Distance)
	}
}

func TestConcurrentSaveConflict(t *testing.T) {
	repo := newRepository()

	trip := StartTrip("gothenburg")
	if err := repo.Save(ctx, trip); err != nil {
		t.Fatal(err)
	}

	// two writers load the same version
	one := Trip{}
	if err := repo.Get(ctx, trip.ID(), &one); err != nil {
		t.Fatal(err)
	}
	two := Trip{}
	if err := repo.Get(ctx, trip.ID(), &two); err != nil {
		t.Fatal(err)
	}

	one.AddLeg(100)
	if err := repo.Save(ctx, &one); err != nil {
		t.Fatal(err)
	}

	two.AddLeg(50)
	err := repo.Save(ctx, &two)
	if !errors.Is(err, core.ErrConcurrency) {
		t.Fatalf("expected a concurrency conflict got %v", err)
	}

	var conflict *eventledger.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("expected a ConflictError")
	}
	if conflict.Actual != 2 {
		t.Fatalf("conflict reports actual version %d expected 2", conflict.Actual)
	}

	// the loser reloads the authoritative state and retries
	retry := Trip{}
	retry.BuildFromHistory(&retry, conflict.Current)
	retry.AddLeg(50)
	if err := repo.Save(ctx, &retry); err != nil {
		t.Fatal(err)
	}
	if retry.Version() != 3 {
		t.Fatalf("version is: %d expected: 3", retry.Version())
	}
	if retry.Distance != 150 {
		t.Fatalf("wrong distance %d expected 150", retry.Distance)
	}
}
