package eventledger

import (
	"context"
	"errors"
	"reflect"

	"github.com/halvden/eventledger/core"
)

// ErrAggregateNotFound returned when no events exist for the stream
var ErrAggregateNotFound = errors.New("aggregate not found")

// Repository loads and saves aggregates on top of the event store. The
// version the aggregate was loaded at is used as the concurrency guard
// on save; conflicts surface as a ConflictError for the caller to
// resolve, the repository never retries on its own.
type Repository struct {
	store *Store
}

// NewRepository factory function
func NewRepository(store *Store) *Repository {
	return &Repository{store: store}
}

// Register records the aggregate's event kinds in the underlying store
func (r *Repository) Register(a aggregate) {
	r.store.Register(a)
}

// Store exposes the underlying event store
func (r *Repository) Store() *Store {
	return r.store
}

// Get fetches the aggregate's events and builds up the aggregate state
// by replaying them.
func (r *Repository) Get(ctx context.Context, id string, a aggregate) error {
	if reflect.ValueOf(a).Kind() != reflect.Ptr {
		return ErrNeedsToBeAPointer
	}

	stream, err := r.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if len(stream.Events) == 0 {
		return ErrAggregateNotFound
	}
	a.root().BuildFromHistory(a, stream.Events)
	return nil
}

// Save persists the aggregate's pending events as one batch, guarded by
// the version the aggregate was loaded at.
func (r *Repository) Save(ctx context.Context, a aggregate) error {
	root := a.root()
	if !root.UnsavedEvents() {
		return nil
	}

	version, err := r.store.Save(ctx, root.ID(), root.Changes(), core.Exact(root.Version()))
	if err != nil {
		return err
	}
	root.commit(version)
	return nil
}
