// Package bbolt is an AppendLog on a bbolt key value store.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/halvden/eventledger/core"
)

const globalOrderBucketName = "global_order"

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// BBolt append log. Each stream gets its own bucket keyed by version;
// the global order bucket holds every record keyed by its own sequence.
type BBolt struct {
	db *bbolt.DB
}

// storedRecord is the value format in the global order bucket. The
// stream buckets store the raw payload directly.
type storedRecord struct {
	StreamID string `json:"stream_id"`
	Version  uint64 `json:"version"`
	Payload  []byte `json:"payload"`
}

// MustOpen opens the append log in the given file. The file is created
// and initialized if it does not exist. Panics if the file can not be
// opened or initialized.
func MustOpen(dbFile string) *BBolt {
	db, err := bbolt.Open(dbFile, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		panic(err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(globalOrderBucketName))
		return err
	})
	if err != nil {
		panic(err)
	}
	return &BBolt{db: db}
}

// Append stores the payload as the next record of the stream. The whole
// read-max / check / insert step runs inside one update transaction.
func (b *BBolt) Append(ctx context.Context, streamID string, payload []byte, expected core.Expected) (core.Version, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var version core.Version
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(streamBucketName(streamID))
		if err != nil {
			return fmt.Errorf("could not create stream bucket: %w", err)
		}

		current := core.Version(0)
		if k, _ := bucket.Cursor().Last(); k != nil {
			current = core.Version(binary.BigEndian.Uint64(k))
		}

		if !expected.IsAny() && expected.Version() != current {
			return &core.ConcurrencyError{StreamID: streamID, Expected: expected, Actual: current}
		}

		version = current + 1
		if err := bucket.Put(itob(uint64(version)), payload); err != nil {
			return fmt.Errorf("could not store record: %w", err)
		}

		global := tx.Bucket([]byte(globalOrderBucketName))
		sequence, err := global.NextSequence()
		if err != nil {
			return fmt.Errorf("could not get next global sequence: %w", err)
		}
		value, err := json.Marshal(storedRecord{StreamID: streamID, Version: uint64(version), Payload: payload})
		if err != nil {
			return fmt.Errorf("could not encode global record: %w", err)
		}
		if err := global.Put(itob(sequence), value); err != nil {
			return fmt.Errorf("could not store global record: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// ReadStream returns the records of the stream after the given version.
func (b *BBolt) ReadStream(ctx context.Context, streamID string, afterVersion core.Version, limit uint64) (core.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []core.Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(streamBucketName(streamID))
		if bucket == nil {
			return nil
		}
		cursor := bucket.Cursor()
		for k, v := cursor.Seek(itob(uint64(afterVersion) + 1)); k != nil; k, v = cursor.Next() {
			payload := make([]byte, len(v))
			copy(payload, v)
			records = append(records, core.Record{
				StreamID: streamID,
				Version:  core.Version(binary.BigEndian.Uint64(k)),
				Payload:  payload,
			})
			if limit > 0 && uint64(len(records)) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		return core.NopIterator{}, nil
	}
	return &iterator{records: records}, nil
}

// ReadAll returns records across all streams in global append order.
func (b *BBolt) ReadAll(ctx context.Context, afterSequence uint64, limit uint64) (core.Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]core.Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(globalOrderBucketName)).Cursor()
		for k, v := cursor.Seek(itob(afterSequence + 1)); k != nil; k, v = cursor.Next() {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("could not decode global record: %w", err)
			}
			records = append(records, core.Record{
				GlobalSequence: binary.BigEndian.Uint64(k),
				StreamID:       stored.StreamID,
				Version:        core.Version(stored.Version),
				Payload:        stored.Payload,
			})
			if limit > 0 && uint64(len(records)) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &iterator{records: records}, nil
}

// Close closes the bbolt database
func (b *BBolt) Close() error {
	return b.db.Close()
}

func streamBucketName(streamID string) []byte {
	return []byte("stream_" + streamID)
}
