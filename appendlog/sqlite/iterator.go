package sqlite

import (
	"database/sql"

	"github.com/halvden/eventledger/core"
)

type iterator struct {
	rows *sql.Rows
}

// Next moves the iterator to the next record
func (i *iterator) Next() bool {
	return i.rows.Next()
}

// Value returns the record at the current position
func (i *iterator) Value() (core.Record, error) {
	var record core.Record
	if err := i.rows.Scan(&record.GlobalSequence, &record.StreamID, &record.Version, &record.Payload); err != nil {
		return core.Record{}, err
	}
	return record, nil
}

// Close closes the iterator
func (i *iterator) Close() {
	i.rows.Close()
}
