package bbolt

import "github.com/halvden/eventledger/core"

// iterator walks records copied out of a read transaction. Copying keeps
// the bbolt pages out of reach once the transaction is done.
type iterator struct {
	records []core.Record
	pos     int
}

func (i *iterator) Next() bool {
	if i.pos >= len(i.records) {
		return false
	}
	i.pos++
	return true
}

func (i *iterator) Value() (core.Record, error) {
	return i.records[i.pos-1], nil
}

func (i *iterator) Close() {}
