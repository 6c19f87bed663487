package core

// NopIterator returns no data
type NopIterator struct{}

func (ni NopIterator) Next() bool {
	return false
}

func (ni NopIterator) Value() (Record, error) {
	return Record{}, nil
}

func (ni NopIterator) Close() {}
