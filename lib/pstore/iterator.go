package pstore

import (
	"github.com/distproc/pstore/lib/keyschema"
)

// --------------------------------------------------------------------------
// Iterator
// --------------------------------------------------------------------------

// Iterator is a stateful cursor over the items of one store. The set of
// item keys is snapshotted in a single backend call on the first GetNext;
// values are fetched one at a time as the cursor advances.
//
// The snapshot gives no isolation: items inserted or removed by other
// processes after it are not reflected, and structurally mutating the
// underlying store mid-iteration produces undefined per-item results
// rather than a clean error. Iteration order is whatever order the backend
// returns field names in.
type Iterator struct {
	store     *storeImpl
	storeID   uint64
	storeName string

	fields    []string
	cursor    int
	snapped   bool
	exhausted bool
}

// NewIterator creates an iterator bound to one store. It fails with
// RetCStoreDoesNotExist if the store is gone.
func (s *storeImpl) NewIterator(storeID uint64) (*Iterator, error) {
	countOp("newIterator")

	name, err := s.readMetaField(storeID, keyschema.FieldStoreName)
	if err != nil {
		countOpError("newIterator")
		return nil, err
	}

	return &Iterator{
		store:     s,
		storeID:   storeID,
		storeName: name,
	}, nil
}

// StoreName returns the name of the store this iterator walks.
func (it *Iterator) StoreName() string {
	return it.storeName
}

// snapshot fetches the full current key list once and filters the reserved
// metadata fields out.
func (it *Iterator) snapshot() error {
	exists, err := it.store.storeExists(it.storeID)
	if err != nil {
		return err
	}
	if !exists {
		return NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", it.storeID)
	}

	fields, err := it.store.backend.ContainerFieldKeys(keyschema.StoreContentsKey(it.storeID))
	if err != nil {
		return NewErrorf(RetCInternalError, "listing keys of store %d: %v", it.storeID, err)
	}

	it.fields = it.fields[:0]
	for _, field := range fields {
		if !keyschema.IsReservedField(field) {
			it.fields = append(it.fields, field)
		}
	}
	it.snapped = true
	return nil
}

// GetNext advances the cursor and returns the next key/value pair. It
// returns ok=false once the snapshot is exhausted (or the store existence
// pre-check fails on the first call). Items deleted by others since the
// snapshot are skipped.
func (it *Iterator) GetNext() (key, value []byte, ok bool, err error) {
	if it.exhausted {
		return nil, nil, false, nil
	}

	if !it.snapped {
		if err := it.snapshot(); err != nil {
			it.exhausted = true
			return nil, nil, false, err
		}
	}

	for it.cursor < len(it.fields) {
		field := it.fields[it.cursor]
		it.cursor++

		key, err := keyschema.DecodeItemField(field)
		if err != nil {
			return nil, nil, false, NewErrorf(RetCInternalError, "corrupt item key %q in store %d: %v", field, it.storeID, err)
		}

		value, found, err := it.store.backend.ContainerFieldGet(keyschema.StoreContentsKey(it.storeID), field)
		if err != nil {
			return nil, nil, false, NewErrorf(RetCDataItemReadError, "reading item from store %d: %v", it.storeID, err)
		}
		if !found {
			// deleted since the snapshot
			continue
		}
		return key, value, true, nil
	}

	it.exhausted = true
	return nil, nil, false, nil
}
