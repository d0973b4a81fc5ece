package pstore

import (
	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/keyschema"
)

// --------------------------------------------------------------------------
// IProcessStore - Data Items (docu see interface.go)
// --------------------------------------------------------------------------

// Note on reserved fields: user keys are base64 encoded before becoming
// container fields and the reserved metadata field names contain characters
// outside the base64 alphabet, so a user key can never shadow them.

func (s *storeImpl) Put(storeID uint64, key, value []byte) error {
	countOp("put")

	err := s.backend.ContainerFieldSet(keyschema.StoreContentsKey(storeID), keyschema.EncodeItemField(key), value)
	if err != nil {
		countOpError("put")
		return NewErrorf(RetCDataItemWriteError, "writing item into store %d: %v", storeID, err)
	}
	return nil
}

func (s *storeImpl) PutSafe(storeID uint64, key, value []byte) error {
	countOp("putSafe")

	if err := s.acquireStoreLock(storeID); err != nil {
		countOpError("putSafe")
		return err
	}
	defer s.releaseStoreLock(storeID)

	found, err := s.storeExists(storeID)
	if err != nil {
		countOpError("putSafe")
		return err
	}
	if !found {
		countOpError("putSafe")
		return NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}

	if err := s.backend.ContainerFieldSet(keyschema.StoreContentsKey(storeID), keyschema.EncodeItemField(key), value); err != nil {
		countOpError("putSafe")
		return NewErrorf(RetCDataItemWriteError, "writing item into store %d: %v", storeID, err)
	}
	return nil
}

// getDataItemFromStore is the shared fetch primitive behind Get, GetSafe
// and Has. With skipValueFetch only existence is probed.
func (s *storeImpl) getDataItemFromStore(storeID uint64, key []byte, skipValueFetch bool) ([]byte, bool, error) {
	contentsKey := keyschema.StoreContentsKey(storeID)
	field := keyschema.EncodeItemField(key)

	if skipValueFetch {
		found, err := s.backend.ContainerFieldExists(contentsKey, field)
		if err != nil {
			return nil, false, NewErrorf(RetCDataItemReadError, "probing item in store %d: %v", storeID, err)
		}
		return nil, found, nil
	}

	value, found, err := s.backend.ContainerFieldGet(contentsKey, field)
	if err != nil {
		return nil, false, NewErrorf(RetCDataItemReadError, "reading item from store %d: %v", storeID, err)
	}
	return value, found, nil
}

func (s *storeImpl) Get(storeID uint64, key []byte) ([]byte, bool, error) {
	countOp("get")

	value, found, err := s.getDataItemFromStore(storeID, key, false)
	if err != nil {
		countOpError("get")
	}
	return value, found, err
}

func (s *storeImpl) GetSafe(storeID uint64, key []byte) ([]byte, bool, error) {
	countOp("getSafe")

	if err := s.acquireStoreLock(storeID); err != nil {
		countOpError("getSafe")
		return nil, false, err
	}
	defer s.releaseStoreLock(storeID)

	exists, err := s.storeExists(storeID)
	if err != nil {
		countOpError("getSafe")
		return nil, false, err
	}
	if !exists {
		countOpError("getSafe")
		return nil, false, NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}

	value, found, err := s.getDataItemFromStore(storeID, key, false)
	if err != nil {
		countOpError("getSafe")
	}
	return value, found, err
}

func (s *storeImpl) Has(storeID uint64, key []byte) (bool, error) {
	countOp("has")

	_, found, err := s.getDataItemFromStore(storeID, key, true)
	if err != nil {
		countOpError("has")
	}
	return found, err
}

func (s *storeImpl) Remove(storeID uint64, key []byte) error {
	countOp("remove")

	if err := s.acquireStoreLock(storeID); err != nil {
		countOpError("remove")
		return err
	}
	defer s.releaseStoreLock(storeID)

	exists, err := s.storeExists(storeID)
	if err != nil {
		countOpError("remove")
		return err
	}
	if !exists {
		countOpError("remove")
		return NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}

	// The removal count is not inspected: several backends report success
	// for an absent field, so "deleted" and "was already absent" cannot be
	// told apart here.
	if _, err := s.backend.ContainerFieldDelete(keyschema.StoreContentsKey(storeID), keyschema.EncodeItemField(key)); err != nil {
		countOpError("remove")
		return NewErrorf(RetCInternalError, "removing item from store %d: %v", storeID, err)
	}
	return nil
}

func (s *storeImpl) GetKeys(storeID uint64) ([][]byte, error) {
	countOp("getKeys")

	exists, err := s.storeExists(storeID)
	if err != nil {
		countOpError("getKeys")
		return nil, err
	}
	if !exists {
		countOpError("getKeys")
		return nil, NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}

	fields, err := s.backend.ContainerFieldKeys(keyschema.StoreContentsKey(storeID))
	if err != nil {
		countOpError("getKeys")
		return nil, NewErrorf(RetCInternalError, "listing keys of store %d: %v", storeID, err)
	}

	keys := make([][]byte, 0, len(fields))
	for _, field := range fields {
		if keyschema.IsReservedField(field) {
			continue
		}
		key, err := keyschema.DecodeItemField(field)
		if err != nil {
			countOpError("getKeys")
			return nil, NewErrorf(RetCInternalError, "corrupt item key %q in store %d: %v", field, storeID, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// IProcessStore - TTL Namespace (docu see interface.go)
// --------------------------------------------------------------------------

// The TTL namespace is one shared global keyspace independent of any store.
// Items expire at the backend's discretion once their ttl elapses.

func (s *storeImpl) PutTTL(key, value []byte, ttlSeconds uint64, encodeKey bool) error {
	countOp("putTTL")

	if ttlSeconds > 0 && !s.backend.SupportsFeature(backend.FeatureTTL) {
		countOpError("putTTL")
		return NewErrorf(RetCUnsupportedOperation, "the configured backend does not expire keys")
	}

	if err := s.backend.WriteTTL(keyschema.TTLKey(key, encodeKey), value, ttlSeconds); err != nil {
		countOpError("putTTL")
		return NewErrorf(RetCDataItemWriteError, "writing TTL item: %v", err)
	}
	return nil
}

func (s *storeImpl) GetTTL(key []byte, encodeKey bool) ([]byte, bool, error) {
	countOp("getTTL")

	value, found, err := s.backend.Read(keyschema.TTLKey(key, encodeKey))
	if err != nil {
		countOpError("getTTL")
		return nil, false, NewErrorf(RetCDataItemReadError, "reading TTL item: %v", err)
	}
	return value, found, nil
}

func (s *storeImpl) HasTTL(key []byte, encodeKey bool) (bool, error) {
	countOp("hasTTL")

	found, err := s.backend.Has(keyschema.TTLKey(key, encodeKey))
	if err != nil {
		countOpError("hasTTL")
		return false, NewErrorf(RetCDataItemReadError, "probing TTL item: %v", err)
	}
	return found, nil
}

func (s *storeImpl) RemoveTTL(key []byte, encodeKey bool) error {
	countOp("removeTTL")

	if err := s.backend.Delete(keyschema.TTLKey(key, encodeKey)); err != nil {
		countOpError("removeTTL")
		return NewErrorf(RetCInternalError, "removing TTL item: %v", err)
	}
	return nil
}
