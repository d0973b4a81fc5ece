package pstore

import (
	"strconv"
	"time"

	"github.com/distproc/pstore/lib/backend"
	"github.com/distproc/pstore/lib/keyschema"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// metadataWriteRetries bounds the re-insert attempts during Clear.
	// Replicated backends may transiently reject a write that directly
	// follows a delete of the same key.
	metadataWriteRetries = 5

	// metadataRetrySleep is the pause between such re-insert attempts.
	metadataRetrySleep = 100 * time.Millisecond
)

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// storeImpl implements IProcessStore over any backend adapter. It holds no
// state of its own besides the backend handle; all persisted state lives in
// the backend, which is what makes the store shareable across processes.
type storeImpl struct {
	backend backend.IBackend
}

// NewProcessStore creates a process store on top of a connected backend.
// Creating several instances over the same backend is safe; they see the
// same stores.
func NewProcessStore(b backend.IBackend) IProcessStore {
	return &storeImpl{backend: b}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// storeExists checks for the store's contents container by probing its
// mandatory metadata field.
func (s *storeImpl) storeExists(storeID uint64) (bool, error) {
	found, err := s.backend.ContainerFieldExists(keyschema.StoreContentsKey(storeID), keyschema.FieldStoreName)
	if err != nil {
		return false, NewErrorf(RetCInternalError, "store %d existence check: %v", storeID, err)
	}
	return found, nil
}

// readMetaField reads and decodes one reserved metadata field.
func (s *storeImpl) readMetaField(storeID uint64, field string) (string, error) {
	raw, found, err := s.backend.ContainerFieldGet(keyschema.StoreContentsKey(storeID), field)
	if err != nil {
		return "", NewErrorf(RetCInternalError, "reading metadata of store %d: %v", storeID, err)
	}
	if !found {
		return "", NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}
	decoded, err := keyschema.DecodeName(string(raw))
	if err != nil {
		return "", NewErrorf(RetCInternalError, "corrupt metadata field %s of store %d: %v", field, storeID, err)
	}
	return decoded, nil
}

// --------------------------------------------------------------------------
// IProcessStore - Store Lifecycle (docu see interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) CreateStore(name, keyTypeName, valueTypeName string) (uint64, error) {
	countOp("createStore")

	// Serialize concurrent creators of the same name.
	if err := s.acquireGenericLock(name); err != nil {
		countOpError("createStore")
		return 0, err
	}
	defer s.releaseGenericLock(name)

	nameKey := keyschema.StoreNameKey(name)

	found, err := s.backend.Has(nameKey)
	if err != nil {
		countOpError("createStore")
		return 0, NewErrorf(RetCInternalError, "existence check for store %q: %v", name, err)
	}
	if found {
		countOpError("createStore")
		return 0, NewErrorf(RetCStoreExists, "a store named %q already exists", name)
	}

	// Reserve a fresh id from the shared counter. A failure after this
	// point leaves an unused id behind, which is harmless.
	id, err := s.backend.Increment(keyschema.GUIDKey)
	if err != nil {
		countOpError("createStore")
		return 0, NewErrorf(RetCIDAllocationError, "unable to get a unique id for store %q: %v", name, err)
	}
	storeID := uint64(id)

	if err := s.backend.Write(nameKey, []byte(strconv.FormatUint(storeID, 10))); err != nil {
		countOpError("createStore")
		return 0, NewErrorf(RetCInternalError, "writing name mapping for store %q: %v", name, err)
	}

	// Populate the three reserved metadata fields. The backend offers no
	// multi-key atomicity, so any failure triggers best-effort compensating
	// deletes of everything written so far.
	contentsKey := keyschema.StoreContentsKey(storeID)
	meta := []struct {
		field string
		value string
	}{
		{keyschema.FieldStoreName, keyschema.EncodeName(name)},
		{keyschema.FieldKeyTypeName, keyschema.EncodeName(keyTypeName)},
		{keyschema.FieldValueTypeName, keyschema.EncodeName(valueTypeName)},
	}

	for _, m := range meta {
		if err := s.backend.ContainerFieldSet(contentsKey, m.field, []byte(m.value)); err != nil {
			_ = s.backend.Delete(contentsKey)
			_ = s.backend.Delete(nameKey)
			countOpError("createStore")
			return 0, NewErrorf(RetCInternalError, "writing metadata for store %q: %v", name, err)
		}
	}

	return storeID, nil
}

func (s *storeImpl) CreateOrGetStore(name, keyTypeName, valueTypeName string) (uint64, error) {
	storeID, err := s.CreateStore(name, keyTypeName, valueTypeName)
	if CodeOf(err) == RetCStoreExists {
		return s.FindStore(name)
	}
	return storeID, err
}

func (s *storeImpl) FindStore(name string) (uint64, error) {
	countOp("findStore")

	raw, found, err := s.backend.Read(keyschema.StoreNameKey(name))
	if err != nil {
		countOpError("findStore")
		return 0, NewErrorf(RetCInternalError, "looking up store %q: %v", name, err)
	}
	if !found {
		return 0, NewErrorf(RetCStoreDoesNotExist, "a store named %q does not exist", name)
	}

	storeID, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		countOpError("findStore")
		return 0, NewErrorf(RetCInternalError, "corrupt id mapping for store %q: %v", name, err)
	}
	return storeID, nil
}

func (s *storeImpl) HasStore(name string) (bool, error) {
	found, err := s.backend.Has(keyschema.StoreNameKey(name))
	if err != nil {
		return false, NewErrorf(RetCInternalError, "existence check for store %q: %v", name, err)
	}
	return found, nil
}

func (s *storeImpl) RemoveStore(storeID uint64) error {
	countOp("removeStore")

	if err := s.acquireStoreLock(storeID); err != nil {
		countOpError("removeStore")
		return err
	}
	defer s.releaseStoreLock(storeID)

	// The name is needed to delete the name mapping after the container.
	name, err := s.readMetaField(storeID, keyschema.FieldStoreName)
	if err != nil {
		countOpError("removeStore")
		return err
	}

	// Not atomic: a crash between these two deletes leaves an orphan name
	// mapping pointing at a gone container.
	if err := s.backend.Delete(keyschema.StoreContentsKey(storeID)); err != nil {
		countOpError("removeStore")
		return NewErrorf(RetCInternalError, "deleting contents of store %d: %v", storeID, err)
	}
	if err := s.backend.Delete(keyschema.StoreNameKey(name)); err != nil {
		countOpError("removeStore")
		return NewErrorf(RetCStoreFatalError, "store %d contents deleted but name mapping %q remains: %v", storeID, name, err)
	}

	return nil
}

func (s *storeImpl) Clear(storeID uint64) error {
	countOp("clear")

	if err := s.acquireStoreLock(storeID); err != nil {
		countOpError("clear")
		return err
	}
	defer s.releaseStoreLock(storeID)

	// Capture the metadata before dropping the container.
	contentsKey := keyschema.StoreContentsKey(storeID)
	meta := make(map[string][]byte, keyschema.ReservedFieldCount)
	for _, field := range []string{keyschema.FieldStoreName, keyschema.FieldKeyTypeName, keyschema.FieldValueTypeName} {
		raw, found, err := s.backend.ContainerFieldGet(contentsKey, field)
		if err != nil {
			countOpError("clear")
			return NewErrorf(RetCInternalError, "reading metadata of store %d: %v", storeID, err)
		}
		if !found {
			countOpError("clear")
			return NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
		}
		meta[field] = raw
	}

	if err := s.backend.Delete(contentsKey); err != nil {
		countOpError("clear")
		return NewErrorf(RetCInternalError, "clearing store %d: %v", storeID, err)
	}

	// Recreate the container with its reserved fields. An insert right
	// after a delete of the same key can transiently fail on replicated
	// backends, so each field gets a bounded number of attempts.
	for _, field := range []string{keyschema.FieldStoreName, keyschema.FieldKeyTypeName, keyschema.FieldValueTypeName} {
		var lastErr error
		written := false
		for attempt := 0; attempt < metadataWriteRetries; attempt++ {
			if lastErr = s.backend.ContainerFieldSet(contentsKey, field, meta[field]); lastErr == nil {
				written = true
				break
			}
			time.Sleep(metadataRetrySleep)
		}
		if !written {
			countOpError("clear")
			return NewErrorf(RetCStoreFatalError,
				"store %d is in an inconsistent state: metadata field %s could not be rewritten after clear: %v",
				storeID, field, lastErr)
		}
	}

	return nil
}

func (s *storeImpl) Size(storeID uint64) (uint64, error) {
	countOp("size")

	count, err := s.backend.ContainerFieldCount(keyschema.StoreContentsKey(storeID))
	if err != nil {
		countOpError("size")
		return 0, NewErrorf(RetCInternalError, "sizing store %d: %v", storeID, err)
	}
	if count == 0 {
		return 0, NewErrorf(RetCStoreDoesNotExist, "a store with id %d does not exist", storeID)
	}
	if count < keyschema.ReservedFieldCount {
		return 0, NewErrorf(RetCStoreFatalError, "store %d has only %d of %d reserved metadata fields", storeID, count, keyschema.ReservedFieldCount)
	}
	return uint64(count - keyschema.ReservedFieldCount), nil
}

func (s *storeImpl) GetStoreName(storeID uint64) (string, error) {
	return s.readMetaField(storeID, keyschema.FieldStoreName)
}

func (s *storeImpl) GetKeyTypeName(storeID uint64) (string, error) {
	return s.readMetaField(storeID, keyschema.FieldKeyTypeName)
}

func (s *storeImpl) GetValueTypeName(storeID uint64) (string, error) {
	return s.readMetaField(storeID, keyschema.FieldValueTypeName)
}
