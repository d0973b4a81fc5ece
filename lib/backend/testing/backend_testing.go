package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/distproc/pstore/lib/backend"
)

// Factory is a function that creates a new, connected instance of an
// IBackend implementation.
type Factory func() backend.IBackend

// RunBackendTests runs the conformance test suite for an IBackend
// implementation. Every concrete engine must pass this suite unchanged;
// the process store protocol assumes exactly these semantics.
func RunBackendTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("ReadWrite", func(t *testing.T) {
			testReadWrite(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("WriteIfAbsent", func(t *testing.T) {
			testWriteIfAbsent(t, factory())
		})

		t.Run("WriteIfAbsentContention", func(t *testing.T) {
			testWriteIfAbsentContention(t, factory())
		})

		t.Run("TTL", func(t *testing.T) {
			testTTL(t, factory())
		})

		t.Run("Increment", func(t *testing.T) {
			testIncrement(t, factory())
		})

		t.Run("ContainerFields", func(t *testing.T) {
			testContainerFields(t, factory())
		})

		t.Run("ContainerDelete", func(t *testing.T) {
			testContainerDelete(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// requireFeature skips the test if the engine does not support the feature.
func requireFeature(t testing.TB, b backend.IBackend, feature backend.Feature) {
	t.Helper()
	if !b.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testReadWrite(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureWrite|backend.FeatureRead)

	if err := b.Write("k1", []byte("v1")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, found, err := b.Read("k1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !found {
		t.Fatal("expected k1 to exist after Write")
	}
	if !bytes.Equal(value, []byte("v1")) {
		t.Errorf("expected v1, got %q", value)
	}

	// overwrite
	if err := b.Write("k1", []byte("v2")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	value, _, _ = b.Read("k1")
	if !bytes.Equal(value, []byte("v2")) {
		t.Errorf("expected v2 after overwrite, got %q", value)
	}

	// missing key
	_, found, err = b.Read("missing")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if found {
		t.Error("expected missing key to be absent")
	}

	// returned value must be caller-owned
	value, _, _ = b.Read("k1")
	value[0] = 'X'
	fresh, _, _ := b.Read("k1")
	if !bytes.Equal(fresh, []byte("v2")) {
		t.Error("mutating a returned value leaked into the engine")
	}
}

func testDelete(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureWrite|backend.FeatureDelete)

	if err := b.Write("gone", []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := b.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if found, _ := b.Has("gone"); found {
		t.Error("key still present after Delete")
	}

	// deleting an absent key is not an error
	if err := b.Delete("never-existed"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func testWriteIfAbsent(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureWriteIfAbsent)

	ok, err := b.WriteIfAbsent("cond", []byte("first"), 0)
	if err != nil {
		t.Fatalf("WriteIfAbsent failed: %v", err)
	}
	if !ok {
		t.Fatal("first conditional write should succeed")
	}

	ok, err = b.WriteIfAbsent("cond", []byte("second"), 0)
	if err != nil {
		t.Fatalf("WriteIfAbsent failed: %v", err)
	}
	if ok {
		t.Fatal("second conditional write should be rejected")
	}

	value, _, _ := b.Read("cond")
	if !bytes.Equal(value, []byte("first")) {
		t.Errorf("losing write overwrote the value: %q", value)
	}
}

func testWriteIfAbsentContention(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureWriteIfAbsent)

	const contenders = 32
	var (
		wg      sync.WaitGroup
		winners int32
		mu      sync.Mutex
	)

	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func(id int) {
			defer wg.Done()
			ok, err := b.WriteIfAbsent("race", []byte(fmt.Sprintf("owner-%d", id)), 0)
			if err != nil {
				t.Errorf("WriteIfAbsent failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}
}

func testTTL(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureWriteIfAbsent|backend.FeatureTTL)

	ok, err := b.WriteIfAbsent("lease", []byte("owner"), 1)
	if err != nil || !ok {
		t.Fatalf("conditional write failed: ok=%v err=%v", ok, err)
	}

	if _, found, _ := b.Read("lease"); !found {
		t.Fatal("key should exist within the TTL window")
	}

	time.Sleep(1100 * time.Millisecond)

	if _, found, _ := b.Read("lease"); found {
		t.Fatal("key should have expired")
	}

	// after expiry the key counts as absent for conditional writes
	ok, err = b.WriteIfAbsent("lease", []byte("next-owner"), 0)
	if err != nil || !ok {
		t.Errorf("expired key should be writable again: ok=%v err=%v", ok, err)
	}
}

func testIncrement(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureIncrement)

	for want := int64(1); want <= 3; want++ {
		got, err := b.Increment("counter")
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	// concurrent increments must not lose updates
	const (
		workers = 8
		perW    = 50
	)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perW; j++ {
				if _, err := b.Increment("shared"); err != nil {
					t.Errorf("Increment failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	final, err := b.Increment("shared")
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if final != workers*perW+1 {
		t.Errorf("lost updates: expected %d, got %d", workers*perW+1, final)
	}
}

func testContainerFields(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureContainerFields)

	const container = "142"

	// empty container
	count, err := b.ContainerFieldCount(container)
	if err != nil {
		t.Fatalf("ContainerFieldCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty container, got %d fields", count)
	}

	fields := map[string][]byte{
		"alpha": []byte("1"),
		"beta":  []byte("two"),
		"gamma": {},
	}
	for f, v := range fields {
		if err := b.ContainerFieldSet(container, f, v); err != nil {
			t.Fatalf("ContainerFieldSet failed: %v", err)
		}
	}

	for f, want := range fields {
		got, found, err := b.ContainerFieldGet(container, f)
		if err != nil || !found {
			t.Fatalf("ContainerFieldGet(%s): found=%v err=%v", f, found, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("field %s: expected %q, got %q", f, want, got)
		}

		exists, _ := b.ContainerFieldExists(container, f)
		if !exists {
			t.Errorf("field %s should exist", f)
		}
	}

	if _, found, _ := b.ContainerFieldGet(container, "missing"); found {
		t.Error("missing field reported as found")
	}

	count, _ = b.ContainerFieldCount(container)
	if count != int64(len(fields)) {
		t.Errorf("expected %d fields, got %d", len(fields), count)
	}

	keys, err := b.ContainerFieldKeys(container)
	if err != nil {
		t.Fatalf("ContainerFieldKeys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != len(fields) {
		t.Fatalf("expected %d keys, got %v", len(fields), keys)
	}
}

func testContainerDelete(t *testing.T, b backend.IBackend) {
	defer b.Close()

	requireFeature(t, b, backend.FeatureContainerFields|backend.FeatureDelete)

	const container = "199"

	if err := b.ContainerFieldSet(container, "f1", []byte("v")); err != nil {
		t.Fatalf("ContainerFieldSet failed: %v", err)
	}
	if err := b.ContainerFieldSet(container, "f2", []byte("v")); err != nil {
		t.Fatalf("ContainerFieldSet failed: %v", err)
	}

	n, err := b.ContainerFieldDelete(container, "f1")
	if err != nil {
		t.Fatalf("ContainerFieldDelete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed field, got %d", n)
	}

	count, _ := b.ContainerFieldCount(container)
	if count != 1 {
		t.Errorf("expected 1 remaining field, got %d", count)
	}

	// deleting the container key removes all fields at once
	if err := b.Delete(container); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	count, _ = b.ContainerFieldCount(container)
	if count != 0 {
		t.Errorf("container not empty after Delete: %d fields", count)
	}
}
